package costs

// pricing.go - DPU-hour rates keyed by Glue version

// Pricing maps a Glue version to the USD price per DPU-hour.
type Pricing map[string]float64

// defaultVersion is the rate used for unknown versions.
const defaultVersion = "2.0"

// DefaultPricing returns the published per-DPU-hour rates.
func DefaultPricing() Pricing {
	return Pricing{
		"2.0": 0.44,
		"3.0": 0.44,
		"4.0": 0.44,
		"5.0": 0.44,
	}
}

// Rate returns the price for a version, falling back to the 2.0 rate.
func (p Pricing) Rate(version string) float64 {
	if rate, ok := p[version]; ok {
		return rate
	}
	return p[defaultVersion]
}
