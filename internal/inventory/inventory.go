// Package inventory lists elastic network interfaces per subnet so
// operators can spot IP exhaustion before it blocks deployments.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/edp-labs/dataops/internal/table"
)

// ec2API is the subset of the EC2 client the scanner uses.
type ec2API interface {
	DescribeNetworkInterfaces(ctx context.Context, in *ec2.DescribeNetworkInterfacesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
}

// Interface is one network interface row.
type Interface struct {
	ID             string `json:"eni_id"`
	SubnetID       string `json:"subnet_id"`
	VpcID          string `json:"vpc_id"`
	AZ             string `json:"az"`
	Type           string `json:"type"`
	PrivateIP      string `json:"private_ip"`
	PublicIP       string `json:"public_ip,omitempty"`
	MAC            string `json:"mac"`
	Status         string `json:"status"`
	Description    string `json:"description"`
	Attachment     string `json:"attached_to,omitempty"`
	SecurityGroups string `json:"security_groups,omitempty"`
	Tags           string `json:"tags,omitempty"`
}

// Scanner queries network interfaces.
type Scanner struct {
	client ec2API
	logger *slog.Logger
}

// New creates a Scanner over the given client.
func New(client ec2API, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{client: client, logger: logger}
}

// NewFromRegion builds a Scanner with a real EC2 client.
func NewFromRegion(ctx context.Context, region string, logger *slog.Logger) (*Scanner, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(ec2.NewFromConfig(awsCfg), logger), nil
}

// Scan lists interfaces in the given subnets, paging through results.
// With no subnets it lists the whole account/region. Rows come back
// sorted by subnet then interface ID.
func (s *Scanner) Scan(ctx context.Context, subnetIDs []string) ([]Interface, error) {
	in := &ec2.DescribeNetworkInterfacesInput{MaxResults: aws.Int32(500)}
	if len(subnetIDs) > 0 {
		in.Filters = []ec2types.Filter{{
			Name:   aws.String("subnet-id"),
			Values: subnetIDs,
		}}
	}

	var out []Interface
	p := ec2.NewDescribeNetworkInterfacesPaginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe network interfaces: %w", err)
		}
		for _, eni := range page.NetworkInterfaces {
			out = append(out, fromENI(eni))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SubnetID != out[j].SubnetID {
			return out[i].SubnetID < out[j].SubnetID
		}
		return out[i].ID < out[j].ID
	})
	s.logger.Info("network interface scan complete", "subnets", len(subnetIDs), "interfaces", len(out))
	return out, nil
}

func fromENI(eni ec2types.NetworkInterface) Interface {
	iface := Interface{
		ID:          aws.ToString(eni.NetworkInterfaceId),
		SubnetID:    aws.ToString(eni.SubnetId),
		VpcID:       aws.ToString(eni.VpcId),
		AZ:          aws.ToString(eni.AvailabilityZone),
		Type:        string(eni.InterfaceType),
		PrivateIP:   aws.ToString(eni.PrivateIpAddress),
		MAC:         aws.ToString(eni.MacAddress),
		Status:      string(eni.Status),
		Description: aws.ToString(eni.Description),
	}
	if eni.Association != nil {
		iface.PublicIP = aws.ToString(eni.Association.PublicIp)
	}
	if eni.Attachment != nil {
		iface.Attachment = aws.ToString(eni.Attachment.InstanceId)
	}
	var groups []string
	for _, g := range eni.Groups {
		groups = append(groups, aws.ToString(g.GroupId))
	}
	iface.SecurityGroups = strings.Join(groups, " ")
	var tags []string
	for _, tag := range eni.TagSet {
		tags = append(tags, aws.ToString(tag.Key)+"="+aws.ToString(tag.Value))
	}
	sort.Strings(tags)
	iface.Tags = strings.Join(tags, " ")
	return iface
}

// Tabulate renders interfaces as a table for CSV or console output.
func Tabulate(ifaces []Interface) *table.Table {
	tbl := table.New("eni_id", "subnet_id", "vpc_id", "az", "type", "private_ip",
		"public_ip", "mac", "status", "attached_to", "security_groups", "description", "tags")
	for _, i := range ifaces {
		// width is fixed by the header above
		_ = tbl.Append([]string{i.ID, i.SubnetID, i.VpcID, i.AZ, i.Type, i.PrivateIP,
			i.PublicIP, i.MAC, i.Status, i.Attachment, i.SecurityGroups, i.Description, i.Tags})
	}
	return tbl
}
