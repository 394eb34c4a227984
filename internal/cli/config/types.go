// Package config provides configuration management for the dataops CLI.
//
// Configuration is layered: defaults, then dataops.yaml, then DATAOPS_*
// environment variables, then CLI flags, highest last.
package config

// AWSConfig holds shared AWS client settings.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

// StorageConfig selects the object store backing datasets and exports.
type StorageConfig struct {
	Driver    string `koanf:"driver"`
	Bucket    string `koanf:"bucket"`
	Root      string `koanf:"root"`
	PathStyle bool   `koanf:"path_style"`
}

// DatasetConfig describes one editable dataset.
type DatasetConfig struct {
	Key       string `koanf:"key"`
	KeyColumn string `koanf:"key_column"`
	TopicARN  string `koanf:"topic_arn"`
}

// ServerConfig holds dashboard server settings. The session secret is
// read from the named environment variable, never from the file.
type ServerConfig struct {
	Port             int    `koanf:"port"`
	SessionSecretEnv string `koanf:"session_secret_env"`
	Watch            bool   `koanf:"watch"`
	// SecureCookies is off by default: the server speaks plain HTTP
	// unless fronted by TLS termination.
	SecureCookies bool `koanf:"secure_cookies"`
}

// SecretsConfig names the secrets used by the toolkit.
type SecretsConfig struct {
	LoginSecretID string `koanf:"login_secret_id"`
	DBSecretID    string `koanf:"db_secret_id"`
}

// CostsConfig holds cost report defaults.
type CostsConfig struct {
	Workers   int    `koanf:"workers"`
	JobColumn string `koanf:"job_column"`
}

// Config holds all CLI configuration options.
type Config struct {
	AWS          AWSConfig                `koanf:"aws"`
	Storage      StorageConfig            `koanf:"storage"`
	Datasets     map[string]DatasetConfig `koanf:"datasets"`
	Server       ServerConfig             `koanf:"server"`
	Secrets      SecretsConfig            `koanf:"secrets"`
	Costs        CostsConfig              `koanf:"costs"`
	StatePath    string                   `koanf:"state_path"`
	Verbose      bool                     `koanf:"verbose"`
	OutputFormat string                   `koanf:"output"`
}

// Default configuration values.
const (
	DefaultStateFile        = ".dataops/state.db"
	DefaultOutput           = "table"
	DefaultPort             = 8765
	DefaultSessionSecretEnv = "DATAOPS_SESSION_SECRET"
	DefaultCostWorkers      = 8
	DefaultJobColumn        = "job_name"
)
