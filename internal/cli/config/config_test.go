package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dataops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Nil(t, cfg)

	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultJobColumn, cfg.Costs.JobColumn)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-1
storage:
  driver: fs
  root: /tmp/data
datasets:
  customers:
    key: datasets/customers.csv
    key_column: row_id
    topic_arn: arn:aws:sns:eu-west-1:123:changes
server:
  port: 9000
secrets:
  login_secret_id: dashboard/login
state_path: /var/lib/dataops/state.db
`)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "fs", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/data", cfg.Storage.Root)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "dashboard/login", cfg.Secrets.LoginSecretID)
	assert.Equal(t, "/var/lib/dataops/state.db", cfg.StatePath)

	require.Contains(t, cfg.Datasets, "customers")
	ds := cfg.Datasets["customers"]
	assert.Equal(t, "datasets/customers.csv", ds.Key)
	assert.Equal(t, "row_id", ds.KeyColumn)
	assert.Equal(t, "arn:aws:sns:eu-west-1:123:changes", ds.TopicARN)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "aws:\n  region: eu-west-1\n")
	t.Setenv("DATAOPS_AWS__REGION", "us-east-2")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "us-east-2", cfg.AWS.Region)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, "aws:\n  region: eu-west-1\n")
	t.Setenv("DATAOPS_AWS__REGION", "us-east-2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("region", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--region", "ap-south-1", "--state", "/tmp/state.db"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, "/tmp/state.db", cfg.StatePath)
}

func TestLoadConfigUnsetFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("region", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Empty(t, cfg.AWS.Region)
}
