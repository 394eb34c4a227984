// Package commands implements the dataops subcommands.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/auth"
	"github.com/edp-labs/dataops/internal/blob"
	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/state"
)

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// getConfig retrieves the config from the command context.
func getConfig(cmd *cobra.Command) *config.Config {
	if c, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// openStore builds the configured object store.
func openStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	return blob.Open(ctx, blob.Config{
		Driver:    cfg.Storage.Driver,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.AWS.Region,
		Endpoint:  cfg.AWS.Endpoint,
		PathStyle: cfg.Storage.PathStyle,
		Root:      cfg.Storage.Root,
	})
}

// openState opens the audit database, creating its directory if needed.
func openState(cfg *config.Config) (state.Store, error) {
	if cfg.StatePath != ":memory:" {
		dir := filepath.Dir(cfg.StatePath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	return state.Open(cfg.StatePath)
}

// datasetDefinitions converts the config's dataset map.
func datasetDefinitions(cfg *config.Config) []dataset.Definition {
	defs := make([]dataset.Definition, 0, len(cfg.Datasets))
	for name, d := range cfg.Datasets {
		defs = append(defs, dataset.Definition{
			Name:      name,
			Key:       d.Key,
			KeyColumn: d.KeyColumn,
			TopicARN:  d.TopicARN,
		})
	}
	return defs
}

// secretProvider builds the Secrets Manager provider.
func secretProvider(ctx context.Context, cfg *config.Config) (auth.SecretProvider, error) {
	return auth.NewSecretsManager(ctx, cfg.AWS.Region)
}
