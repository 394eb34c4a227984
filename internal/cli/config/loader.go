package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// Package-level config file tracking.
var configFileUsed string

// GetConfigFileUsed returns the path of the config file last loaded, or
// empty when defaults only were used.
func GetConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile finds the config file to use.
// Priority: explicit path > dataops.yaml > dataops.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("dataops.yaml"); err == nil {
		return "dataops.yaml"
	}
	if _, err := os.Stat("dataops.yml"); err == nil {
		return "dataops.yml"
	}
	return ""
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"storage.driver":            "s3",
		"server.port":               DefaultPort,
		"server.session_secret_env": DefaultSessionSecretEnv,
		"server.watch":              true,
		"costs.workers":             DefaultCostWorkers,
		"costs.job_column":          DefaultJobColumn,
		"state_path":                DefaultStateFile,
		"verbose":                   false,
		"output":                    DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables (DATAOPS_ prefix).
	// Transform: DATAOPS_AWS__REGION -> aws.region; double underscore
	// separates nesting so that keys like state_path stay intact.
	if err := k.Load(env.Provider("DATAOPS_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "DATAOPS_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			switch f.Name {
			case "region":
				return "aws.region", posflag.FlagVal(flags, f)
			case "endpoint":
				return "aws.endpoint", posflag.FlagVal(flags, f)
			case "bucket":
				return "storage.bucket", posflag.FlagVal(flags, f)
			case "driver":
				return "storage.driver", posflag.FlagVal(flags, f)
			case "state":
				return "state_path", posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the CLI's slog logger; verbose switches to debug
// level. Logs go to stderr so command output stays pipeable.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context, falling back to a
// default stderr logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return NewLogger(false)
}
