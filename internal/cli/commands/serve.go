package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edp-labs/dataops/internal/auth"
	"github.com/edp-labs/dataops/internal/cli/config"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/notify"
	"github.com/edp-labs/dataops/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		port    int
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dataset editing dashboard",
		Long: `Serve the web dashboard: session-based login against the configured
secret, dataset load/edit/review/save, save history, metrics, and the
help chat. The dataset configuration is reloaded when the config file
changes unless watching is disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			logger := config.GetLogger(cmd.Context())
			ctx := cmd.Context()

			if cfg.Secrets.LoginSecretID == "" {
				return fmt.Errorf("no login secret configured; set secrets.login_secret_id")
			}
			sessionSecret := os.Getenv(cfg.Server.SessionSecretEnv)
			if sessionSecret == "" {
				return fmt.Errorf("session secret env %s is empty", cfg.Server.SessionSecretEnv)
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			audit, err := openState(cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			provider, err := secretProvider(ctx, cfg)
			if err != nil {
				return err
			}
			authn := auth.New(provider, cfg.Secrets.LoginSecretID, logger)

			var publisher dataset.Publisher
			if p, err := notify.NewPublisherFromRegion(ctx, cfg.AWS.Region, logger); err != nil {
				logger.Warn("notifications disabled", "error", err)
			} else {
				publisher = p
			}

			svc := dataset.New(store, audit, publisher, datasetDefinitions(cfg), logger)

			if port == 0 {
				port = cfg.Server.Port
			}
			configPath := config.GetConfigFileUsed()
			server := web.NewServer(web.Config{
				Datasets:      svc,
				Auth:          authn,
				Audit:         audit,
				Port:          port,
				SessionSecret: sessionSecret,
				SecureCookies: cfg.Server.SecureCookies,
				ConfigPath:    configPath,
				Watch:         cfg.Server.Watch && !noWatch && configPath != "",
				Reload: func() error {
					fresh, err := config.LoadConfig(configPath, nil)
					if err != nil {
						return err
					}
					svc.SetDefinitions(datasetDefinitions(fresh))
					return nil
				},
				Logger: logger,
			})
			return server.Serve(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable config file watching")
	return cmd
}
