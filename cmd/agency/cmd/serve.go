package cmd

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/content-agency/internal/api"
	"github.com/hugo-lorenzo-mato/content-agency/internal/config"
	"github.com/hugo-lorenzo-mato/content-agency/internal/diagnostics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the HTTP API. Projects created through POST /api/v1/projects run in
the background; poll /status and /content for progress.

Examples:
  # Start with defaults (0.0.0.0:8000)
  agency serve

  # Custom port, JSON state file
  AGENCY_STATE_BACKEND=json agency serve --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host address to bind to")
	serveCmd.Flags().IntP("port", "p", 8000, "Port to listen on")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	if loader.Watch(func(next *config.Config) {
		logger.SetLevel(next.Log.Level)
		logger.Info("config reloaded", "log_level", next.Log.Level)
	}, func(err error) {
		logger.Warn("ignoring invalid config change", "error", err)
	}) {
		logger.Info("watching config file", "file", loader.ConfigFile())
	}

	srv := api.NewServer(a.store, a.runner, a.checkpoints,
		api.WithLogger(logger),
		api.WithMetrics(a.metrics),
		api.WithDiagnostics(diagnostics.NewCollector(storeDir(cfg))),
		api.WithVersion(appVersion),
		api.WithQualityThreshold(cfg.Workflow.QualityThreshold),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithConfigCheck(func() error { return credentialsError(cfg) }),
	)

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	fmt.Fprintf(cmd.OutOrStdout(), "agency API listening on http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
}

// credentialsError reports missing provider keys as a config problem.
func credentialsError(c *config.Config) error {
	if missing := c.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("missing credentials: %v", missing)
	}
	return nil
}
