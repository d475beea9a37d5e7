package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kenyafarmiot/farmdb/internal/bootstrap"
	"github.com/kenyafarmiot/farmdb/internal/config"
	"github.com/kenyafarmiot/farmdb/internal/server"
)

var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "serve",
	Short: "Migrate the database, then serve the health endpoint",
	Long: `Connect to the database, apply every pending migration, and serve
GET /api/health until interrupted. With on_failure "fatal" a failed
migration exits before listening; with "degraded" the server starts anyway
and reports itself degraded.`,
	RunE: runServe,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	serveCmd.Flags().String("listen-addr", "", "HTTP listen address (default :3000)")
	serveCmd.Flags().String("on-failure", "", "startup migration failure policy (fatal, degraded)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := *AppConfig

	if cmd.Flags().Changed("listen-addr") {
		cfg.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}

	if cmd.Flags().Changed("on-failure") {
		cfg.OnFailure, _ = cmd.Flags().GetString("on-failure")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := bootstrap.Run(ctx, &cfg, AppLogger, migrationSource(&cfg))
	if err != nil {
		return err
	}
	defer state.Close()

	if state.Degraded() {
		AppLogger.WithField("on_failure", config.OnFailureDegraded).Warn("serving with a degraded schema")
	}

	if err := server.New(cfg.ListenAddr, AppLogger, state).Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}

	return nil
}
