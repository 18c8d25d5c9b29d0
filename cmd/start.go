package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/renderer"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the local renderer container",
	Long: `Provision the renderer image if needed, start the renderer container and
wait until its health check passes. The chosen port is written back to the
config file when it differs from the configured one.`,
	Run: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	mgr := renderer.NewManager(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("image", cfg.RuntimeImageRef()).Int("port", cfg.Port).Msg("Starting local renderer...")

	if err := mgr.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start renderer")
	}

	current := mgr.Config()
	if err := current.Save(); err != nil {
		log.Warn().Err(err).Msg("Failed to persist renderer config")
	}

	log.Info().Int("port", current.Port).Msg("Renderer is ready")
}
