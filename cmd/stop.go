package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/renderer"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the local renderer container",
	Run:   runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	mgr := renderer.NewManager(cfg)
	ctx := context.Background()

	// A fresh process starts with an empty state cache; adopt whatever
	// container a previous session left running before stopping it.
	if err := mgr.SyncState(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to query renderer state")
	}

	if err := mgr.Stop(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to stop renderer")
	}

	log.Info().Msg("Renderer stopped")
}
