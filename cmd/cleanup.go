package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/renderer"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune unused runtime resources",
	Long: `Remove stopped containers, unused images and unused networks from the
container runtime. Failed steps are reported as warnings; cleanup is
best-effort.`,
	Run: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	mgr := renderer.NewManager(cfg)

	if err := mgr.CleanupSystem(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Cleanup failed")
	}

	log.Info().Msg("Cleanup finished")
}
