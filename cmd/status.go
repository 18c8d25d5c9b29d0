package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/renderer"
)

var showLogs bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show renderer status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&showLogs, "logs", false, "include captured renderer logs")
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	mgr := renderer.NewManager(cfg)

	if err := mgr.SyncState(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to query renderer state")
	}

	status := mgr.GetStatus()

	fmt.Printf("State:   %s\n", status.State)
	fmt.Printf("Mode:    %s\n", status.Mode)
	fmt.Printf("Port:    %d\n", status.Port)
	fmt.Printf("Message: %s\n", status.Message)

	if showLogs && status.Logs != "" {
		fmt.Printf("\nLogs:\n%s", status.Logs)
	}
}
