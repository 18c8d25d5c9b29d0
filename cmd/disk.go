package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/renderer"
)

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Show disk space available to the container runtime",
	Run:   runDisk,
}

func init() {
	rootCmd.AddCommand(diskCmd)
}

func runDisk(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	mgr := renderer.NewManager(cfg)

	bytes, err := mgr.CheckDiskSpace()
	if err != nil {
		// degrade to unknown rather than failing hard
		log.Warn().Err(err).Msg("Could not determine available disk space")
		fmt.Println("Available disk space: unknown")
		return
	}

	fmt.Printf("Available disk space: %s\n", humanize.IBytes(uint64(bytes)))
}
