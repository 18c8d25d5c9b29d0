package main

import (
	"os"

	"github.com/alpha-og/treefrog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
