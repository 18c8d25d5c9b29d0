package renderer

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// parseAvailableBytes extracts the "available" column from df -h output and
// converts it to a byte count. df reports 1024-based suffixes (K/M/G),
// which is exactly what units.RAMInBytes parses.
func parseAvailableBytes(out []byte) (int64, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("unexpected df output: %q", string(out))
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return 0, fmt.Errorf("unexpected df columns: %q", lines[1])
	}

	avail := fields[3]
	bytes, err := units.RAMInBytes(avail)
	if err != nil {
		return 0, fmt.Errorf("failed to parse available space %q: %w", avail, err)
	}

	return bytes, nil
}
