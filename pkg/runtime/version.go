package runtime

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// MinSupportedMajor is the oldest docker major version the renderer backend
// is known to work with.
const MinSupportedMajor = 19

// CheckVersion validates a daemon version string against the supported
// minimum.
func CheckVersion(raw string) error {
	v, err := semver.NewVersion(normalizeVersion(strings.TrimSpace(raw)))
	if err != nil {
		return fmt.Errorf("failed to parse runtime version %q: %w", raw, err)
	}
	if v.Major() < MinSupportedMajor {
		return fmt.Errorf("runtime version %s is older than minimum supported %d.0", v, MinSupportedMajor)
	}
	return nil
}

// normalizeVersion strips the zero padding docker puts in version segments
// (19.03.13, 18.09.2), which strict semver parsing rejects. Pre-release and
// build suffixes are left untouched.
func normalizeVersion(raw string) string {
	core := raw
	var suffix string
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core, suffix = core[:i], core[i:]
	}

	parts := strings.Split(core, ".")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" && part != "" {
			trimmed = "0"
		}
		if trimmed != "" {
			parts[i] = trimmed
		}
	}
	return strings.Join(parts, ".") + suffix
}
