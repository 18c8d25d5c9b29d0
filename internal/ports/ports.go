package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	// MinPort is the lowest port a user may configure; privileged ports
	// are never used for the renderer backend.
	MinPort = 1024
	// MaxPort is the highest valid TCP port.
	MaxPort = 65535

	// EphemeralStart and EphemeralEnd bound the fallback scan range.
	EphemeralStart = 49152
	EphemeralEnd   = 65535
)

var (
	// ErrInvalidPort is returned for ports outside [MinPort, MaxPort].
	ErrInvalidPort = errors.New("invalid port")
	// ErrNoPortAvailable is returned when the whole ephemeral range is
	// exhausted.
	ErrNoPortAvailable = errors.New("no available port found")
)

// Validate checks that a configured port falls inside the allowed range.
func Validate(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidPort, port, MinPort, MaxPort)
	}
	return nil
}

// IsAvailable reports whether a TCP listener can currently be bound on the
// loopback interface at the given port. The bind is released immediately;
// this is a best-effort check for a single-user desktop tool, not a
// reservation.
func IsAvailable(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// FindAvailable returns the preferred port when it is free, otherwise the
// first free port in the ephemeral range.
func FindAvailable(preferred int) (int, error) {
	return FindAvailableWith(preferred, IsAvailable)
}

// FindAvailableWith is FindAvailable with an injectable availability
// oracle, so callers and tests can avoid real binds.
func FindAvailableWith(preferred int, available func(int) bool) (int, error) {
	if preferred > 0 && available(preferred) {
		return preferred, nil
	}
	for port := EphemeralStart; port <= EphemeralEnd; port++ {
		if available(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w in range %d-%d", ErrNoPortAvailable, EphemeralStart, EphemeralEnd)
}
