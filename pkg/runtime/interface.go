package runtime

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=../../internal/testutils/mocks/runner_mock.go -package=mocks

// Runner executes external commands. Every interaction with the container
// runtime goes through this interface so tests never have to invoke a real
// docker binary.
type Runner interface {
	// Run executes the named binary with the given arguments and returns
	// the combined stdout+stderr output. A non-zero exit status is
	// reported as an error alongside whatever output was produced.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath reports where the named binary resolves on PATH.
	LookPath(name string) (string, error)
}
