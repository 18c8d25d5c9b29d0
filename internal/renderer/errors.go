package renderer

import "errors"

// Error kinds surfaced by the lifecycle manager. Callers match with
// errors.Is; every returned error wraps one of these with step context.
var (
	// ErrRuntimeNotInstalled means no container runtime binary was found
	// on PATH. Fatal for Start until the user installs one.
	ErrRuntimeNotInstalled = errors.New("container runtime is not installed")

	// ErrRuntimeVersionTooOld means the daemon predates the supported
	// minimum version.
	ErrRuntimeVersionTooOld = errors.New("container runtime version too old")

	// ErrImagePreparationFailed wraps provisioner failures. The manager
	// does not retry these; that responsibility stays with the
	// provisioner or the user.
	ErrImagePreparationFailed = errors.New("renderer image preparation failed")

	// ErrContainerStartFailed is returned after the start retry budget is
	// exhausted, wrapping the last underlying error.
	ErrContainerStartFailed = errors.New("renderer container failed to start")

	// ErrHealthCheckTimeout means the backend never answered the health
	// probe; the just-started container is torn down before this is
	// surfaced.
	ErrHealthCheckTimeout = errors.New("renderer health check timed out")

	// ErrDiskSpaceCheckFailed means df output could not be obtained or
	// parsed for either the runtime data directory or the root
	// filesystem. Non-fatal; callers degrade to an unknown reading.
	ErrDiskSpaceCheckFailed = errors.New("disk space check failed")
)
