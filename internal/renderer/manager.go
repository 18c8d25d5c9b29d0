package renderer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/internal/ports"
	"github.com/alpha-og/treefrog/pkg/runtime"
)

const (
	// ContainerName is the single well-known container instance the
	// manager owns. External callers must not issue raw runtime commands
	// against this name while the manager is active.
	ContainerName = "treefrog-renderer"

	// containerPort is the fixed port the compiler backend listens on
	// inside the container.
	containerPort = 8080

	// Health-check policy: poll /health until the backend answers 200.
	healthMaxAttempts    = 30
	healthPollInterval   = 200 * time.Millisecond
	healthRequestTimeout = time.Second

	// nearbyPortSpan bounds the search around an occupied configured port
	// before falling back to the ephemeral range.
	nearbyPortSpan = 10

	// reconcileTimeout caps the live inspect probe in GetStatus so a
	// wedged daemon cannot stall UI status polling.
	reconcileTimeout = 2 * time.Second

	// teardownTimeout bounds cleanup of a container whose health check
	// failed or whose Start was canceled.
	teardownTimeout = 10 * time.Second

	diskCheckTimeout = 10 * time.Second

	// dockerDataDir is where the runtime stores images and container
	// layers; disk checks target it first.
	dockerDataDir = "/var/lib/docker"
)

// Manager owns the lifecycle of the local renderer container: start, stop,
// health checking, status reconciliation and system cleanup. It is the sole
// mutator of the named container and of the renderer configuration.
//
// Start and Stop are serialized behind one mutex; Start holds it for the
// entire provisioning pipeline, so callers must invoke it off the UI thread.
type Manager struct {
	mu     sync.Mutex
	cfg    *config.Config
	runner runtime.Runner
	docker *runtime.Client

	provisioner ImageProvisioner
	httpClient  *http.Client

	// injectable for tests
	portAvailable  func(int) bool
	sleep          func(ctx context.Context, d time.Duration) error
	healthAttempts int
	healthInterval time.Duration

	// runtime state, never persisted
	starting       atomic.Bool
	startSnap      atomic.Value
	running        bool
	logs           logBuffer
	dockerVersion  string
	versionOK      bool
	versionChecked bool
}

// startSnapshot freezes the config fields the building-state status path
// reports. GetStatus must never read cfg directly while Start is in flight:
// Start mutates cfg.Port without releasing the manager lock.
type startSnapshot struct {
	mode config.Mode
	port int
}

// NewManager creates a manager that executes real docker commands.
func NewManager(cfg *config.Config) *Manager {
	return NewManagerWithRunner(cfg, runtime.NewExecRunner())
}

// NewManagerWithRunner creates a manager on top of the given process
// runner. Tests use this with a mock runner.
func NewManagerWithRunner(cfg *config.Config, runner runtime.Runner) *Manager {
	docker := runtime.NewClient(runner)
	m := &Manager{
		cfg:            cfg,
		runner:         runner,
		docker:         docker,
		httpClient:     &http.Client{},
		portAvailable:  ports.IsAvailable,
		sleep:          sleepContext,
		healthAttempts: healthMaxAttempts,
		healthInterval: healthPollInterval,
	}
	m.provisioner = NewProvisioner(docker, cfg, &m.logs)
	return m
}

// Start provisions and launches the renderer container, blocking until the
// backend answers its health check or a step fails. On success the chosen
// port has been written back to the configuration; callers must re-read it.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startSnap.Store(startSnapshot{mode: m.cfg.Mode, port: m.cfg.Port})
	m.starting.Store(true)
	defer m.starting.Store(false)

	m.logs.Reset()

	if !m.docker.Installed() {
		return fmt.Errorf("%w: %s not found on PATH", ErrRuntimeNotInstalled, m.docker.Binary())
	}

	version, err := m.docker.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine runtime version: %w", err)
	}
	m.dockerVersion = version
	m.versionChecked = true
	if err := runtime.CheckVersion(version); err != nil {
		m.versionOK = false
		return fmt.Errorf("%w: %v", ErrRuntimeVersionTooOld, err)
	}
	m.versionOK = true

	if err := m.provisioner.EnsureImage(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrImagePreparationFailed, err)
	}

	port, err := m.resolvePort()
	if err != nil {
		return err
	}
	if port != m.cfg.Port {
		log.Info().Int("configured", m.cfg.Port).Int("chosen", port).Msg("Configured port unavailable, rewriting")
	}
	m.cfg.Port = port

	m.removeExisting(ctx)

	// a failed or canceled docker run may still have created the container
	// daemon-side; tear it down so nothing keeps running unmanaged
	if err := m.startContainerWithRetry(ctx, port); err != nil {
		m.teardown()
		return err
	}

	if err := m.waitForHealthy(ctx, port); err != nil {
		m.teardown()
		return err
	}

	m.running = true
	log.Info().Int("port", port).Msg("Renderer started")
	return nil
}

// Stop gracefully stops the renderer container. It is a no-op when the
// manager does not believe a container is running. The container itself is
// not removed; the next Start force-removes leftovers.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	out, err := m.docker.Stop(ctx, ContainerName)
	m.logs.Append(out)
	if err != nil {
		return fmt.Errorf("failed to stop renderer: %w", err)
	}

	m.running = false
	log.Info().Msg("Renderer stopped")
	return nil
}

// GetStatus derives a fresh status snapshot. The cached running flag is
// reconciled against the runtime's actual state: if the container vanished,
// the cache is silently corrected before the snapshot is built.
func (m *Manager) GetStatus() Status {
	if m.starting.Load() {
		snap, _ := m.startSnap.Load().(startSnapshot)
		return Status{
			State:   StateBuilding,
			Mode:    snap.mode,
			Message: "Local renderer is starting",
			Port:    snap.port,
			Logs:    m.logs.String(),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		alive, err := m.docker.IsContainerRunning(ctx, ContainerName)
		cancel()
		if err != nil || !alive {
			log.Warn().Err(err).Msg("Renderer container vanished, correcting cached state")
			m.running = false
		}
	}

	status := Status{
		Mode: m.cfg.Mode,
		Port: m.cfg.Port,
		Logs: m.logs.String(),
	}

	switch {
	case !m.docker.Installed():
		status.State = StateNotInstalled
		status.Message = "Docker is not installed. Install Docker to use the local renderer."
	case m.versionChecked && !m.versionOK:
		status.State = StateError
		status.Message = fmt.Sprintf("Docker version %s is older than the minimum supported %d.0",
			m.dockerVersion, runtime.MinSupportedMajor)
	case m.running:
		status.State = StateRunning
		status.Message = fmt.Sprintf("Local renderer running on port %d", m.cfg.Port)
	default:
		status.State = StateStopped
		status.Message = "Local renderer is stopped"
	}

	return status
}

// SyncState refreshes the cached running flag from the runtime's actual
// container state. A fresh process calls this once at startup to adopt a
// renderer container left running by a previous session.
func (m *Manager) SyncState(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.docker.Installed() {
		m.running = false
		return nil
	}

	alive, err := m.docker.IsContainerRunning(ctx, ContainerName)
	if err != nil {
		return fmt.Errorf("failed to sync renderer state: %w", err)
	}
	m.running = alive
	return nil
}

// DetectBestMode resolves the effective compile mode. A configured mode is
// returned unchanged; auto picks local when a container runtime is
// installed, remote otherwise.
func (m *Manager) DetectBestMode(ctx context.Context) config.Mode {
	_ = ctx

	m.mu.Lock()
	mode := m.cfg.Mode
	m.mu.Unlock()

	if mode != config.ModeAuto {
		return mode
	}
	if m.docker.Installed() {
		return config.ModeLocal
	}
	return config.ModeRemote
}

// CleanupSystem prunes stopped containers, unused images and unused
// networks. Cleanup is advisory: a failed step is logged as a warning and
// the remaining steps still run.
func (m *Manager) CleanupSystem(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	steps := []struct {
		name string
		fn   func(context.Context) ([]byte, error)
	}{
		{"containers", m.docker.PruneContainers},
		{"images", m.docker.PruneImages},
		{"networks", m.docker.PruneNetworks},
	}

	for _, step := range steps {
		out, err := step.fn(ctx)
		m.logs.Append(out)
		if err != nil {
			log.Warn().Err(err).Str("step", step.name).Msg("Prune step failed")
			m.logs.Appendf("warning: prune %s failed: %v\n", step.name, err)
		}
	}

	return nil
}

// CheckDiskSpace reports the bytes available on the filesystem holding the
// runtime's data directory, falling back to the root filesystem.
func (m *Manager) CheckDiskSpace() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), diskCheckTimeout)
	defer cancel()

	if out, err := m.runner.Run(ctx, "df", "-h", dockerDataDir); err == nil {
		if bytes, perr := parseAvailableBytes(out); perr == nil {
			return bytes, nil
		}
	}

	out, err := m.runner.Run(ctx, "df", "-h", "/")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDiskSpaceCheckFailed, err)
	}
	bytes, err := parseAvailableBytes(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDiskSpaceCheckFailed, err)
	}
	return bytes, nil
}

// Logs returns the captured output of the current run.
func (m *Manager) Logs() string {
	return m.logs.String()
}

// Config returns a copy of the current renderer configuration. Callers
// re-read it after Start to learn the actual port.
func (m *Manager) Config() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cfg
}

// SetPort updates the configured port, enforcing the valid range.
func (m *Manager) SetPort(port int) error {
	if err := ports.Validate(port); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Port = port
	return nil
}

// SetMode updates the compile mode. Switching to remote requires a URL
// accepted by IsValidRemoteTarget.
func (m *Manager) SetMode(mode config.Mode, remoteURL string) error {
	switch mode {
	case config.ModeAuto, config.ModeLocal:
	case config.ModeRemote:
		if !IsValidRemoteTarget(remoteURL) {
			return fmt.Errorf("invalid remote compiler URL %q: must be a public http(s) endpoint", remoteURL)
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Mode = mode
	if mode == config.ModeRemote {
		m.cfg.RemoteURL = remoteURL
	}
	return nil
}

// resolvePort picks the port the container binds to: the configured port if
// free, a nearby port within the span otherwise (+offset tried before
// -offset, out-of-range candidates skipped), then the ephemeral range.
func (m *Manager) resolvePort() (int, error) {
	preferred := m.cfg.Port

	if preferred > 0 && m.portAvailable(preferred) {
		return preferred, nil
	}

	for offset := 1; offset <= nearbyPortSpan; offset++ {
		for _, candidate := range []int{preferred + offset, preferred - offset} {
			if candidate < ports.MinPort || candidate > ports.MaxPort {
				continue
			}
			if m.portAvailable(candidate) {
				return candidate, nil
			}
		}
	}

	return ports.FindAvailableWith(0, m.portAvailable)
}

// removeExisting clears any zombie container left by a prior crashed run.
// A missing container is success; real failures are logged and the start
// attempt proceeds (docker run will surface a name conflict if one
// remains).
func (m *Manager) removeExisting(ctx context.Context) {
	out, err := m.docker.Stop(ctx, ContainerName)
	m.logs.Append(out)
	if err != nil {
		log.Debug().Err(err).Msg("No prior renderer container to stop")
	}

	out, err = m.docker.RemoveForce(ctx, ContainerName)
	m.logs.Append(out)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to remove prior renderer container")
	}
}

// startContainerWithRetry launches the container, retrying up to the
// configured budget. The inter-attempt sleep is the base delay times the
// backoff factor, applied flat rather than compounded per attempt.
func (m *Manager) startContainerWithRetry(ctx context.Context, port int) error {
	retries := m.cfg.EffectiveMaxRetries()
	delay := time.Duration(float64(m.cfg.EffectiveRetryDelay()) * m.cfg.EffectiveBackoffFactor())
	image := m.cfg.RuntimeImageRef()

	retryCtx, cancel := context.WithTimeout(ctx, m.cfg.EffectiveRetryTimeout())
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		out, err := m.docker.RunDetached(retryCtx, ContainerName, port, containerPort, image)
		m.logs.Append(out)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max", retries).Msg("Container start attempt failed")

		if attempt < retries {
			out, _ := m.docker.RemoveForce(retryCtx, ContainerName)
			m.logs.Append(out)
			if err := m.sleep(retryCtx, delay); err != nil {
				return fmt.Errorf("%w: canceled while retrying: %w", ErrContainerStartFailed, err)
			}
		}
	}

	return fmt.Errorf("%w after %d attempts on port %d: %w", ErrContainerStartFailed, retries, port, lastErr)
}

// waitForHealthy polls the backend's health endpoint until it answers 200.
func (m *Manager) waitForHealthy(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	for attempt := 1; attempt <= m.healthAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, healthRequestTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to build health request: %w", err)
		}

		resp, err := m.httpClient.Do(req)
		cancel()
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			if code == http.StatusOK {
				log.Debug().Int("attempt", attempt).Msg("Renderer backend healthy")
				return nil
			}
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: canceled: %w", ErrHealthCheckTimeout, ctx.Err())
		}
		if attempt < m.healthAttempts {
			if err := m.sleep(ctx, m.healthInterval); err != nil {
				return fmt.Errorf("%w: canceled: %w", ErrHealthCheckTimeout, err)
			}
		}
	}

	return fmt.Errorf("%w: backend on port %d not healthy after %d attempts", ErrHealthCheckTimeout, port, m.healthAttempts)
}

// teardown stops and removes the container after a failed or canceled
// start. It runs on a fresh context so cleanup happens even when the
// caller's context is already canceled.
func (m *Manager) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	out, err := m.docker.Stop(ctx, ContainerName)
	m.logs.Append(out)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to stop unhealthy renderer container")
	}

	out, err = m.docker.RemoveForce(ctx, ContainerName)
	m.logs.Append(out)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to remove unhealthy renderer container")
	}
}

// sleepContext sleeps for d unless the context is canceled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
