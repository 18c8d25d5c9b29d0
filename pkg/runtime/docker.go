package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultBinary is the container runtime CLI the client shells out to.
const DefaultBinary = "docker"

// Client wraps the docker CLI behind a Runner so that every invocation is
// mockable and its combined output can be captured by the caller.
type Client struct {
	runner Runner
	binary string
}

// NewClient creates a docker CLI client on top of the given Runner.
func NewClient(runner Runner) *Client {
	return &Client{
		runner: runner,
		binary: DefaultBinary,
	}
}

// Binary returns the CLI binary name the client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// Installed reports whether the runtime binary resolves on PATH.
func (c *Client) Installed() bool {
	_, err := c.runner.LookPath(c.binary)
	return err == nil
}

// ServerVersion returns the daemon version string, e.g. "24.0.7".
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.binary, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", c.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RunDetached starts a detached container bound to the loopback interface,
// mapping hostPort to containerPort.
func (c *Client) RunDetached(ctx context.Context, name string, hostPort, containerPort int, image string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, "run", "-d", "--rm",
		"-p", fmt.Sprintf("127.0.0.1:%d:%d", hostPort, containerPort),
		"--name", name, image)
	if err != nil {
		return out, fmt.Errorf("failed to run container %s: %w", name, err)
	}
	log.Debug().Str("container", name).Int("port", hostPort).Msg("Container started")
	return out, nil
}

// Stop gracefully stops a container by name.
func (c *Client) Stop(ctx context.Context, name string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, "stop", name)
	if err != nil {
		return out, fmt.Errorf("failed to stop container %s: %w", name, err)
	}
	return out, nil
}

// RemoveForce force-removes a container by name. A missing container is not
// an error.
func (c *Client) RemoveForce(ctx context.Context, name string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, "rm", "-f", name)
	if err != nil {
		if isNoSuchContainer(out) {
			return out, nil
		}
		return out, fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return out, nil
}

// IsContainerRunning inspects the container's live state.
func (c *Client) IsContainerRunning(ctx context.Context, name string) (bool, error) {
	out, err := c.runner.Run(ctx, c.binary, "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		if isNoSuchContainer(out) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// ImageExists reports whether an image reference is present locally.
func (c *Client) ImageExists(ctx context.Context, ref string) bool {
	_, err := c.runner.Run(ctx, c.binary, "image", "inspect", ref)
	return err == nil
}

// PullImage pulls an image reference from its registry.
func (c *Client) PullImage(ctx context.Context, ref string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, "pull", ref)
	if err != nil {
		return out, fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	log.Debug().Str("image", ref).Msg("Image pulled")
	return out, nil
}

// LoadImage loads an image from a local tar archive.
func (c *Client) LoadImage(ctx context.Context, tarPath string) ([]byte, error) {
	out, err := c.runner.Run(ctx, c.binary, "load", "-i", tarPath)
	if err != nil {
		return out, fmt.Errorf("failed to load image from %s: %w", tarPath, err)
	}
	return out, nil
}

// PruneContainers removes all stopped containers.
func (c *Client) PruneContainers(ctx context.Context) ([]byte, error) {
	return c.runner.Run(ctx, c.binary, "container", "prune", "-f")
}

// PruneImages removes unused images.
func (c *Client) PruneImages(ctx context.Context) ([]byte, error) {
	return c.runner.Run(ctx, c.binary, "image", "prune", "-f")
}

// PruneNetworks removes unused networks.
func (c *Client) PruneNetworks(ctx context.Context) ([]byte, error) {
	return c.runner.Run(ctx, c.binary, "network", "prune", "-f")
}

func isNoSuchContainer(out []byte) bool {
	return strings.Contains(strings.ToLower(string(out)), "no such container")
}
