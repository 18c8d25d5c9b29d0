package renderer

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/alpha-og/treefrog/internal/config"
	"github.com/alpha-og/treefrog/pkg/runtime"
)

// ImageProvisioner guarantees the renderer image exists locally before a
// container starts. Implementations must be idempotent; the manager calls
// EnsureImage before every Start.
type ImageProvisioner interface {
	EnsureImage(ctx context.Context) error
}

// Provisioner obtains the renderer image according to the configured image
// source: a registry pull for registry and custom sources, a docker load
// for the embedded tar. It never builds images.
type Provisioner struct {
	docker *runtime.Client
	cfg    *config.Config
	fs     afero.Fs
	out    io.Writer
}

// NewProvisioner creates a provisioner that writes command output to out.
func NewProvisioner(docker *runtime.Client, cfg *config.Config, out io.Writer) *Provisioner {
	return &Provisioner{
		docker: docker,
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		out:    out,
	}
}

// EnsureImage makes the runtime image available locally, skipping work when
// it is already present.
func (p *Provisioner) EnsureImage(ctx context.Context) error {
	ref := p.cfg.RuntimeImageRef()

	if p.docker.ImageExists(ctx, ref) {
		log.Debug().Str("image", ref).Msg("Renderer image already present")
		return nil
	}

	switch p.cfg.ImageSource {
	case config.ImageSourceRegistry, config.ImageSourceCustom:
		log.Info().Str("image", ref).Msg("Pulling renderer image")
		out, err := p.docker.PullImage(ctx, ref)
		p.out.Write(out)
		if err != nil {
			return err
		}

	case config.ImageSourceEmbedded:
		tarPath := p.cfg.CustomTarPath
		if exists, err := afero.Exists(p.fs, tarPath); err != nil || !exists {
			return fmt.Errorf("renderer image archive not found at %s", tarPath)
		}
		log.Info().Str("path", tarPath).Msg("Loading renderer image from archive")
		out, err := p.docker.LoadImage(ctx, tarPath)
		p.out.Write(out)
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown image source %q", p.cfg.ImageSource)
	}

	return nil
}
