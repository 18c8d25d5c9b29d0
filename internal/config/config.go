package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/alpha-og/treefrog/internal/ports"
)

// Mode selects where LaTeX compilation happens.
type Mode string

const (
	// ModeAuto resolves to local or remote depending on whether a
	// container runtime is available on the host.
	ModeAuto Mode = "auto"
	// ModeLocal compiles in the managed local container.
	ModeLocal Mode = "local"
	// ModeRemote sends builds to a user-configured remote compiler.
	ModeRemote Mode = "remote"
)

// ImageSource selects where the renderer image is obtained from.
type ImageSource string

const (
	ImageSourceRegistry ImageSource = "registry"
	ImageSourceEmbedded ImageSource = "embedded"
	ImageSourceCustom   ImageSource = "custom"
)

// Defaults for the renderer configuration. Retry fields fall back to these
// whenever a stored value is zero.
const (
	DefaultPort               = 8080
	DefaultImageRef           = "ghcr.io/alpha-og/treefrog-texlive:latest"
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = time.Second
	DefaultRetryBackoffFactor = 2.0
	DefaultRetryTimeout       = 5 * time.Minute
)

// Config describes the desired renderer setup. The lifecycle manager is the
// only writer; in particular it may rewrite Port when the configured port
// turns out to be taken.
type Config struct {
	Mode           Mode        `mapstructure:"mode"`
	Port           int         `mapstructure:"port"`
	RemoteURL      string      `mapstructure:"remote_url"`
	ImageSource    ImageSource `mapstructure:"image_source"`
	ImageRef       string      `mapstructure:"image_ref"`
	CustomRegistry string      `mapstructure:"custom_registry"`
	CustomTarPath  string      `mapstructure:"custom_tar_path"`

	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	RetryBackoffFactor float64       `mapstructure:"retry_backoff_factor"`
	RetryTimeout       time.Duration `mapstructure:"retry_timeout"`
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Mode:               ModeAuto,
		Port:               DefaultPort,
		ImageSource:        ImageSourceRegistry,
		ImageRef:           DefaultImageRef,
		MaxRetries:         DefaultMaxRetries,
		RetryDelay:         DefaultRetryDelay,
		RetryBackoffFactor: DefaultRetryBackoffFactor,
		RetryTimeout:       DefaultRetryTimeout,
	}
}

// Load reads the renderer section from the viper-managed config file,
// applying defaults for anything unset.
func Load() (*Config, error) {
	viper.SetDefault("renderer.mode", string(ModeAuto))
	viper.SetDefault("renderer.port", DefaultPort)
	viper.SetDefault("renderer.image_source", string(ImageSourceRegistry))
	viper.SetDefault("renderer.image_ref", DefaultImageRef)
	viper.SetDefault("renderer.max_retries", DefaultMaxRetries)
	viper.SetDefault("renderer.retry_delay", DefaultRetryDelay)
	viper.SetDefault("renderer.retry_backoff_factor", DefaultRetryBackoffFactor)
	viper.SetDefault("renderer.retry_timeout", DefaultRetryTimeout)

	var cfg Config
	if err := viper.UnmarshalKey("renderer", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode renderer config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the current renderer settings back to the config file, so a
// port rewritten during Start survives restarts.
func (c *Config) Save() error {
	viper.Set("renderer.mode", string(c.Mode))
	viper.Set("renderer.port", c.Port)
	viper.Set("renderer.remote_url", c.RemoteURL)
	viper.Set("renderer.image_source", string(c.ImageSource))
	viper.Set("renderer.image_ref", c.ImageRef)
	viper.Set("renderer.custom_registry", c.CustomRegistry)
	viper.Set("renderer.custom_tar_path", c.CustomTarPath)
	viper.Set("renderer.max_retries", c.MaxRetries)
	viper.Set("renderer.retry_delay", c.RetryDelay)
	viper.Set("renderer.retry_backoff_factor", c.RetryBackoffFactor)
	viper.Set("renderer.retry_timeout", c.RetryTimeout)

	if err := viper.WriteConfig(); err != nil {
		if err := viper.SafeWriteConfig(); err != nil {
			return fmt.Errorf("unable to persist renderer config: %w", err)
		}
	}

	log.Debug().Int("port", c.Port).Str("mode", string(c.Mode)).Msg("Renderer config persisted")
	return nil
}

// Validate checks enum fields, port bounds and the retry policy.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("renderer.mode must be one of: auto, local, remote (got %q)", c.Mode)
	}

	switch c.ImageSource {
	case ImageSourceRegistry, ImageSourceEmbedded, ImageSourceCustom:
	default:
		return fmt.Errorf("renderer.image_source must be one of: registry, embedded, custom (got %q)", c.ImageSource)
	}

	if err := ports.Validate(c.Port); err != nil {
		return err
	}

	if c.ImageSource == ImageSourceCustom && c.CustomRegistry == "" {
		return fmt.Errorf("renderer.custom_registry is required when image_source is custom")
	}
	if c.ImageSource == ImageSourceEmbedded && c.CustomTarPath == "" {
		return fmt.Errorf("renderer.custom_tar_path is required when image_source is embedded")
	}

	if c.MaxRetries < 0 || c.RetryDelay < 0 || c.RetryBackoffFactor < 0 || c.RetryTimeout < 0 {
		return fmt.Errorf("renderer retry settings must not be negative")
	}

	return nil
}

// EffectiveMaxRetries returns the retry count, substituting the default for
// zero.
func (c *Config) EffectiveMaxRetries() int {
	if c.MaxRetries == 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

// EffectiveRetryDelay returns the base inter-attempt delay, substituting
// the default for zero.
func (c *Config) EffectiveRetryDelay() time.Duration {
	if c.RetryDelay == 0 {
		return DefaultRetryDelay
	}
	return c.RetryDelay
}

// EffectiveBackoffFactor returns the flat backoff multiplier, substituting
// the default for zero.
func (c *Config) EffectiveBackoffFactor() float64 {
	if c.RetryBackoffFactor == 0 {
		return DefaultRetryBackoffFactor
	}
	return c.RetryBackoffFactor
}

// EffectiveRetryTimeout returns the overall retry deadline, substituting
// the default for zero.
func (c *Config) EffectiveRetryTimeout() time.Duration {
	if c.RetryTimeout == 0 {
		return DefaultRetryTimeout
	}
	return c.RetryTimeout
}

// RuntimeImageRef resolves which image reference the container actually
// runs, depending on the configured image source.
func (c *Config) RuntimeImageRef() string {
	if c.ImageSource == ImageSourceCustom && c.CustomRegistry != "" {
		return c.CustomRegistry
	}
	if c.ImageRef == "" {
		return DefaultImageRef
	}
	return c.ImageRef
}
