// Package config reads the runtime settings from VOLUME_* environment
// variables.
package config

import (
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"

	"github.com/robert-malhotra/go-volume/volume"
)

// Prefix is prepended to every variable name.
const Prefix = "VOLUME_"

// Log formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// ByteSize is a byte count that also accepts units, e.g. "512MiB".
type ByteSize uint64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	if b == 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(b))
}

// Config holds the settings of a run.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"auto"`

	// Strict turns trimmed groups and rejected chunks into errors.
	Strict bool `env:"STRICT"`
	// MemoryLimit caps the bytes held by converted buffers; 0 is unlimited.
	MemoryLimit ByteSize `env:"MEMORY_LIMIT"`

	ChunkRequired []string `env:"CHUNK_REQUIRED" envSeparator:","`
	ImageRequired []string `env:"IMAGE_REQUIRED" envSeparator:","`
	PrimaryKeys   []string `env:"PRIMARY_KEYS" envSeparator:","`
	SecondaryKeys []string `env:"SECONDARY_KEYS" envSeparator:","`
	ImageKeys     []string `env:"IMAGE_KEYS" envSeparator:","`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that env cannot.
func (c Config) Validate() error {
	if !slices.Contains([]string{FormatAuto, FormatText, FormatJSON}, c.LogFormat) {
		return fmt.Errorf("invalid %sLOG_FORMAT %q", Prefix, c.LogFormat)
	}
	return nil
}

// VolumeOptions returns the assembly options. Lists left empty keep the
// defaults of the volume package.
func (c Config) VolumeOptions() []volume.Option {
	opts := []volume.Option{volume.WithStrict(c.Strict)}
	if len(c.PrimaryKeys) > 0 {
		opts = append(opts, volume.WithPrimaryKeys(c.PrimaryKeys...))
	}
	if len(c.SecondaryKeys) > 0 {
		opts = append(opts, volume.WithSecondaryKeys(c.SecondaryKeys...))
	}
	if len(c.ImageKeys) > 0 {
		opts = append(opts, volume.WithImageKeys(c.ImageKeys...))
	}
	if len(c.ChunkRequired) > 0 || len(c.ImageRequired) > 0 {
		req := volume.DefaultRequirements()
		if len(c.ChunkRequired) > 0 {
			req.Chunk = c.ChunkRequired
		}
		if len(c.ImageRequired) > 0 {
			req.Image = c.ImageRequired
		}
		opts = append(opts, volume.WithRequirements(req))
	}
	return opts
}
