// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// DefaultExtensions lists the image types scanned when the configuration
// does not override them: the formats that actually carry GPS EXIF in the
// wild.
var DefaultExtensions = []string{".jpg", ".jpeg", ".tif", ".tiff", ".heic", ".heif"}

var extensionRe = regexp.MustCompile(`^\.[a-z0-9]+$`)

// Config represents the root configuration file structure.
type Config struct {
	Extensions  []string   `yaml:"extensions,omitempty"`
	Concurrency int        `yaml:"concurrency,omitempty"`
	Thumbnails  Thumbnails `yaml:"thumbnails,omitempty"`
}

// Thumbnails holds thumbnail rendering settings.
type Thumbnails struct {
	MaxSize int `yaml:"max_size,omitempty"`
	Quality int `yaml:"quality,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Extensions:  append([]string(nil), DefaultExtensions...),
		Concurrency: 1,
		Thumbnails:  Thumbnails{MaxSize: 256, Quality: 85},
	}
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path returns defaults. File values overlay the defaults, so a
// partial file is fine.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Match(extensionRe))),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(128)),
	); err != nil {
		return err
	}
	return c.Thumbnails.Validate()
}

// Validate validates the thumbnail settings.
func (t *Thumbnails) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.MaxSize, validation.Required, validation.Min(16), validation.Max(4096)),
		validation.Field(&t.Quality, validation.Required, validation.Min(1), validation.Max(100)),
	)
}
