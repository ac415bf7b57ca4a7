// Package config holds the converter's run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/netisu/i3m"
)

// Config is a converter run configuration.
type Config struct {
	// Source is the directory searched for source files.
	Source string `toml:"source" yaml:"source"`

	// Dest is the directory that mirrors Source with converted files.
	Dest string `toml:"dest" yaml:"dest"`

	// Extensions are the source file extensions to convert.
	Extensions []string `toml:"extensions" yaml:"extensions"`

	// TargetExt replaces the source extension on output files.
	TargetExt string `toml:"target_ext" yaml:"target_ext"`

	Concurrency  int    `toml:"concurrency" yaml:"concurrency"`
	DryRun       bool   `toml:"dry_run" yaml:"dry_run"`
	Verbose      bool   `toml:"verbose" yaml:"verbose"`
	Watch        bool   `toml:"watch" yaml:"watch"`
	ValidateMesh bool   `toml:"validate_mesh" yaml:"validate_mesh"`
	LogFormat    string `toml:"log_format" yaml:"log_format"` // text or json
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Extensions:  []string{".gltf", ".glb", ".ntsm"},
		TargetExt:   i3m.Ext,
		Concurrency: 4,
		LogFormat:   "text",
	}
}

// Load returns the default configuration overlaid with the file at
// path. The format is picked from the extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()
	p, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = fmt.Errorf("unknown config format %q", filepath.Ext(p))
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ExpandPaths resolves a leading ~ in the directory paths.
func (c *Config) ExpandPaths() error {
	var err error
	if c.Source, err = homedir.Expand(c.Source); err != nil {
		return err
	}
	c.Dest, err = homedir.Expand(c.Dest)
	return err
}

// Validate reports the first invalid setting.
// It normalizes extensions to lower case with a leading dot.
func (c *Config) Validate() error {
	switch {
	case c.Source == "":
		return errors.New("source directory is required")
	case c.Dest == "":
		return errors.New("destination directory is required")
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	case len(c.Extensions) == 0:
		return errors.New("no source extensions")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	for i, ext := range c.Extensions {
		n, err := normExt(ext)
		if err != nil {
			return err
		}
		c.Extensions[i] = n
	}
	n, err := normExt(c.TargetExt)
	if err != nil {
		return fmt.Errorf("target %w", err)
	}
	c.TargetExt = n
	for _, ext := range c.Extensions {
		if ext == c.TargetExt {
			return fmt.Errorf("target extension %s is also a source extension", ext)
		}
	}
	return nil
}

func normExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if len(ext) < 2 || strings.ContainsAny(ext[1:], `./\`) {
		return "", fmt.Errorf("extension %q is invalid", ext)
	}
	return ext, nil
}
