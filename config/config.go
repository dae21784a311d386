// Package config holds the runner's own configuration: where run data
// lives, how parallel stages execute, which shell run steps use, and
// where sealed env files and artifact storage are found.
//
// Configuration resolves in three layers: built-in defaults, an optional
// YAML file, and SLUICE_* environment variables on top. Object-store
// credentials stay environment-only (SLUICE_MINIO_*) so they never land
// in a config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/sluiceworks/sluice/executor"
	"github.com/sluiceworks/sluice/fs"
	"github.com/sluiceworks/sluice/internal/env"
)

// Store backends.
const (
	// StoreLocal keeps artifacts in a directory under the data dir.
	StoreLocal = "local"

	// StoreMinio keeps artifacts in an S3-compatible bucket configured
	// through SLUICE_MINIO_* variables.
	StoreMinio = "minio"
)

// DefaultMaxParallel bounds concurrent jobs within a stage when nothing
// configures it.
const DefaultMaxParallel = 4

// Config is the runner's resolved configuration.
type Config struct {
	// DataDir is where run workspaces and local artifacts live.
	DataDir string `yaml:"data-dir,omitempty"`

	// MaxParallel bounds concurrent jobs within a stage.
	MaxParallel int `yaml:"max-parallel,omitempty"`

	// Shell runs `run:` steps that name no shell of their own.
	Shell string `yaml:"shell,omitempty"`

	// EnvFile is a sealed env file whose entries are resolved as secrets
	// and injected into job environments.
	EnvFile string `yaml:"env-file,omitempty"`

	// KeyFile holds the key that opens EnvFile.
	KeyFile string `yaml:"key-file,omitempty"`

	// Store selects and configures the artifact backend.
	Store StoreConfig `yaml:"store,omitempty"`
}

// StoreConfig configures artifact storage.
type StoreConfig struct {
	// Backend is StoreLocal or StoreMinio.
	Backend string `yaml:"backend,omitempty"`

	// Dir is the local backend's directory. Defaults to
	// <data-dir>/artifacts.
	Dir string `yaml:"dir,omitempty"`
}

// Default returns the built-in configuration: data under the XDG data
// home, the executor's default shell, and local artifact storage.
func Default() Config {
	return Config{
		DataDir:     filepath.Join(xdg.DataHome, "sluice"),
		MaxParallel: DefaultMaxParallel,
		Shell:       executor.DefaultShell,
		Store:       StoreConfig{Backend: StoreLocal},
	}
}

// Load reads a YAML config file and layers it over the defaults. Unknown
// fields are rejected so typos fail loudly instead of being ignored.
func Load(fsys fs.Filesystem, path string) (Config, error) {
	cfg := Default()

	data, err := fsys.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.applyDerived()
	return cfg, nil
}

// FromEnv returns the defaults with SLUICE_* environment overrides
// applied.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDerived()
	return cfg, nil
}

// Resolve loads the optional config file at path and applies environment
// overrides on top. An empty path skips the file layer.
func Resolve(fsys fs.Filesystem, path string) (Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load(fsys, path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration. All problems are collected
// into a single error.
func (c Config) Validate() error {
	var problems []string

	if c.DataDir == "" {
		problems = append(problems, "data-dir cannot be empty")
	}
	if c.MaxParallel < 1 {
		problems = append(problems, "max-parallel must be at least 1")
	}
	if c.Shell == "" {
		problems = append(problems, "shell cannot be empty")
	}
	switch c.Store.Backend {
	case StoreLocal, StoreMinio:
	default:
		problems = append(problems, fmt.Sprintf("store backend %q is not %q or %q",
			c.Store.Backend, StoreLocal, StoreMinio))
	}
	if c.EnvFile != "" && c.KeyFile == "" {
		problems = append(problems, "env-file requires key-file")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid runner configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// applyEnv overrides fields from SLUICE_* variables.
func (c *Config) applyEnv() error {
	c.DataDir = env.String("SLUICE_DATA_DIR", c.DataDir)
	c.Shell = env.String("SLUICE_SHELL", c.Shell)
	c.EnvFile = env.String("SLUICE_ENV_FILE", c.EnvFile)
	c.KeyFile = env.String("SLUICE_KEY_FILE", c.KeyFile)
	c.Store.Backend = env.String("SLUICE_STORE_BACKEND", c.Store.Backend)
	c.Store.Dir = env.String("SLUICE_STORE_DIR", c.Store.Dir)

	maxParallel, err := env.Int("SLUICE_MAX_PARALLEL", c.MaxParallel)
	if err != nil {
		return err
	}
	c.MaxParallel = maxParallel
	return nil
}

// applyDerived fills fields whose defaults depend on other fields.
func (c *Config) applyDerived() {
	if c.Store.Backend == StoreLocal && c.Store.Dir == "" {
		c.Store.Dir = filepath.Join(c.DataDir, "artifacts")
	}
}
