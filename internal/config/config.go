// Package config loads and validates transmission-remote options from
// defaults, an optional YAML or TOML file, and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	tremote "github.com/steven-gardiner/transmission-remote"
	"github.com/steven-gardiner/transmission-remote/internal/transmission"
)

// ErrInvalidOption is wrapped by every validation failure.
var ErrInvalidOption = errors.New("invalid option")

// Renderer names.
const (
	RendererNative   = "native"
	RendererExternal = "external"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 120

// Config holds every option of one invocation.
type Config struct {
	Host     string   `yaml:"host" toml:"host"`
	Port     int      `yaml:"port" toml:"port"`
	Auth     string   `yaml:"auth" toml:"auth"`
	Width    int      `yaml:"width" toml:"width"`
	List     bool     `yaml:"list" toml:"list"`
	Reverse  []bool   `yaml:"reverse" toml:"reverse"`
	Columns  []string `yaml:"columns" toml:"columns"`
	SortBy   []string `yaml:"sortby" toml:"sortby"`
	Renderer string   `yaml:"renderer" toml:"renderer"`
	Format   string   `yaml:"format" toml:"format"`
	Border   string   `yaml:"border" toml:"border"`
	Header   bool     `yaml:"header" toml:"header"`
	Timeout  string   `yaml:"timeout" toml:"timeout"`
	Verbose  bool     `yaml:"verbose" toml:"verbose"`
}

// Default returns the built-in defaults. Width, Columns, and SortBy stay
// empty and are resolved in Normalize.
func Default() Config {
	return Config{
		Host:     "localhost",
		Port:     transmission.DefaultPort,
		Renderer: RendererNative,
		Format:   string(tremote.FormatTable),
		Border:   "none",
		Timeout:  transmission.DefaultTimeout.String(),
	}
}

// DefaultPaths lists the files Load checks when no path is given.
func DefaultPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".config", "transmission-remote")
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.toml"),
	}
}

// Load reads path into a copy of the defaults. An empty path tries
// DefaultPaths; a missing file is not an error. It returns the config, the
// resolved path, and whether a file was read.
func Load(path string) (Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return Config{}, "", false, err
	}
	if !exists {
		return cfg, resolved, false, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, "", false, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(resolved, data, &cfg); err != nil {
		return Config{}, "", false, err
	}
	return cfg, resolved, true, nil
}

// Decode parses data into cfg, picking TOML for .toml files and YAML for
// everything else.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return nil
}

func resolvePath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}
	for _, p := range DefaultPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
	}
	return "", false, nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// Normalize fills empty column and sort lists from reg and an unset width
// with DefaultWidth.
func (c *Config) Normalize(reg *tremote.Registry) {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if len(c.Columns) == 0 {
		c.Columns = reg.DefaultColumns()
	}
	if len(c.SortBy) == 0 {
		c.SortBy = reg.DefaultSortBy()
	}
	c.Host = strings.TrimSpace(c.Host)
}

// Validate checks every option against reg.
func (c Config) Validate(reg *tremote.Registry) error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidOption)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidOption, c.Port)
	}
	if c.Width < 1 {
		return fmt.Errorf("%w: width must be positive, got %d", ErrInvalidOption, c.Width)
	}
	if err := reg.Validate(c.Columns); err != nil {
		return fmt.Errorf("%w: column: %w", ErrInvalidOption, err)
	}
	if err := reg.Validate(c.SortBy); err != nil {
		return fmt.Errorf("%w: sortby: %w", ErrInvalidOption, err)
	}
	if c.Renderer != RendererNative && c.Renderer != RendererExternal {
		return fmt.Errorf("%w: renderer %q (want %s or %s)", ErrInvalidOption, c.Renderer, RendererNative, RendererExternal)
	}
	if _, err := tremote.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if _, err := tremote.ParseBorder(c.Border); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses Timeout.
func (c Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %w", ErrInvalidOption, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidOption, d)
	}
	return d, nil
}

// HostSpec returns the daemon address and credentials.
func (c Config) HostSpec() (transmission.HostSpec, error) {
	timeout, err := c.TimeoutDuration()
	if err != nil {
		return transmission.HostSpec{}, err
	}
	spec := transmission.HostSpec{Host: c.Host, Port: c.Port, Timeout: timeout}
	if c.Auth != "" {
		spec.Username, spec.Password = transmission.ParseAuth(c.Auth)
	}
	return spec, nil
}

// Plan builds the render plan for the configured columns and sort keys.
func (c Config) Plan(reg *tremote.Registry) (tremote.Plan, error) {
	plan, err := reg.NewPlan(c.Columns, c.SortBy, c.Reverse, c.Width)
	if err != nil {
		return tremote.Plan{}, err
	}
	border, err := tremote.ParseBorder(c.Border)
	if err != nil {
		return tremote.Plan{}, err
	}
	plan.Border = border
	plan.Header = c.Header
	return plan, nil
}
