// Package config builds the per-run CheckConfig sent to the backend and
// loads the optional .webcheckrc.yaml / .webcheckrc.toml defaults file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config file names searched for, in order of preference.
const (
	DefaultConfigFileName = ".webcheckrc.yaml"
	AltYAMLFileName       = ".webcheckrc.yml"
	TOMLConfigFileName    = ".webcheckrc.toml"
)

var configFileNames = []string{DefaultConfigFileName, AltYAMLFileName, TOMLConfigFileName}

// Config represents the complete configuration structure.
type Config struct {
	Check   CheckSection  `yaml:"check" toml:"check"`
	Ignore  IgnoreConfig  `yaml:"ignore" toml:"ignore"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	History HistoryConfig `yaml:"history" toml:"history"`
}

// CheckSection holds the form defaults and checker tuning.
type CheckSection struct {
	UserAgent   string            `yaml:"user_agent" toml:"user_agent"`
	Cookie      string            `yaml:"cookie" toml:"cookie"`
	Headers     map[string]string `yaml:"headers" toml:"headers"`
	Timeout     int               `yaml:"timeout" toml:"timeout"`
	Concurrency int               `yaml:"concurrency" toml:"concurrency"`
	Retries     int               `yaml:"retries" toml:"retries"`
}

// IgnoreConfig holds all ignore rules.
type IgnoreConfig struct {
	// Domains to ignore (automatically includes subdomains).
	Domains []string `yaml:"domains" toml:"domains"`

	// Patterns are glob patterns for URL matching, e.g. "*.local/*".
	Patterns []string `yaml:"patterns" toml:"patterns"`

	// Regex are regular expression patterns for URL matching.
	Regex []string `yaml:"regex" toml:"regex"`
}

// OutputConfig holds report defaults.
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"`
}

// HistoryConfig points at the run history database.
type HistoryConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoadFrom reads configuration from a specific path.
// The format is chosen by extension; anything that is not .toml is YAML.
// Returns an empty config if the file doesn't exist (not an error).
// Returns an error only if the file exists but cannot be parsed.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// FindAndLoad searches for a config file starting from the given directory
// and walking up to parent directories until it finds one or reaches root.
func FindAndLoad(startDir string) (*Config, error) {
	dir := startDir

	for {
		for _, name := range configFileNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return LoadFrom(configPath)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return &Config{}, nil
		}
		dir = parent
	}
}

// Validate reports the first invalid value in the config.
func (c *Config) Validate() error {
	if c.Check.Timeout < 0 {
		return fmt.Errorf("check.timeout must not be negative, got %d", c.Check.Timeout)
	}
	if c.Check.Concurrency < 0 {
		return fmt.Errorf("check.concurrency must not be negative, got %d", c.Check.Concurrency)
	}
	if c.Check.Retries < 0 {
		return fmt.Errorf("check.retries must not be negative, got %d", c.Check.Retries)
	}
	for _, p := range c.Ignore.Regex {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("ignore.regex %q: %w", p, err)
		}
	}
	if c.Output.Format != "" && !slices.Contains(reportFormats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("output.format %q is not one of %s", c.Output.Format, strings.Join(reportFormats, ", "))
	}
	return nil
}

// reportFormats mirrors the formats the output package accepts.
var reportFormats = []string{"json", "yaml", "xml", "junit", "markdown"}

// IsEmpty returns true if the config sets nothing at all.
func (c *Config) IsEmpty() bool {
	return c.Check.UserAgent == "" &&
		c.Check.Cookie == "" &&
		len(c.Check.Headers) == 0 &&
		c.Check.Timeout == 0 &&
		c.Check.Concurrency == 0 &&
		c.Check.Retries == 0 &&
		len(c.Ignore.Domains) == 0 &&
		len(c.Ignore.Patterns) == 0 &&
		len(c.Ignore.Regex) == 0 &&
		c.Output.Format == "" &&
		c.History.Path == ""
}

// Merge combines ignore rules from another config into this one (additive).
// Used to merge CLI flags with file config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	c.Ignore.Domains = append(c.Ignore.Domains, other.Ignore.Domains...)
	c.Ignore.Patterns = append(c.Ignore.Patterns, other.Ignore.Patterns...)
	c.Ignore.Regex = append(c.Ignore.Regex, other.Ignore.Regex...)
}

// HeadersText renders the configured headers as "Key: Value" lines,
// the same shape the form field uses.
func (c *Config) HeadersText() string {
	if len(c.Check.Headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.Check.Headers))
	for k := range c.Check.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + c.Check.Headers[k]
	}
	return strings.Join(lines, "\n")
}
