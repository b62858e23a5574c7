package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/session"
	"github.com/leonardomso/webcheck/internal/targets"
)

// LoadedConfig wraps a loaded configuration and provides helper methods
// for getting effective values that respect CLI overrides.
type LoadedConfig struct {
	cfg      *config.Config
	noConfig bool
}

// LoadConfig finds the nearest config file unless noConfig is true, then
// applies .env and WEBCHECK_* overrides. Returns an error if the config
// file exists but is invalid.
func LoadConfig(noConfig bool) (*LoadedConfig, error) {
	cfg := &config.Config{}
	if !noConfig {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		cfg, err = config.FindAndLoad(wd)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(config.DefaultEnvFileName); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &LoadedConfig{cfg: cfg, noConfig: noConfig}, nil
}

// Config returns the underlying config for direct access.
func (lc *LoadedConfig) Config() *config.Config {
	return lc.cfg
}

// GetConcurrency returns the effective concurrency.
// CLI overrides config if it differs from the default.
func (lc *LoadedConfig) GetConcurrency(cliValue, defaultValue int) int {
	if cliValue != defaultValue {
		return cliValue // CLI explicitly set
	}
	if lc.cfg.Check.Concurrency > 0 {
		return lc.cfg.Check.Concurrency
	}
	return defaultValue
}

// GetTimeout returns the effective timeout in seconds.
// CLI overrides config if it differs from the default.
func (lc *LoadedConfig) GetTimeout(cliValue, defaultValue int) int {
	if cliValue != defaultValue {
		return cliValue // CLI explicitly set
	}
	if lc.cfg.Check.Timeout > 0 {
		return lc.cfg.Check.Timeout
	}
	return defaultValue
}

// GetRetries returns the effective retry count.
// CLI overrides config if it differs from the default.
func (lc *LoadedConfig) GetRetries(cliValue, defaultValue int) int {
	if cliValue != defaultValue {
		return cliValue // CLI explicitly set
	}
	if lc.cfg.Check.Retries > 0 {
		return lc.cfg.Check.Retries
	}
	return defaultValue
}

// GetUserAgent returns the effective User-Agent.
// CLI overrides config if it differs from the default.
func (lc *LoadedConfig) GetUserAgent(cliValue, defaultValue string) string {
	if cliValue != defaultValue {
		return cliValue
	}
	if lc.cfg.Check.UserAgent != "" {
		return lc.cfg.Check.UserAgent
	}
	return defaultValue
}

// GetCookie returns the effective cookie. CLI overrides config if set.
func (lc *LoadedConfig) GetCookie(cliValue string) string {
	if cliValue != "" {
		return cliValue
	}
	return lc.cfg.Check.Cookie
}

// GetHeadersText returns the config headers followed by the CLI headers as
// "Key: Value" lines. Later lines win, so CLI headers override the config.
func (lc *LoadedConfig) GetHeadersText(cliHeaders []string) string {
	lines := make([]string, 0, len(cliHeaders)+1)
	if text := lc.cfg.HeadersText(); text != "" {
		lines = append(lines, text)
	}
	lines = append(lines, cliHeaders...)
	return strings.Join(lines, "\n")
}

// GetOutputFormat returns the effective output format.
// CLI overrides config if set.
func (lc *LoadedConfig) GetOutputFormat(cliValue string) string {
	if cliValue != "" {
		return cliValue // CLI explicitly set
	}
	return lc.cfg.Output.Format
}

// GetHistoryPath returns the run history database, or "" when disabled.
// CLI overrides config if set.
func (lc *LoadedConfig) GetHistoryPath(cliValue string) string {
	if cliValue != "" {
		return cliValue
	}
	return lc.cfg.History.Path
}

// FormState builds the initial session form from the effective settings.
func (lc *LoadedConfig) FormState(targetText string, opts FormOptions) session.State {
	st := session.DefaultState()
	st.Targets = targetText
	st.UserAgent = lc.GetUserAgent(opts.UserAgent, config.DefaultUserAgent)
	st.Cookie = lc.GetCookie(opts.Cookie)
	st.Timeout = strconv.Itoa(lc.GetTimeout(opts.Timeout, config.DefaultTimeout))
	st.Headers = lc.GetHeadersText(opts.Headers)
	return st
}

// FormOptions holds the request flags shared by check and interactive.
type FormOptions struct {
	UserAgent string
	Cookie    string
	Timeout   int
	Headers   []string
}

// CreateFilterWithConfig builds a URL filter using a pre-loaded config.
// CLI flags are merged additively with the config settings.
// Returns nil if no filter rules are defined.
func CreateFilterWithConfig(cfg *config.Config, cliDomains, cliPatterns, cliRegex []string) (*filter.Filter, error) {
	merged := config.Config{Ignore: config.IgnoreConfig{
		Domains:  slices.Clone(cfg.Ignore.Domains),
		Patterns: slices.Clone(cfg.Ignore.Patterns),
		Regex:    slices.Clone(cfg.Ignore.Regex),
	}}
	merged.Merge(&config.Config{Ignore: config.IgnoreConfig{
		Domains:  cliDomains,
		Patterns: cliPatterns,
		Regex:    cliRegex,
	}})

	fc := filter.FromIgnoreConfig(merged.Ignore)
	if len(fc.Domains) == 0 && len(fc.GlobPatterns) == 0 && len(fc.RegexPatterns) == 0 {
		return nil, nil
	}
	return filter.New(fc)
}

// logSettings records, at debug level, where the effective settings came
// from and how many ignore rules are active.
func logSettings(log *zap.Logger, lc *LoadedConfig, urlFilter *filter.Filter) {
	switch {
	case lc.noConfig:
		log.Debug("config file skipped")
	case lc.cfg.IsEmpty():
		log.Debug("no config file or WEBCHECK_* overrides, using defaults")
	}

	if urlFilter == nil {
		return
	}
	domains, globs, regexes := urlFilter.Stats()
	log.Debug("ignore rules loaded",
		zap.Int("domains", domains),
		zap.Int("patterns", globs),
		zap.Int("regex", regexes))
}

// CollectTargets merges URL arguments with the URLs of a target file,
// keeping the first occurrence of each.
func CollectTargets(args []string, file string) ([]string, error) {
	urls := append([]string{}, args...)
	if file != "" {
		fromFile, err := targets.Load(file)
		if err != nil {
			return nil, fmt.Errorf("loading targets: %w", err)
		}
		urls = append(urls, fromFile...)
	}
	return targets.Dedup(urls), nil
}
