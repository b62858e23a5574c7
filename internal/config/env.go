package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvUserAgent = "WEBCHECK_USER_AGENT"
	EnvCookie    = "WEBCHECK_COOKIE"
	EnvTimeout   = "WEBCHECK_TIMEOUT"
	EnvHistory   = "WEBCHECK_HISTORY"
)

// DefaultEnvFileName is the dotenv file read by ApplyEnv.
const DefaultEnvFileName = ".env"

// ApplyEnv overlays values from envFile and then from the process
// environment onto c. The process environment wins over the file.
// A missing envFile is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	values := map[string]string{}

	if envFile != "" {
		fileValues, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			values = fileValues
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	for _, key := range []string{EnvUserAgent, EnvCookie, EnvTimeout, EnvHistory} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	return c.applyValues(values)
}

func (c *Config) applyValues(values map[string]string) error {
	if v, ok := values[EnvUserAgent]; ok && v != "" {
		c.Check.UserAgent = v
	}
	if v, ok := values[EnvCookie]; ok {
		c.Check.Cookie = v
	}
	if v, ok := values[EnvTimeout]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", EnvTimeout, v)
		}
		c.Check.Timeout = n
	}
	if v, ok := values[EnvHistory]; ok && v != "" {
		c.History.Path = v
	}
	return nil
}
