package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	t.Run("ValidFullYAML", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/valid_full.yaml")
		require.NoError(t, err)

		assert.Equal(t, "webcheck-test/1.0", cfg.Check.UserAgent)
		assert.Equal(t, "session=abc", cfg.Check.Cookie)
		assert.Equal(t, 10, cfg.Check.Timeout)
		assert.Equal(t, 8, cfg.Check.Concurrency)
		assert.Equal(t, 2, cfg.Check.Retries)
		assert.Equal(t, map[string]string{"X-Api-Key": "secret", "Accept": "text/html"}, cfg.Check.Headers)

		assert.Equal(t, []string{"example.com", "localhost"}, cfg.Ignore.Domains)
		assert.Equal(t, []string{"*.local/*"}, cfg.Ignore.Patterns)
		assert.Equal(t, []string{".*\\.test$"}, cfg.Ignore.Regex)
		assert.Equal(t, "json", cfg.Output.Format)
		assert.Equal(t, "history.db", cfg.History.Path)
	})

	t.Run("ValidFullTOML", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/valid_full.toml")
		require.NoError(t, err)

		assert.Equal(t, "webcheck-test/1.0", cfg.Check.UserAgent)
		assert.Equal(t, 10, cfg.Check.Timeout)
		assert.Equal(t, 8, cfg.Check.Concurrency)
		assert.Equal(t, map[string]string{"X-Api-Key": "secret"}, cfg.Check.Headers)
		assert.Equal(t, []string{"example.com"}, cfg.Ignore.Domains)
		assert.Equal(t, "markdown", cfg.Output.Format)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/empty.yaml")
		require.NoError(t, err)
		assert.True(t, cfg.IsEmpty())
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/invalid.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("FileNotExists", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/nonexistent.yaml")
		require.NoError(t, err) // Not an error, returns empty config
		require.NotNil(t, cfg)
		assert.True(t, cfg.IsEmpty())
	})

	t.Run("ExtraFields", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom("testdata/extra_fields.yaml")
		require.NoError(t, err)
		assert.Equal(t, []string{"example.com"}, cfg.Ignore.Domains)
	})

	t.Run("DirectoryInsteadOfFile", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadFrom(t.TempDir())
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestFindAndLoad(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, dir, name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	t.Run("FindsInCurrentDir", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, DefaultConfigFileName, "ignore:\n  domains:\n    - test.com\n")

		cfg, err := FindAndLoad(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"test.com"}, cfg.Ignore.Domains)
	})

	t.Run("FindsInParentDir", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		childDir := filepath.Join(tmpDir, "child")
		require.NoError(t, os.MkdirAll(childDir, 0o755))
		writeConfig(t, tmpDir, DefaultConfigFileName, "ignore:\n  domains:\n    - parent.com\n")

		cfg, err := FindAndLoad(childDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"parent.com"}, cfg.Ignore.Domains)
	})

	t.Run("FindsTOML", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, TOMLConfigFileName, "[check]\ntimeout = 7\n")

		cfg, err := FindAndLoad(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Check.Timeout)
	})

	t.Run("YAMLPreferredOverTOML", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeConfig(t, tmpDir, DefaultConfigFileName, "check:\n  timeout: 5\n")
		writeConfig(t, tmpDir, TOMLConfigFileName, "[check]\ntimeout = 7\n")

		cfg, err := FindAndLoad(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Check.Timeout)
	})

	t.Run("NotFoundReturnsEmpty", func(t *testing.T) {
		t.Parallel()
		cfg, err := FindAndLoad(t.TempDir())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.True(t, cfg.IsEmpty())
	})

	t.Run("CloserConfigTakesPrecedence", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		childDir := filepath.Join(tmpDir, "child")
		require.NoError(t, os.MkdirAll(childDir, 0o755))
		writeConfig(t, tmpDir, DefaultConfigFileName, "ignore:\n  domains:\n    - parent.com\n")
		writeConfig(t, childDir, DefaultConfigFileName, "ignore:\n  domains:\n    - child.com\n")

		cfg, err := FindAndLoad(childDir)
		require.NoError(t, err)
		assert.Contains(t, cfg.Ignore.Domains, "child.com")
		assert.NotContains(t, cfg.Ignore.Domains, "parent.com")
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"Empty", Config{}, false},
		{"Valid", Config{Check: CheckSection{Timeout: 5, Concurrency: 10, Retries: 1}}, false},
		{"NegativeTimeout", Config{Check: CheckSection{Timeout: -1}}, true},
		{"NegativeConcurrency", Config{Check: CheckSection{Concurrency: -1}}, true},
		{"NegativeRetries", Config{Check: CheckSection{Retries: -2}}, true},
		{"BadRegex", Config{Ignore: IgnoreConfig{Regex: []string{"[unclosed"}}}, true},
		{"KnownFormat", Config{Output: OutputConfig{Format: "JUnit"}}, false},
		{"UnknownFormat", Config{Output: OutputConfig{Format: "csv"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	t.Parallel()

	t.Run("MergesBothConfigs", func(t *testing.T) {
		t.Parallel()
		cfg1 := &Config{Ignore: IgnoreConfig{
			Domains:  []string{"domain1.com"},
			Patterns: []string{"pattern1"},
			Regex:    []string{"regex1"},
		}}
		cfg2 := &Config{Ignore: IgnoreConfig{
			Domains:  []string{"domain2.com"},
			Patterns: []string{"pattern2"},
			Regex:    []string{"regex2"},
		}}

		cfg1.Merge(cfg2)

		assert.Equal(t, []string{"domain1.com", "domain2.com"}, cfg1.Ignore.Domains)
		assert.Len(t, cfg1.Ignore.Patterns, 2)
		assert.Len(t, cfg1.Ignore.Regex, 2)
	})

	t.Run("MergeNilOther", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{Ignore: IgnoreConfig{Domains: []string{"domain.com"}}}
		cfg.Merge(nil)
		assert.Equal(t, []string{"domain.com"}, cfg.Ignore.Domains)
	})
}

func TestConfig_HeadersText(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Empty(t, cfg.HeadersText())

	cfg.Check.Headers = map[string]string{"X-B": "2", "X-A": "1"}
	assert.Equal(t, "X-A: 1\nX-B: 2", cfg.HeadersText())
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Run("DotenvFile", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.ApplyEnv("testdata/test.env"))

		assert.Equal(t, "from-dotenv/1.0", cfg.Check.UserAgent)
		assert.Equal(t, 12, cfg.Check.Timeout)
		assert.Equal(t, "runs.db", cfg.History.Path)
	})

	t.Run("ProcessEnvWins", func(t *testing.T) {
		t.Setenv(EnvTimeout, "3")
		t.Setenv(EnvCookie, "a=b")

		cfg := &Config{}
		require.NoError(t, cfg.ApplyEnv("testdata/test.env"))

		assert.Equal(t, 3, cfg.Check.Timeout)
		assert.Equal(t, "a=b", cfg.Check.Cookie)
		assert.Equal(t, "from-dotenv/1.0", cfg.Check.UserAgent)
	})

	t.Run("MissingFileIgnored", func(t *testing.T) {
		cfg := &Config{Check: CheckSection{Timeout: 9}}
		require.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), ".env")))
		assert.Equal(t, 9, cfg.Check.Timeout)
	})

	t.Run("InvalidTimeout", func(t *testing.T) {
		t.Setenv(EnvTimeout, "soon")

		cfg := &Config{}
		assert.Error(t, cfg.ApplyEnv(""))
	})
}
