package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    []string
		wantErr string
	}{
		{
			name:    "Text",
			file:    "urls.txt",
			content: "https://a.com\r\n\n  https://b.com  \nhttps://a.com\n",
			want:    []string{"https://a.com", "https://b.com"},
		},
		{
			name:    "UnknownExtensionIsText",
			file:    "urls",
			content: "https://a.com\nb.com\n",
			want:    []string{"https://a.com", "b.com"},
		},
		{
			name: "Markdown",
			file: "README.md",
			content: "# Links\n\n" +
				"See [docs](https://docs.example.com) and ![logo](https://cdn.example.com/logo.png).\n\n" +
				"Bare https://bare.example.com here.\n\n" +
				"[relative](./other.md) [mail](mailto:a@b.c) [anchor](#top)\n\n" +
				"```\nhttps://in-code.example.com\n```\n\n" +
				"[again](https://docs.example.com)\n",
			want: []string{
				"https://docs.example.com",
				"https://cdn.example.com/logo.png",
				"https://bare.example.com",
			},
		},
		{
			name:    "YAML",
			file:    "targets.yaml",
			content: "urls:\n  - https://a.com\n  - https://b.com\n  - https://a.com\n",
			want:    []string{"https://a.com", "https://b.com"},
		},
		{
			name:    "YMLEmpty",
			file:    "targets.yml",
			content: "\n",
			want:    []string{},
		},
		{
			name:    "TOML",
			file:    "targets.toml",
			content: "urls = [\"https://a.com\", \"https://b.com\"]\n",
			want:    []string{"https://a.com", "https://b.com"},
		},
		{
			name:    "JSONObject",
			file:    "targets.json",
			content: `{"urls": ["https://a.com", " ", "https://b.com"]}`,
			want:    []string{"https://a.com", "https://b.com"},
		},
		{
			name:    "JSONArray",
			file:    "targets.JSON",
			content: `["https://a.com"]`,
			want:    []string{"https://a.com"},
		},
		{
			name:    "InvalidYAML",
			file:    "bad.yaml",
			content: "urls: [unclosed",
			wantErr: "invalid YAML",
		},
		{
			name:    "InvalidTOML",
			file:    "bad.toml",
			content: "urls = [",
			wantErr: "invalid TOML",
		},
		{
			name:    "JSONWithoutURLs",
			file:    "bad.json",
			content: `{"targets": []}`,
			wantErr: "invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, tt.file, tt.content)
			got, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDedup(t *testing.T) {
	t.Parallel()

	got := Dedup([]string{"b", " a ", "", "b", "a", "c"})
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	assert.IsType(t, markdownLoader{}, r.ForFile("x.MD"))
	assert.IsType(t, yamlLoader{}, r.ForFile("dir/x.yml"))
	assert.IsType(t, textLoader{}, r.ForFile("x.csv"))

	assert.Equal(t,
		[]string{"json", "list", "markdown", "md", "toml", "txt", "yaml", "yml"},
		r.SupportedTypes())
}

type upperLoader struct{}

func (upperLoader) Extensions() []string { return []string{"up"} }

func (upperLoader) Extract([]byte) ([]string, error) {
	return []string{"HTTPS://UP.EXAMPLE"}, nil
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(upperLoader{})

	got, err := r.Load(writeFile(t, "x.up", "ignored"))
	require.NoError(t, err)
	assert.Equal(t, []string{"HTTPS://UP.EXAMPLE"}, got)
}
