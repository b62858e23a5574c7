// Package targets reads the list of URLs to check from a file. The file
// format is picked by extension; plain text is one URL per line.
package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/leonardomso/webcheck/internal/urlutil"
)

// Loader extracts target URLs from file content of one format.
type Loader interface {
	// Extensions returns the handled extensions, with the leading dot.
	Extensions() []string

	// Extract returns URLs in document order. Duplicates are allowed.
	Extract(content []byte) ([]string, error)
}

// Registry maps file extensions to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
	// fallback handles unknown extensions.
	fallback Loader
}

// NewRegistry returns a registry with every built-in format.
func NewRegistry() *Registry {
	r := &Registry{loaders: map[string]Loader{}, fallback: textLoader{}}
	r.Register(textLoader{})
	r.Register(markdownLoader{})
	r.Register(yamlLoader{})
	r.Register(tomlLoader{})
	r.Register(jsonLoader{})
	return r
}

// Register adds l for all its extensions, replacing earlier registrations.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[normalizeExtension(ext)] = l
	}
}

// ForFile returns the loader for path. Unknown extensions fall back to
// plain text.
func (r *Registry) ForFile(path string) Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.loaders[normalizeExtension(filepath.Ext(path))]; ok {
		return l
	}
	return r.fallback
}

// SupportedTypes returns the registered extensions without the dot, sorted.
func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		types = append(types, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(types)
	return types
}

// Load reads path and returns its targets, de-duplicated with the first
// occurrence kept.
func (r *Registry) Load(path string) ([]string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		return nil, fmt.Errorf("reading targets: %w", err)
	}
	urls, err := r.ForFile(path).Extract(content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Dedup(urls), nil
}

var defaultRegistry = NewRegistry()

// Load reads targets from path with the built-in formats.
func Load(path string) ([]string, error) {
	return defaultRegistry.Load(path)
}

// SupportedTypes lists the built-in formats.
func SupportedTypes() []string {
	return defaultRegistry.SupportedTypes()
}

// Dedup trims each URL, drops blanks and keeps the first occurrence of
// each remaining value.
func Dedup(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func isHTTPURL(u string) bool {
	return urlutil.Protocol(u) != urlutil.ProtocolUnknown
}

// textLoader reads one URL per line, the same format as the form's target box.
type textLoader struct{}

func (textLoader) Extensions() []string { return []string{".txt", ".list"} }

func (textLoader) Extract(content []byte) ([]string, error) {
	return urlutil.ParseURLList(strings.ReplaceAll(string(content), "\r\n", "\n")), nil
}
