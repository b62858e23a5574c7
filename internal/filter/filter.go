// Package filter decides which targets are skipped before a check runs.
// Rules match by domain (subdomains included), glob or regular expression.
package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/leonardomso/webcheck/internal/config"
)

// Rule kinds reported in IgnoreReason.Type.
const (
	KindDomain  = "domain"
	KindPattern = "pattern"
	KindRegex   = "regex"
)

// IgnoreReason describes why a URL was skipped.
type IgnoreReason struct {
	Type string `json:"type" yaml:"type" xml:"type,attr"`
	Rule string `json:"rule" yaml:"rule" xml:"rule,attr"`
	URL  string `json:"url" yaml:"url" xml:",chardata"`
}

// Filter holds compiled ignore rules. It is immutable after New and safe
// for concurrent use.
type Filter struct {
	// domains are lowercase; each also matches its subdomains.
	domains map[string]bool

	globs   []compiledGlob
	regexes []compiledRegex
}

type compiledGlob struct {
	pattern  glob.Glob
	original string
}

type compiledRegex struct {
	pattern  *regexp.Regexp
	original string
}

// Config holds filter rules.
type Config struct {
	Domains       []string // Domains to ignore (includes subdomains)
	GlobPatterns  []string // Glob patterns (e.g., "*.local/*")
	RegexPatterns []string // Regex patterns (e.g., ".*\\.internal\\..*")
}

// FromIgnoreConfig converts the ignore section of a config file.
func FromIgnoreConfig(c config.IgnoreConfig) Config {
	return Config{
		Domains:       c.Domains,
		GlobPatterns:  c.Patterns,
		RegexPatterns: c.Regex,
	}
}

// New compiles cfg. Blank entries are skipped.
func New(cfg Config) (*Filter, error) {
	f := &Filter{domains: map[string]bool{}}

	for _, d := range cfg.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			f.domains[d] = true
		}
	}

	for _, p := range cfg.GlobPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		f.globs = append(f.globs, compiledGlob{pattern: g, original: p})
	}

	for _, p := range cfg.RegexPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", p, err)
		}
		f.regexes = append(f.regexes, compiledRegex{pattern: r, original: p})
	}

	return f, nil
}

// Match reports whether rawURL is ignored and by which rule.
// Rules are tried cheapest first: domain, glob, regex.
func (f *Filter) Match(rawURL string) (IgnoreReason, bool) {
	if f == nil {
		return IgnoreReason{}, false
	}
	if rule, ok := f.matchDomain(rawURL); ok {
		return IgnoreReason{Type: KindDomain, Rule: rule, URL: rawURL}, true
	}
	for _, g := range f.globs {
		if g.pattern.Match(rawURL) {
			return IgnoreReason{Type: KindPattern, Rule: g.original, URL: rawURL}, true
		}
	}
	for _, r := range f.regexes {
		if r.pattern.MatchString(rawURL) {
			return IgnoreReason{Type: KindRegex, Rule: r.original, URL: rawURL}, true
		}
	}
	return IgnoreReason{}, false
}

// Apply splits urls into the ones to check and the ones skipped, keeping
// the input order in both. A nil Filter keeps everything.
func (f *Filter) Apply(urls []string) (kept []string, ignored []IgnoreReason) {
	if !f.HasRules() {
		return urls, nil
	}
	kept = make([]string, 0, len(urls))
	for _, u := range urls {
		if reason, ok := f.Match(u); ok {
			ignored = append(ignored, reason)
			continue
		}
		kept = append(kept, u)
	}
	return kept, ignored
}

func (f *Filter) matchDomain(rawURL string) (string, bool) {
	if len(f.domains) == 0 {
		return "", false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}

	if f.domains[host] {
		return host, true
	}
	// "example.com" also covers "www.example.com".
	for domain := range f.domains {
		if strings.HasSuffix(host, "."+domain) {
			return domain, true
		}
	}
	return "", false
}

// HasRules returns true if the filter has any rules defined.
func (f *Filter) HasRules() bool {
	if f == nil {
		return false
	}
	return len(f.domains) > 0 || len(f.globs) > 0 || len(f.regexes) > 0
}

// Stats returns the number of rules of each kind.
func (f *Filter) Stats() (domains, globs, regexes int) {
	if f == nil {
		return 0, 0, 0
	}
	return len(f.domains), len(f.globs), len(f.regexes)
}
