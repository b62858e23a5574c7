// Package urlutil turns raw form text into the structures the checker needs:
// newline-delimited URL lists and "Key: Value" header lines.
package urlutil

import "strings"

const (
	httpsPrefix = "https://"
	httpPrefix  = "http://"
)

// Protocol labels returned by Protocol.
const (
	ProtocolHTTPS   = "HTTPS"
	ProtocolHTTP    = "HTTP"
	ProtocolUnknown = "unknown"
)

// ParseURLList splits text on newlines, trims every line and drops blank ones.
// Order is preserved.
func ParseURLList(text string) []string {
	lines := strings.Split(text, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// ParseHeaders parses one "Key: Value" pair per line.
// Lines are split on the first colon only, so values may contain colons.
// Lines with an empty key or value are skipped without error.
// A later duplicate key overwrites an earlier one.
func ParseHeaders(text string) map[string]string {
	headers := map[string]string{}
	if strings.TrimSpace(text) == "" {
		return headers
	}

	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

// Protocol reports the scheme of url by prefix match only.
func Protocol(url string) string {
	switch {
	case strings.HasPrefix(url, httpsPrefix):
		return ProtocolHTTPS
	case strings.HasPrefix(url, httpPrefix):
		return ProtocolHTTP
	default:
		return ProtocolUnknown
	}
}

// OriginalInput strips a leading http:// or https:// from url.
func OriginalInput(url string) string {
	if rest, ok := strings.CutPrefix(url, httpsPrefix); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(url, httpPrefix); ok {
		return rest
	}
	return url
}
