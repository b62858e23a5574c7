package checker

import (
	"bytes"
	"net/http"
	"strings"
)

// bannerHeaders are reported after Server, in this order.
var bannerHeaders = []string{"x-powered-by", "x-aspnet-version", "x-frame-options"}

// extractBanner summarizes the headers that identify the server stack.
func extractBanner(h http.Header) string {
	var parts []string

	if server := h.Get("Server"); server != "" {
		parts = append(parts, "Server: "+server)
	}
	for _, name := range bannerHeaders {
		if v := h.Get(name); v != "" {
			parts = append(parts, name+": "+v)
		}
	}

	if len(parts) == 0 {
		return UnknownBanner
	}
	return strings.Join(parts, " | ")
}

var (
	titleOpen  = []byte("<title>")
	titleClose = []byte("</title>")
)

// extractTitle returns the trimmed text between the first <title> and the
// first </title> that follows it. Tag matching ignores case.
func extractTitle(body []byte) string {
	lower := asciiLower(body)

	start := bytes.Index(lower, titleOpen)
	if start < 0 {
		return NoTitle
	}
	start += len(titleOpen)

	end := bytes.Index(lower[start:], titleClose)
	if end < 0 {
		return NoTitle
	}

	title := strings.TrimSpace(string(body[start : start+end]))
	if title == "" {
		return NoTitle
	}
	return title
}

// asciiLower lowercases ASCII letters only, so offsets into the result are
// valid offsets into b.
func asciiLower(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
