// Package output renders check reports as JSON, YAML, XML, JUnit XML or
// Markdown and writes them to files.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/config"
	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/stats"
	"github.com/leonardomso/webcheck/internal/urlutil"
)

// Format represents an output format type.
type Format string

const (
	// FormatJSON outputs as JSON.
	FormatJSON Format = "json"
	// FormatYAML outputs as YAML.
	FormatYAML Format = "yaml"
	// FormatXML outputs as generic XML.
	FormatXML Format = "xml"
	// FormatJUnit outputs as JUnit XML for CI/CD integration.
	FormatJUnit Format = "junit"
	// FormatMarkdown outputs as a Markdown report.
	FormatMarkdown Format = "markdown"
)

// ValidFormats returns all valid format strings.
func ValidFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatXML),
		string(FormatJUnit),
		string(FormatMarkdown),
	}
}

// IsValidFormat checks if a format string is valid.
func IsValidFormat(s string) bool {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, FormatYAML, FormatXML, FormatJUnit, FormatMarkdown:
		return true
	default:
		return false
	}
}

// Report contains all data needed for output formatting.
type Report struct {
	GeneratedAt time.Time
	RunID       string
	Source      string
	Config      config.CheckConfig
	Summary     checker.Summary
	Results     []checker.Result
	Ignored     []filter.IgnoreReason

	// Stats is included when non-nil.
	Stats *stats.Stats
}

// NewReport builds a report for results and computes its summary.
func NewReport(cfg config.CheckConfig, results []checker.Result, ignored []filter.IgnoreReason) *Report {
	return &Report{
		GeneratedAt: time.Now().UTC(),
		Config:      cfg,
		Summary:     checker.Summarize(results),
		Results:     results,
		Ignored:     ignored,
	}
}

// Formatter is the interface that output formatters implement.
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// GetFormatter returns the appropriate formatter for a format.
func GetFormatter(format Format) (Formatter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatXML:
		return &XMLFormatter{}, nil
	case FormatJUnit:
		return &JUnitFormatter{}, nil
	case FormatMarkdown:
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// FormatReport formats a report using the specified format.
func FormatReport(report *Report, format Format) ([]byte, error) {
	formatter, err := GetFormatter(format)
	if err != nil {
		return nil, err
	}
	return formatter.Format(report)
}

// InferFormat determines the output format from a filename extension.
func InferFormat(filename string) (Format, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".junit.xml") {
		return FormatJUnit, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xml":
		return FormatXML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf(
			"cannot infer format from extension %q (supported: .json, .yaml, .yml, .xml, .junit.xml, .md, .markdown)",
			ext,
		)
	}
}

// WriteToFile writes a formatted report to a file.
func WriteToFile(report *Report, filename string) error {
	format, err := InferFormat(filename)
	if err != nil {
		return err
	}

	data, err := FormatReport(report, format)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// document is the shape shared by the JSON and YAML formats.
type document struct {
	GeneratedAt string                `json:"generated_at" yaml:"generated_at"`
	RunID       string                `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Source      string                `json:"source,omitempty" yaml:"source,omitempty"`
	Config      documentConfig        `json:"config" yaml:"config"`
	Summary     documentSummary       `json:"summary" yaml:"summary"`
	Results     []documentResult      `json:"results" yaml:"results"`
	Ignored     []filter.IgnoreReason `json:"ignored,omitempty" yaml:"ignored,omitempty"`
	Stats       map[string]any        `json:"stats,omitempty" yaml:"stats,omitempty"`
}

type documentConfig struct {
	UserAgent string            `json:"user_agent" yaml:"user_agent"`
	Cookie    string            `json:"cookie,omitempty" yaml:"cookie,omitempty"`
	Timeout   int               `json:"timeout" yaml:"timeout"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

type documentSummary struct {
	Total        int `json:"total" yaml:"total"`
	Alive        int `json:"alive" yaml:"alive"`
	Redirects    int `json:"redirects" yaml:"redirects"`
	ClientErrors int `json:"client_errors" yaml:"client_errors"`
	ServerErrors int `json:"server_errors" yaml:"server_errors"`
	Errors       int `json:"errors" yaml:"errors"`
	Ignored      int `json:"ignored,omitempty" yaml:"ignored,omitempty"`
}

type documentResult struct {
	URL           string `json:"url" yaml:"url"`
	Protocol      string `json:"protocol" yaml:"protocol"`
	OriginalInput string `json:"original_input" yaml:"original_input"`
	Status        string `json:"status" yaml:"status"`
	StatusCode    int    `json:"status_code" yaml:"status_code"`
	Title         string `json:"title" yaml:"title"`
	Banner        string `json:"banner" yaml:"banner"`
	ContentLength int    `json:"content_length" yaml:"content_length"`
	RedirectURL   string `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDocument(report *Report) document {
	cfg := report.Config.Redacted()
	doc := document{
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		RunID:       report.RunID,
		Source:      report.Source,
		Config: documentConfig{
			UserAgent: cfg.UserAgent,
			Cookie:    cfg.Cookie,
			Timeout:   cfg.Timeout,
			Headers:   cfg.Headers,
		},
		Summary: documentSummary{
			Total:        report.Summary.Total,
			Alive:        report.Summary.Alive,
			Redirects:    report.Summary.Redirects,
			ClientErrors: report.Summary.ClientErrors,
			ServerErrors: report.Summary.ServerErrors,
			Errors:       report.Summary.Errors,
			Ignored:      len(report.Ignored),
		},
		Results: make([]documentResult, 0, len(report.Results)),
		Ignored: report.Ignored,
	}

	for _, r := range report.Results {
		doc.Results = append(doc.Results, documentResult{
			URL:           r.OriginalURL,
			Protocol:      urlutil.Protocol(r.OriginalURL),
			OriginalInput: urlutil.OriginalInput(r.OriginalURL),
			Status:        r.Status().String(),
			StatusCode:    r.StatusCode,
			Title:         r.Title,
			Banner:        r.Banner,
			ContentLength: r.ContentLength,
			RedirectURL:   r.RedirectURL,
			Error:         r.Error,
		})
	}

	if report.Stats != nil {
		doc.Stats = report.Stats.ToJSON()
	}
	return doc
}
