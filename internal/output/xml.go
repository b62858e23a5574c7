package output

import (
	"encoding/xml"
	"time"

	"github.com/leonardomso/webcheck/internal/filter"
	"github.com/leonardomso/webcheck/internal/urlutil"
)

// XMLFormatter formats reports as generic XML.
type XMLFormatter struct{}

type xmlOutput struct {
	XMLName     xml.Name    `xml:"report"`
	GeneratedAt string      `xml:"generated_at,attr"`
	RunID       string      `xml:"run_id,attr,omitempty"`
	Source      string      `xml:"source,attr,omitempty"`
	Config      xmlConfig   `xml:"config"`
	Summary     xmlSummary  `xml:"summary"`
	Results     xmlResults  `xml:"results"`
	Ignored     *xmlIgnored `xml:"ignored,omitempty"`
}

type xmlConfig struct {
	UserAgent string      `xml:"user_agent"`
	Cookie    string      `xml:"cookie,omitempty"`
	Timeout   int         `xml:"timeout"`
	Headers   []xmlHeader `xml:"header"`
}

type xmlHeader struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlSummary struct {
	Total        int `xml:"total,attr"`
	Alive        int `xml:"alive"`
	Redirects    int `xml:"redirects"`
	ClientErrors int `xml:"client_errors"`
	ServerErrors int `xml:"server_errors"`
	Errors       int `xml:"errors"`
	Ignored      int `xml:"ignored,omitempty"`
}

type xmlResults struct {
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Status        string `xml:"status,attr"`
	StatusCode    int    `xml:"status_code,attr"`
	Protocol      string `xml:"protocol,attr"`
	URL           string `xml:"url"`
	OriginalInput string `xml:"original_input"`
	Title         string `xml:"title"`
	Banner        string `xml:"banner"`
	ContentLength int    `xml:"content_length"`
	RedirectURL   string `xml:"redirect_url,omitempty"`
	Error         string `xml:"error,omitempty"`
}

type xmlIgnored struct {
	Items []filter.IgnoreReason `xml:"item"`
}

// Format implements Formatter.
func (*XMLFormatter) Format(report *Report) ([]byte, error) {
	cfg := report.Config.Redacted()
	out := xmlOutput{
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		RunID:       report.RunID,
		Source:      report.Source,
		Config: xmlConfig{
			UserAgent: cfg.UserAgent,
			Cookie:    cfg.Cookie,
			Timeout:   cfg.Timeout,
		},
		Summary: xmlSummary{
			Total:        report.Summary.Total,
			Alive:        report.Summary.Alive,
			Redirects:    report.Summary.Redirects,
			ClientErrors: report.Summary.ClientErrors,
			ServerErrors: report.Summary.ServerErrors,
			Errors:       report.Summary.Errors,
			Ignored:      len(report.Ignored),
		},
	}

	for _, name := range sortedKeys(cfg.Headers) {
		out.Config.Headers = append(out.Config.Headers, xmlHeader{Name: name, Value: cfg.Headers[name]})
	}

	for _, r := range report.Results {
		out.Results.Results = append(out.Results.Results, xmlResult{
			Status:        r.Status().String(),
			StatusCode:    r.StatusCode,
			Protocol:      urlutil.Protocol(r.OriginalURL),
			URL:           r.OriginalURL,
			OriginalInput: urlutil.OriginalInput(r.OriginalURL),
			Title:         r.Title,
			Banner:        r.Banner,
			ContentLength: r.ContentLength,
			RedirectURL:   r.RedirectURL,
			Error:         r.Error,
		})
	}

	if len(report.Ignored) > 0 {
		out.Ignored = &xmlIgnored{Items: report.Ignored}
	}

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
