package output

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/urlutil"
)

// JUnitFormatter formats reports as JUnit XML for CI/CD integration.
// Every checked URL is a test case; 4xx/5xx are failures and requests
// without a response are errors.
type JUnitFormatter struct{}

type junitTestSuites struct {
	XMLName   xml.Name         `xml:"testsuites"`
	Name      string           `xml:"name,attr"`
	Tests     int              `xml:"tests,attr"`
	Failures  int              `xml:"failures,attr"`
	Errors    int              `xml:"errors,attr"`
	TestSuite []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// Format implements Formatter.
func (*JUnitFormatter) Format(report *Report) ([]byte, error) {
	// One suite per host so CI dashboards group related URLs.
	suites := junitTestSuites{Name: "webcheck"}
	index := map[string]int{}

	for _, r := range report.Results {
		host := suiteName(r.OriginalURL)
		i, ok := index[host]
		if !ok {
			i = len(suites.TestSuite)
			index[host] = i
			suites.TestSuite = append(suites.TestSuite, junitTestSuite{Name: host})
		}
		suite := &suites.TestSuite[i]

		tc := junitTestCase{
			Name:      r.OriginalURL,
			ClassName: urlutil.Protocol(r.OriginalURL),
		}

		switch r.Status() {
		case checker.StatusError:
			suite.Errors++
			suites.Errors++
			tc.Error = &junitFailure{
				Message: helpers.TruncateText(r.Error, 200),
				Type:    "error",
				Content: describe(r),
			}
		case checker.StatusClientError, checker.StatusServerError:
			suite.Failures++
			suites.Failures++
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("HTTP %d", r.StatusCode),
				Type:    r.Status().String(),
				Content: describe(r),
			}
		}

		suite.Tests++
		suites.Tests++
		suite.TestCases = append(suite.TestCases, tc)
	}

	if len(suites.TestSuite) == 0 {
		suites.TestSuite = append(suites.TestSuite, junitTestSuite{Name: "all-urls"})
	}

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

// suiteName returns the host part of a URL, or the input when there is no
// recognizable scheme.
func suiteName(u string) string {
	rest := urlutil.OriginalInput(u)
	if host, _, ok := strings.Cut(rest, "/"); ok {
		return host
	}
	return rest
}

func describe(r checker.Result) string {
	var b strings.Builder
	if r.StatusCode > 0 {
		fmt.Fprintf(&b, "Status: %d\n", r.StatusCode)
	}
	if r.Title != "" && r.Title != checker.NoTitle {
		fmt.Fprintf(&b, "Title: %s\n", helpers.TruncateText(r.Title, 100))
	}
	if r.RedirectURL != "" {
		fmt.Fprintf(&b, "Location: %s\n", r.RedirectURL)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	return b.String()
}
