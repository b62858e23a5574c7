// Package stats records how long a check run spent loading targets and
// checking them, along with throughput and memory figures.
package stats

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Stats holds the metrics of one run.
type Stats struct {
	LoadStart  time.Time
	LoadEnd    time.Time
	CheckStart time.Time
	CheckEnd   time.Time

	TargetsLoaded int
	Ignored       int
	URLsChecked   int
	Failures      int

	// Memory stats, captured at EndCheck.
	HeapAlloc    uint64
	TotalAlloc   uint64
	NumGC        uint32
	NumGoroutine int
}

// New creates an empty Stats.
func New() *Stats {
	return &Stats{}
}

// StartLoad marks the beginning of target loading and filtering.
func (s *Stats) StartLoad() {
	s.LoadStart = time.Now()
}

// EndLoad marks the end of target loading.
func (s *Stats) EndLoad(loaded, ignored int) {
	s.LoadEnd = time.Now()
	s.TargetsLoaded = loaded
	s.Ignored = ignored
}

// StartCheck marks the beginning of the checking phase.
func (s *Stats) StartCheck() {
	s.CheckStart = time.Now()
}

// EndCheck marks the end of checking and captures memory stats.
func (s *Stats) EndCheck(checked, failures int) {
	s.CheckEnd = time.Now()
	s.URLsChecked = checked
	s.Failures = failures
	s.captureMemoryStats()
}

func (s *Stats) captureMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.HeapAlloc = m.HeapAlloc
	s.TotalAlloc = m.TotalAlloc
	s.NumGC = m.NumGC
	s.NumGoroutine = runtime.NumGoroutine()
}

// LoadDuration returns the time spent loading targets.
func (s *Stats) LoadDuration() time.Duration {
	if s.LoadEnd.IsZero() {
		return 0
	}
	return s.LoadEnd.Sub(s.LoadStart)
}

// CheckDuration returns the time spent checking URLs.
func (s *Stats) CheckDuration() time.Duration {
	if s.CheckEnd.IsZero() {
		return 0
	}
	return s.CheckEnd.Sub(s.CheckStart)
}

// TotalDuration returns the time from the first phase start to check end.
// A run without a load phase is measured from CheckStart.
func (s *Stats) TotalDuration() time.Duration {
	if s.CheckEnd.IsZero() {
		return 0
	}
	start := s.LoadStart
	if start.IsZero() {
		start = s.CheckStart
	}
	return s.CheckEnd.Sub(start)
}

// URLsPerSecond returns the checking throughput.
func (s *Stats) URLsPerSecond() float64 {
	d := s.CheckDuration()
	if d == 0 || s.URLsChecked == 0 {
		return 0
	}
	return float64(s.URLsChecked) / d.Seconds()
}

// AvgPerURL returns the wall time per checked URL. With concurrency this is
// lower than the average response time.
func (s *Stats) AvgPerURL() time.Duration {
	if s.URLsChecked == 0 {
		return 0
	}
	return s.CheckDuration() / time.Duration(s.URLsChecked)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%.1fs", int(d.Minutes()), d.Seconds()-float64(int(d.Minutes())*60))
}

// FormatBytes formats bytes for human-readable display.
func FormatBytes(bytes uint64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func (s *Stats) share(d time.Duration) string {
	total := s.TotalDuration()
	if total <= 0 {
		return ""
	}
	return fmt.Sprintf("  (%4.1f%%)", float64(d)/float64(total)*100)
}

// String renders the stats block printed by --stats.
func (s *Stats) String() string {
	var b strings.Builder

	b.WriteString("\n=== Run Statistics ===\n\n")

	b.WriteString("Timing:\n")
	fmt.Fprintf(&b, "  Load targets:  %8s%s\n", FormatDuration(s.LoadDuration()), s.share(s.LoadDuration()))
	fmt.Fprintf(&b, "  Check URLs:    %8s%s\n", FormatDuration(s.CheckDuration()), s.share(s.CheckDuration()))
	b.WriteString("  ─────────────────────────\n")
	fmt.Fprintf(&b, "  Total:         %8s\n", FormatDuration(s.TotalDuration()))

	b.WriteString("\nThroughput:\n")
	fmt.Fprintf(&b, "  Targets loaded:    %5d\n", s.TargetsLoaded)
	if s.Ignored > 0 {
		fmt.Fprintf(&b, "  Ignored:           %5d\n", s.Ignored)
	}
	fmt.Fprintf(&b, "  URLs checked:      %5d\n", s.URLsChecked)
	fmt.Fprintf(&b, "  Failures:          %5d\n", s.Failures)
	fmt.Fprintf(&b, "  URLs/second:       %5.1f\n", s.URLsPerSecond())
	fmt.Fprintf(&b, "  Time per URL:    %7s\n", FormatDuration(s.AvgPerURL()))

	b.WriteString("\nMemory:\n")
	fmt.Fprintf(&b, "  Heap in use:   %8s\n", FormatBytes(s.HeapAlloc))
	fmt.Fprintf(&b, "  Total alloc:   %8s\n", FormatBytes(s.TotalAlloc))
	fmt.Fprintf(&b, "  GC cycles:     %8d\n", s.NumGC)
	fmt.Fprintf(&b, "  Goroutines:    %8d\n", s.NumGoroutine)

	return b.String()
}

// ToJSON returns a map suitable for JSON and YAML serialization.
func (s *Stats) ToJSON() map[string]any {
	return map[string]any{
		"timing": map[string]any{
			"load_ms":  s.LoadDuration().Milliseconds(),
			"check_ms": s.CheckDuration().Milliseconds(),
			"total_ms": s.TotalDuration().Milliseconds(),
		},
		"throughput": map[string]any{
			"targets_loaded":  s.TargetsLoaded,
			"ignored":         s.Ignored,
			"urls_checked":    s.URLsChecked,
			"failures":        s.Failures,
			"urls_per_second": s.URLsPerSecond(),
			"per_url_ms":      s.AvgPerURL().Milliseconds(),
		},
		"memory": map[string]any{
			"heap_bytes":  s.HeapAlloc,
			"total_bytes": s.TotalAlloc,
			"gc_cycles":   s.NumGC,
			"goroutines":  s.NumGoroutine,
		},
	}
}
