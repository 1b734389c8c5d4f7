package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"zerodte-api/pkg/analysis"
)

const (
	defaultDir    = "reports"
	timeLayout    = "Jan 02, 2006 at 03:04 PM ET"
	summaryHeader = "--- Data Summary ---"
	sinkName      = "local_report"
)

var delimiter = strings.Repeat("=", 40)

// ErrNoAnalysis is returned when asked to save a result that did not come
// from a completed run.
var ErrNoAnalysis = errors.New("report: no analysis available to save")

// Writer appends analysis results to one text file per calendar day.
type Writer struct {
	dir      string
	location *time.Location

	mu sync.Mutex
}

// NewWriter constructs a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Writer{dir: dir, location: loc}
}

// Dir returns the directory reports are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// PathFor returns the daily file the result is appended to. The date is taken
// from the UTC timestamp.
func (w *Writer) PathFor(ts time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("analysis_%s.txt", ts.UTC().Format("2006-01-02")))
}

// Append writes one entry for r and returns the file path.
func (w *Writer) Append(r analysis.Result) (string, error) {
	if !r.Ready() || strings.TrimSpace(r.Text) == "" {
		return "", ErrNoAnalysis
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}
	path := w.PathFor(*r.Timestamp)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("report: open %s: %w", path, err)
	}
	if _, err := f.WriteString(w.render(r)); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("report: close %s: %w", path, err)
	}
	return path, nil
}

// Name implements analysis.Sink.
func (w *Writer) Name() string {
	return sinkName
}

// Save implements analysis.Sink.
func (w *Writer) Save(_ context.Context, r analysis.Result) error {
	_, err := w.Append(r)
	return err
}

func (w *Writer) render(r analysis.Result) string {
	var b strings.Builder
	b.WriteString("\n" + delimiter + "\n")
	b.WriteString("TIME: " + r.Timestamp.In(w.location).Format(timeLayout) + "\n")
	b.WriteString(delimiter + "\n\n")
	b.WriteString(r.Text)
	if fields := r.Data.Fields(); len(fields) > 0 {
		b.WriteString("\n\n" + summaryHeader + "\n")
		for _, f := range fields {
			b.WriteString(f.Key + ": " + f.Value + "\n")
		}
	}
	b.WriteString("\n\n")
	return b.String()
}
