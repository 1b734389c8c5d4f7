package report

import (
	"fmt"
	"io"
	"strings"
)

// Entry is one parsed report entry.
type Entry struct {
	Time string
	Text string
	Data map[string]string
}

// Parse reads back every entry in a daily report file.
func Parse(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("report: read: %w", err)
	}
	content := string(raw)
	header := "\n" + delimiter + "\nTIME: "

	var entries []Entry
	for {
		start := strings.Index(content, header)
		if start < 0 {
			break
		}
		content = content[start+len(header):]

		nl := strings.Index(content, "\n")
		if nl < 0 {
			return nil, fmt.Errorf("report: truncated entry header")
		}
		entry := Entry{Time: content[:nl]}
		content = content[nl+1:]

		if !strings.HasPrefix(content, delimiter+"\n\n") {
			return nil, fmt.Errorf("report: malformed entry header at %q", entry.Time)
		}
		content = content[len(delimiter)+2:]

		body := content
		if next := strings.Index(content, header); next >= 0 {
			body = content[:next]
			content = content[next:]
		} else {
			content = ""
		}
		body = strings.TrimSuffix(body, "\n\n")

		marker := "\n\n" + summaryHeader + "\n"
		if idx := strings.LastIndex(body, marker); idx >= 0 {
			entry.Text = body[:idx]
			entry.Data = parseSummary(body[idx+len(marker):])
		} else {
			entry.Text = body
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseSummary(block string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}
