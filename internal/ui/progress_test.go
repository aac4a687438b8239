package ui

import (
	"strings"
	"testing"

	"fencefmt/internal/driver"
)

func TestProgressModelTracksFiles(t *testing.T) {
	m := NewProgressModel("scanning book", make(chan driver.Event)).(*progressModel)

	events := []driver.Event{
		{Stage: driver.StageWalk, Status: driver.StatusDone},
		{File: "book/a.md", Stage: driver.StageDetect, Status: driver.StatusQueued},
		{File: "book/b.md", Stage: driver.StageDetect, Status: driver.StatusQueued},
		{File: "book/a.md", Stage: driver.StageDetect, Status: driver.StatusDone, Spans: 3},
		{File: "book/b.md", Stage: driver.StageDetect, Status: driver.StatusCached, Spans: 1},
		{Stage: driver.StageDetect, Status: driver.StatusDone, Spans: 4},
	}
	for _, ev := range events {
		m.applyEvent(ev)
	}

	if len(m.items) != 2 || m.finished != 2 || m.spans != 4 {
		t.Fatalf("items=%d finished=%d spans=%d", len(m.items), m.finished, m.spans)
	}
	m.done = true
	view := m.View()
	for _, want := range []string{"done: scanning book, 4 spans in 2 files", "book/a.md", "cached"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelFailure(t *testing.T) {
	m := NewProgressModel("scanning", make(chan driver.Event)).(*progressModel)
	m.applyEvent(driver.Event{Stage: driver.StageWalk, Status: driver.StatusError})
	if !strings.Contains(m.View(), "failed: scanning") {
		t.Fatalf("view should report failure:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.md", 20, "short.md"},
		{"a/very/long/path/to/doc.md", 10, "a/very/..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
