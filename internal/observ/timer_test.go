package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTimer()
	tm.now = func() time.Time { return clock }

	endWalk := tm.Track("walk")
	clock = clock.Add(3 * time.Millisecond)
	endWalk("4 files")

	idx := tm.Begin("formatter")
	clock = clock.Add(10 * time.Millisecond)
	tm.End(idx, "")
	tm.End(99, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(report.Phases))
	}
	if report.Phases[0].DurationMS != 3 || report.Phases[0].Note != "4 files" {
		t.Fatalf("walk phase = %+v", report.Phases[0])
	}
	if report.TotalMS != 13 {
		t.Fatalf("TotalMS = %v, want 13", report.TotalMS)
	}

	summary := tm.Summary()
	for _, want := range []string{"walk", "// 4 files", "formatter", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("Summary() missing %q:\n%s", want, summary)
		}
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("empty timer report = %+v", r)
	}
}
