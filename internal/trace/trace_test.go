package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	stage := Begin(ring, ScopeStage, "walk", 0)
	file := Begin(ring, ScopeFile, "file:a.md", stage.ID())
	file.End("")
	stage.End("2 files")

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (file scope filtered at phase level)", len(events))
	}
	if events[0].Kind != KindSpanBegin || events[1].Kind != KindSpanEnd {
		t.Fatalf("unexpected kinds %v, %v", events[0].Kind, events[1].Kind)
	}
	if events[1].Detail != "2 files" {
		t.Fatalf("Detail = %q", events[1].Detail)
	}
	if file.ID() != 0 {
		t.Fatalf("filtered span should have no id, got %d", file.ID())
	}
}

func TestErrorEventsPassEveryLevel(t *testing.T) {
	ring := NewRingTracer(4, LevelError)
	Error(ring, "formatter", errString("boom"), 0)
	Point(ring, ScopeRun, "ignored", "", 0)

	events := ring.Snapshot()
	if len(events) != 1 || events[0].Kind != KindError || events[0].Detail != "boom" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestRingWrapsAround(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeBlock, name, "", 0)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if strings.Join(names, ",") != "c,d,e" {
		t.Fatalf("Snapshot() names = %v, want c,d,e", names)
	}
}

func TestStreamTextFormat(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDetail, FormatText)
	span := Begin(st, ScopeStage, "detect", 0)
	span.WithExtra("spans", "3").WithExtra("files", "2")
	span.End("ok")

	out := buf.String()
	if !strings.Contains(out, "[stage] → detect") {
		t.Fatalf("missing begin line in %q", out)
	}
	if !strings.Contains(out, "← detect (ok) {files=2, spans=3}") {
		t.Fatalf("missing end line in %q", out)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(st, ScopeFile, "file:a.md", "1 span", 0)
	if !strings.Contains(buf.String(), `"name":"file:a.md"`) || !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("unexpected ndjson %q", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should yield Nop")
	}
	ring := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	parent := Begin(FromContext(ctx), ScopeRun, "run", 0)
	ctx = WithSpan(ctx, parent)
	if CurrentSpan(ctx).SpanID != parent.ID() {
		t.Fatalf("CurrentSpan = %d, want %d", CurrentSpan(ctx).SpanID, parent.ID())
	}
}

func TestNewOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("LevelOff tracer should be disabled")
	}
}

func TestParse(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel accepted invalid level")
	}
	if lvl, _ := ParseLevel("DETAIL"); lvl != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v", lvl)
	}
	if mode, _ := ParseMode("both"); mode != ModeBoth {
		t.Fatalf("ParseMode(both) = %v", mode)
	}
	if f, _ := ParseFormat("json"); f != FormatNDJSON {
		t.Fatalf("ParseFormat(json) = %v", f)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
