// Package batch holds the spans collected across a tree and encodes them into
// the single request handed to the external formatter.
package batch

import (
	"encoding/json"
	"fmt"
	"sort"

	"fencefmt/internal/fence"
)

// Span is one fenced block body inside one file.
type Span struct {
	File  string
	Range fence.Range
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%s", s.File, s.Range)
}

// Batch is an ordered sequence of spans. The zero value is an empty batch.
type Batch struct {
	spans []Span
}

// New returns a batch holding spans in the given order.
func New(spans ...Span) Batch {
	b := Batch{}
	b.Add(spans...)
	return b
}

// Add appends spans to the batch.
func (b *Batch) Add(spans ...Span) {
	b.spans = append(b.spans, spans...)
}

// AddRanges appends one span per range, all tagged with file.
func (b *Batch) AddRanges(file string, ranges []fence.Range) {
	for _, r := range ranges {
		b.spans = append(b.spans, Span{File: file, Range: r})
	}
}

// Len returns the number of spans.
func (b Batch) Len() int {
	return len(b.spans)
}

// Empty reports whether the batch has no spans.
func (b Batch) Empty() bool {
	return len(b.spans) == 0
}

// Spans returns a copy of the spans in batch order.
func (b Batch) Spans() []Span {
	out := make([]Span, len(b.spans))
	copy(out, b.spans)
	return out
}

// Files returns the distinct files referenced by the batch, sorted.
func (b Batch) Files() []string {
	seen := make(map[string]struct{}, len(b.spans))
	files := make([]string, 0, len(b.spans))
	for _, s := range b.spans {
		if _, ok := seen[s.File]; ok {
			continue
		}
		seen[s.File] = struct{}{}
		files = append(files, s.File)
	}
	sort.Strings(files)
	return files
}

// Lines returns the total number of content lines covered by the batch.
func (b Batch) Lines() int {
	total := 0
	for _, s := range b.spans {
		total += s.Range.Len()
	}
	return total
}

// LineBase is the number of the first line in an encoded request.
type LineBase int

const (
	// ZeroBased emits the detector's 0-indexed line numbers unchanged.
	ZeroBased LineBase = 0
	// OneBased shifts every bound by one.
	OneBased LineBase = 1
)

// ParseLineBase validates a configured line base.
func ParseLineBase(n int) (LineBase, error) {
	switch LineBase(n) {
	case ZeroBased, OneBased:
		return LineBase(n), nil
	default:
		return ZeroBased, fmt.Errorf("invalid line base %d (expected 0 or 1)", n)
	}
}

// Entry is the wire form of one span: {"file": "...", "range": [start, end]}.
type Entry struct {
	File  string `json:"file"`
	Range [2]int `json:"range"`
}

// Entries converts the batch into wire entries using base.
func (b Batch) Entries(base LineBase) []Entry {
	entries := make([]Entry, 0, len(b.spans))
	for _, s := range b.spans {
		r := s.Range.Shift(int(base))
		entries = append(entries, Entry{File: s.File, Range: [2]int{r.Start, r.End}})
	}
	return entries
}

// Encode serialises the batch as a JSON array. An empty batch encodes as "[]".
func (b Batch) Encode(base LineBase) ([]byte, error) {
	data, err := json.Marshal(b.Entries(base))
	if err != nil {
		return nil, fmt.Errorf("batch: encode request: %w", err)
	}
	return data, nil
}
