package fence

import "fmt"

// Range is an inclusive, 0-indexed interval of content lines.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the block had no content lines.
func (r Range) Empty() bool {
	return r.End < r.Start
}

// Len returns the number of lines covered by the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Shift returns the range moved by n lines.
func (r Range) Shift(n int) Range {
	return Range{Start: r.Start + n, End: r.End + n}
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
