package fence

import (
	"strings"
	"testing"
)

const maxFuzzInput = 1 << 16 // 64 KiB

var fuzzSeeds = []string{
	"",
	"```rust\nfn main() {}\n```\n",
	"```rust\n```\n",
	"```rust\nunterminated\n",
	"````md\n```rust\nx\n```\n````\n",
	"  ~~~Rust,ignore\nlet a = 1;\n~~~\n",
	"```rust\r\nwindows\r\n```\r\n",
	"```rust\n```rust\n```\n```\n",
}

// FuzzDetect checks that both strategies return ordered, non-overlapping
// ranges that stay inside the document.
func FuzzDetect(f *testing.F) {
	for _, seed := range fuzzSeeds {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > maxFuzzInput {
			src = src[:maxFuzzInput]
		}
		lines := strings.Count(src, "\n") + 1
		for _, strategy := range []Strategy{StrategyToggle, StrategyMarkdown} {
			for _, keep := range []bool{false, true} {
				det := NewDetector(Options{Strategy: strategy, KeepEmpty: keep})
				ranges := det.Detect(src)
				prev := Range{Start: -1, End: -2}
				for _, r := range ranges {
					if r.Start < 0 || r.Start > lines || r.End >= lines {
						t.Fatalf("%s: range %v outside %d lines", strategy, r, lines)
					}
					if !keep && r.Empty() {
						t.Fatalf("%s: empty range %v without KeepEmpty", strategy, r)
					}
					if r.Start <= prev.Start || r.Start <= prev.End {
						t.Fatalf("%s: range %v does not follow %v", strategy, r, prev)
					}
					prev = r
				}
			}
		}
	})
}
