package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fencefmt/internal/driver"
	"fencefmt/internal/observ"
)

// printTimings writes the per-stage durations followed by the phase table.
func printTimings(out io.Writer, res driver.Result, timer *observ.Timer) {
	if out == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "walked %.1f ms (%d files)\n", toMillis(res.Walk), len(res.Files))
	fmt.Fprintf(&b, "detected %.1f ms (%d spans, %d lines, %d cached)\n", toMillis(res.Detect), res.Batch.Len(), res.Batch.Lines(), res.CacheHits)
	if timer != nil {
		b.WriteString(timer.Summary())
	}
	_, _ = io.WriteString(out, b.String())
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
