package fence

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Delimiter is the bare fence marker.
const Delimiter = "```"

// DefaultLang is the language detected when Options.Lang is empty.
const DefaultLang = "rust"

// Strategy selects how fence lines are recognised.
type Strategy uint8

const (
	// StrategyToggle opens on any line containing "```"+lang and closes on
	// the next line containing "```".
	StrategyToggle Strategy = iota
	// StrategyMarkdown follows Markdown fence rules and skips blocks of
	// other languages.
	StrategyMarkdown
)

// String returns the string representation of Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyToggle:
		return "toggle"
	case StrategyMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "toggle":
		return StrategyToggle, nil
	case "markdown", "md":
		return StrategyMarkdown, nil
	default:
		return StrategyToggle, fmt.Errorf("invalid fence strategy: %q (expected: toggle|markdown)", s)
	}
}

// Options configures a Detector.
type Options struct {
	Lang     string
	Strategy Strategy
	// KeepEmpty retains blocks without content lines. Their Range has End < Start.
	KeepEmpty bool
}

// Detector scans documents for fenced blocks of one language.
// A Detector is immutable and safe for concurrent use.
type Detector struct {
	opts   Options
	opener string
	lang   string
}

// NewDetector returns a Detector for opts.
func NewDetector(opts Options) *Detector {
	if strings.TrimSpace(opts.Lang) == "" {
		opts.Lang = DefaultLang
	}
	return &Detector{
		opts:   opts,
		opener: Delimiter + opts.Lang,
		lang:   foldLang(opts.Lang),
	}
}

// Options returns the effective detector options.
func (d *Detector) Options() Options {
	return d.opts
}

// Detect returns the ranges of all matching blocks in src, in document order.
func (d *Detector) Detect(src string) []Range {
	var ranges []Range
	emit := func(r Range) {
		if r.Empty() && !d.opts.KeepEmpty {
			return
		}
		ranges = append(ranges, r)
	}

	lines := splitLines(src)
	switch d.opts.Strategy {
	case StrategyMarkdown:
		d.scanMarkdown(lines, emit)
	default:
		d.scanToggle(lines, emit)
	}
	return ranges
}

// Detect scans src with the toggle strategy for lang.
func Detect(src, lang string) []Range {
	return NewDetector(Options{Lang: lang}).Detect(src)
}

func (d *Detector) scanToggle(lines []string, emit func(Range)) {
	inside := false
	start := 0
	for i, line := range lines {
		if !inside {
			if strings.Contains(line, d.opener) {
				start = i + 1
				inside = true
			}
			continue
		}
		// a second opener does not nest and does not close
		if strings.Contains(line, d.opener) {
			continue
		}
		if strings.Contains(line, Delimiter) {
			emit(Range{Start: start, End: i - 1})
			inside = false
		}
	}
}

type scanState uint8

const (
	stateOutside scanState = iota
	stateMatching
	stateOther
)

func (d *Detector) scanMarkdown(lines []string, emit func(Range)) {
	state := stateOutside
	var open fenceLine
	start := 0
	for i, line := range lines {
		fl, ok := parseFence(line)
		if !ok {
			continue
		}
		switch state {
		case stateOutside:
			open = fl
			if foldLang(fl.lang) == d.lang {
				state = stateMatching
				start = i + 1
			} else {
				state = stateOther
			}
		case stateMatching, stateOther:
			if !fl.closes(open) {
				continue
			}
			if state == stateMatching {
				emit(Range{Start: start, End: i - 1})
			}
			state = stateOutside
		}
	}
}

type fenceLine struct {
	char   byte
	length int
	info   string
	lang   string
}

// closes reports whether fl is a valid closing fence for open.
func (fl fenceLine) closes(open fenceLine) bool {
	return fl.char == open.char && fl.length >= open.length && fl.info == ""
}

// parseFence recognises a fence line: up to three spaces of indentation,
// then a run of at least three backticks or tildes, then an optional info
// string.
func parseFence(line string) (fenceLine, bool) {
	indent := 0
	for indent < len(line) && line[indent] == ' ' {
		indent++
	}
	if indent > 3 || indent >= len(line) {
		return fenceLine{}, false
	}
	rest := line[indent:]
	ch := rest[0]
	if ch != '`' && ch != '~' {
		return fenceLine{}, false
	}
	n := 0
	for n < len(rest) && rest[n] == ch {
		n++
	}
	if n < 3 {
		return fenceLine{}, false
	}
	info := strings.TrimSpace(rest[n:])
	if ch == '`' && strings.Contains(info, "`") {
		return fenceLine{}, false
	}
	return fenceLine{char: ch, length: n, info: info, lang: infoLang(info)}, true
}

// infoLang extracts the language token of an info string, e.g. "rust" from
// "rust,ignore" or "rust {.class}".
func infoLang(info string) string {
	end := strings.IndexFunc(info, func(r rune) bool {
		return r == ',' || r == '{' || r == ' ' || r == '\t'
	})
	if end < 0 {
		return info
	}
	return info[:end]
}

func foldLang(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// splitLines splits on "\n" and strips one trailing "\r" per line.
func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
