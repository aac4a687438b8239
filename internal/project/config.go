// Package project loads the fencefmt.toml configuration file.
package project

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"fencefmt/internal/batch"
	"fencefmt/internal/fence"
	"fencefmt/internal/formatter"
)

// Config mirrors the layout of fencefmt.toml.
type Config struct {
	Scan      ScanConfig      `toml:"scan"`
	Detect    DetectConfig    `toml:"detect"`
	Formatter FormatterConfig `toml:"formatter"`
}

// ScanConfig is the [scan] table.
type ScanConfig struct {
	Extension string   `toml:"extension"`
	Exclude   []string `toml:"exclude"`
	Jobs      int      `toml:"jobs"`
	Cache     bool     `toml:"cache"`
}

// DetectConfig is the [detect] table.
type DetectConfig struct {
	Lang      string `toml:"lang"`
	Fences    string `toml:"fences"`
	KeepEmpty bool   `toml:"keep_empty"`
}

// FormatterConfig is the [formatter] table.
type FormatterConfig struct {
	Command   string   `toml:"command"`
	Args      []string `toml:"args"`
	LineBase  int      `toml:"line_base"`
	SkipEmpty bool     `toml:"skip_empty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Scan: ScanConfig{
			Extension: ".md",
			Exclude:   []string{},
			Jobs:      1,
		},
		Detect: DetectConfig{
			Lang:   fence.DefaultLang,
			Fences: fence.StrategyToggle.String(),
		},
		Formatter: FormatterConfig{
			Command: formatter.DefaultCommand,
			Args:    append([]string(nil), formatter.DefaultArgs...),
		},
	}
}

// Validate checks the values that cannot be represented by the TOML types alone.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Scan.Extension, ".") || len(c.Scan.Extension) < 2 {
		return fmt.Errorf("[scan].extension must start with '.', got %q", c.Scan.Extension)
	}
	for _, pattern := range c.Scan.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("[scan].exclude: invalid pattern %q: %w", pattern, err)
		}
	}
	if c.Scan.Jobs < 0 {
		return fmt.Errorf("[scan].jobs must be >= 0, got %d", c.Scan.Jobs)
	}
	if strings.TrimSpace(c.Detect.Lang) == "" {
		return fmt.Errorf("[detect].lang must not be empty")
	}
	if _, err := fence.ParseStrategy(c.Detect.Fences); err != nil {
		return fmt.Errorf("[detect].fences: %w", err)
	}
	if strings.TrimSpace(c.Formatter.Command) == "" {
		return fmt.Errorf("[formatter].command must not be empty")
	}
	if _, err := batch.ParseLineBase(c.Formatter.LineBase); err != nil {
		return fmt.Errorf("[formatter].line_base: %w", err)
	}
	return nil
}

// DetectorOptions converts the [detect] table into detector options.
func (c Config) DetectorOptions() (fence.Options, error) {
	strategy, err := fence.ParseStrategy(c.Detect.Fences)
	if err != nil {
		return fence.Options{}, err
	}
	return fence.Options{
		Lang:      strings.TrimSpace(c.Detect.Lang),
		Strategy:  strategy,
		KeepEmpty: c.Detect.KeepEmpty,
	}, nil
}

// Tool converts the [formatter] table into a formatter invocation.
func (c Config) Tool(dir string) formatter.Tool {
	return formatter.Tool{
		Command: strings.TrimSpace(c.Formatter.Command),
		Args:    append([]string(nil), c.Formatter.Args...),
		Dir:     dir,
	}
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(c)
}

// Manifest is a loaded configuration file.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	meta   toml.MetaData
}

// IsDefined reports whether the file set the given key, e.g.
// IsDefined("formatter", "line_base"). A nil manifest defines nothing.
func (m *Manifest) IsDefined(key ...string) bool {
	if m == nil {
		return false
	}
	return m.meta.IsDefined(key...)
}

// Load decodes the file at path on top of Default. Keys the file does not name
// keep their default values; unknown keys are an error.
func Load(path string) (*Manifest, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown key %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Manifest{
		Path:   abs,
		Root:   filepath.Dir(abs),
		Config: cfg,
		meta:   meta,
	}, nil
}

// Discover looks for fencefmt.toml at or above startDir and loads it.
func Discover(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// WriteDefault creates dir/fencefmt.toml with the default configuration. It
// refuses to overwrite an existing file unless force is set.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists", path)
	}

	var b strings.Builder
	b.WriteString("# fencefmt configuration\n")
	b.WriteString("# Flags given on the command line take precedence over these values.\n\n")
	if err := Default().Encode(&b); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
