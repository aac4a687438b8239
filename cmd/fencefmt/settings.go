package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fencefmt/internal/batch"
	"fencefmt/internal/cache"
	"fencefmt/internal/driver"
	"fencefmt/internal/fence"
	"fencefmt/internal/formatter"
	"fencefmt/internal/project"
)

// addScanFlags registers the flags shared by every command that builds a batch.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "path to fencefmt.toml (default: search upward from root)")
	f.String("lang", fence.DefaultLang, "language tag of the fenced blocks to format")
	f.String("ext", driver.DefaultExtension, "extension of the documents to scan")
	f.StringSlice("exclude", nil, "directory name patterns to skip (repeatable)")
	f.String("fences", "toggle", "fence detection strategy (toggle|markdown)")
	f.Bool("keep-empty", false, "keep blocks without content lines")
	f.Int("jobs", 1, "number of documents analysed concurrently")
	f.Bool("cache", false, "reuse detection results across runs")
	f.Int("line-base", 0, "number of the first line in the request (0|1)")
	f.String("ui", "auto", "progress UI (auto|on|off)")
}

// addFormatterFlags registers the flags that only matter when the formatter runs.
func addFormatterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("formatter", formatter.DefaultCommand, "formatter executable")
	f.StringArray("formatter-arg", nil, "formatter argument placed before the request (repeatable, replaces the defaults)")
	f.Bool("skip-empty", false, "do not run the formatter when no blocks were found")
}

// settings is the merged view of defaults, fencefmt.toml and flags.
type settings struct {
	root     string
	manifest *project.Manifest
	config   project.Config
	detector fence.Options
	lineBase batch.LineBase
	tool     formatter.Tool
	ui       uiMode
	quiet    bool
	timings  bool
}

// resolveSettings loads the configuration for root and applies the flags the
// user set explicitly on top of it.
func resolveSettings(cmd *cobra.Command, root string) (*settings, error) {
	manifest, err := loadManifest(cmd, root)
	if err != nil {
		return nil, err
	}
	cfg := project.Default()
	if manifest != nil {
		cfg = manifest.Config
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	detector, err := cfg.DetectorOptions()
	if err != nil {
		return nil, err
	}
	lineBase, err := batch.ParseLineBase(cfg.Formatter.LineBase)
	if err != nil {
		return nil, err
	}

	s := &settings{
		root:     root,
		manifest: manifest,
		config:   cfg,
		detector: detector,
		lineBase: lineBase,
		tool:     cfg.Tool(""),
	}
	if flag := cmd.Flags().Lookup("ui"); flag != nil {
		if s.ui, err = readUIMode(flag.Value.String()); err != nil {
			return nil, err
		}
	}
	pf := cmd.Root().PersistentFlags()
	if s.quiet, err = pf.GetBool("quiet"); err != nil {
		return nil, err
	}
	if s.timings, err = pf.GetBool("timings"); err != nil {
		return nil, err
	}
	return s, nil
}

func loadManifest(cmd *cobra.Command, root string) (*project.Manifest, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath != "" {
		return project.Load(configPath)
	}
	manifest, _, err := project.Discover(root)
	return manifest, err
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, cfg *project.Config) error {
	f := cmd.Flags()
	changed := func(name string) bool {
		flag := f.Lookup(name)
		return flag != nil && flag.Changed
	}

	var err error
	if changed("lang") {
		if cfg.Detect.Lang, err = f.GetString("lang"); err != nil {
			return err
		}
	}
	if changed("ext") {
		if cfg.Scan.Extension, err = f.GetString("ext"); err != nil {
			return err
		}
	}
	if changed("exclude") {
		if cfg.Scan.Exclude, err = f.GetStringSlice("exclude"); err != nil {
			return err
		}
	}
	if changed("fences") {
		if cfg.Detect.Fences, err = f.GetString("fences"); err != nil {
			return err
		}
	}
	if changed("keep-empty") {
		if cfg.Detect.KeepEmpty, err = f.GetBool("keep-empty"); err != nil {
			return err
		}
	}
	if changed("jobs") {
		if cfg.Scan.Jobs, err = f.GetInt("jobs"); err != nil {
			return err
		}
	}
	if changed("cache") {
		if cfg.Scan.Cache, err = f.GetBool("cache"); err != nil {
			return err
		}
	}
	if changed("line-base") {
		if cfg.Formatter.LineBase, err = f.GetInt("line-base"); err != nil {
			return err
		}
	}
	if changed("formatter") {
		if cfg.Formatter.Command, err = f.GetString("formatter"); err != nil {
			return err
		}
	}
	if changed("formatter-arg") {
		if cfg.Formatter.Args, err = f.GetStringArray("formatter-arg"); err != nil {
			return err
		}
	}
	if changed("skip-empty") {
		if cfg.Formatter.SkipEmpty, err = f.GetBool("skip-empty"); err != nil {
			return err
		}
	}
	return nil
}

// driverOptions turns the settings into BuildBatch options, opening the
// detection cache when it is enabled.
func (s *settings) driverOptions() (driver.Options, error) {
	opts := driver.Options{
		Collect: driver.CollectOptions{
			Extension: s.config.Scan.Extension,
			Exclude:   s.config.Scan.Exclude,
		},
		Detector: fence.NewDetector(s.detector),
		Jobs:     s.config.Scan.Jobs,
	}
	if s.config.Scan.Cache {
		dir, err := cache.Dir(appName)
		if err != nil {
			return opts, fmt.Errorf("cache: %w", err)
		}
		c, err := cache.Open(dir)
		if err != nil {
			return opts, err
		}
		opts.Cache = c
	}
	return opts, nil
}

func rootArg(args []string) string {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "."
	}
	return args[0]
}

const appName = "fencefmt"
