package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultExtension is the document extension scanned when none is configured.
const DefaultExtension = ".md"

// CollectOptions configures document discovery.
type CollectOptions struct {
	// Extension is matched exactly (case-sensitive) against filepath.Ext.
	Extension string
	// Exclude holds filepath.Match patterns for directory base names that are
	// not descended into. The root itself is never excluded.
	Exclude []string
}

// CollectDocuments walks root and returns every regular file, or symlink to
// one, whose extension equals opts.Extension, sorted by path. Links to
// directories and dangling links are skipped. Any traversal error aborts the walk.
func CollectDocuments(ctx context.Context, root string, opts CollectOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == "" {
		root = "."
	}
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	for _, pattern := range opts.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && excluded(d.Name(), opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}
		switch t := d.Type(); {
		case t == 0:
		case t == fs.ModeSymlink:
			// only links that resolve to regular files are documents
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		default:
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
