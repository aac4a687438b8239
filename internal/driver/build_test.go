package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fencefmt/internal/batch"
	"fencefmt/internal/cache"
	"fencefmt/internal/fence"
	"fencefmt/internal/testkit"
)

const rustBlock = "intro\n```rust\nfn main() {}\n```\n"

func TestBuildBatchIgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{
		"a.md":  rustBlock,
		"b.txt": rustBlock,
	})

	res, err := BuildBatch(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	want := []batch.Span{{File: filepath.Join(root, "a.md"), Range: fence.Range{Start: 2, End: 2}}}
	if diff := cmp.Diff(want, res.Batch.Spans()); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(root, "a.md")}, res.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBatchWalksNestedDirectories(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{
		"README.md":            "no code here\n",
		"book/ch1.md":          rustBlock + "\n```rust\nlet a = 1;\nlet b = 2;\n```\n",
		"book/deep/ch2.md":     rustBlock,
		"book/deep/notes.MD":   rustBlock,
		".hidden/draft.md":     rustBlock,
		"book/deep/ch3.md.bak": rustBlock,
	})

	res, err := BuildBatch(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	want := []batch.Span{
		{File: filepath.Join(root, ".hidden", "draft.md"), Range: fence.Range{Start: 2, End: 2}},
		{File: filepath.Join(root, "book", "ch1.md"), Range: fence.Range{Start: 2, End: 2}},
		{File: filepath.Join(root, "book", "ch1.md"), Range: fence.Range{Start: 6, End: 7}},
		{File: filepath.Join(root, "book", "deep", "ch2.md"), Range: fence.Range{Start: 2, End: 2}},
	}
	if diff := cmp.Diff(want, res.Batch.Spans()); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	if len(res.Files) != 4 {
		t.Fatalf("scanned %d files, want 4: %v", len(res.Files), res.Files)
	}
}

func TestBuildBatchExclude(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{
		"doc.md":            rustBlock,
		"target/gen.md":     rustBlock,
		"vendor/x/lib.md":   rustBlock,
		"src/vendor.md":     rustBlock,
		"node_modules/a.md": rustBlock,
	})

	res, err := BuildBatch(context.Background(), root, Options{
		Collect: CollectOptions{Exclude: []string{"target", "vendor", "node_*"}},
	})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	want := []string{filepath.Join(root, "doc.md"), filepath.Join(root, "src", "vendor.md")}
	if diff := cmp.Diff(want, res.Batch.Files()); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBatchParallelMatchesSerial(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+"/doc.md"] = rustBlock + "\n```rust\nx\n```\n"
	}
	testkit.WriteTree(t, root, files)

	serial, err := BuildBatch(context.Background(), root, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("serial BuildBatch: %v", err)
	}
	parallel, err := BuildBatch(context.Background(), root, Options{Jobs: 4})
	if err != nil {
		t.Fatalf("parallel BuildBatch: %v", err)
	}
	if diff := cmp.Diff(serial.Batch.Spans(), parallel.Batch.Spans()); diff != "" {
		t.Fatalf("parallel batch differs (-serial +parallel):\n%s", diff)
	}
	if serial.Batch.Len() != 16 {
		t.Fatalf("got %d spans, want 16", serial.Batch.Len())
	}
}

func TestBuildBatchUsesCache(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{
		"a.md": rustBlock,
		"b.md": "```rust\nlet b = 2;\n```\n",
	})
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}

	first, err := BuildBatch(context.Background(), root, Options{Cache: c})
	if err != nil {
		t.Fatalf("first BuildBatch: %v", err)
	}
	if first.CacheHits != 0 {
		t.Fatalf("first run CacheHits = %d, want 0", first.CacheHits)
	}
	second, err := BuildBatch(context.Background(), root, Options{Cache: c})
	if err != nil {
		t.Fatalf("second BuildBatch: %v", err)
	}
	if second.CacheHits != 2 {
		t.Fatalf("second run CacheHits = %d, want 2", second.CacheHits)
	}
	if diff := cmp.Diff(first.Batch.Spans(), second.Batch.Spans()); diff != "" {
		t.Fatalf("cached batch differs (-fresh +cached):\n%s", diff)
	}
}

func TestBuildBatchEmpty(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{"a.md": "# nothing\n", "b.md": "```go\nx := 1\n```\n"})

	res, err := BuildBatch(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	if !res.Batch.Empty() {
		t.Fatalf("expected empty batch, got %v", res.Batch.Spans())
	}
}

func TestBuildBatchRootErrors(t *testing.T) {
	if _, err := BuildBatch(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(file, []byte(rustBlock), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := BuildBatch(context.Background(), file, Options{}); err == nil {
		t.Fatalf("expected error for file root")
	}

	if _, err := BuildBatch(context.Background(), t.TempDir(), Options{
		Collect: CollectOptions{Exclude: []string{"["}},
	}); err == nil {
		t.Fatalf("expected error for malformed exclude pattern")
	}
}

func TestBuildBatchUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{"a.md": rustBlock})
	path := filepath.Join(root, "a.md")
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(path, 0o600) })

	if _, err := BuildBatch(context.Background(), root, Options{}); !os.IsPermission(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestBuildBatchProgressEvents(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{"a.md": rustBlock, "b.md": "text\n"})

	var (
		mu     sync.Mutex
		events []Event
	)
	sink := SinkFunc(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})
	if _, err := BuildBatch(context.Background(), root, Options{Progress: sink}); err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}

	spansByFile := map[string]int{}
	var sawWalkDone, sawDetectDone bool
	for _, ev := range events {
		switch {
		case ev.File == "" && ev.Stage == StageWalk && ev.Status == StatusDone:
			sawWalkDone = true
		case ev.File == "" && ev.Stage == StageDetect && ev.Status == StatusDone:
			sawDetectDone = true
			if ev.Spans != 1 {
				t.Fatalf("detect done Spans = %d, want 1", ev.Spans)
			}
		case ev.File != "" && ev.Status == StatusDone:
			spansByFile[filepath.Base(ev.File)] = ev.Spans
		}
	}
	if !sawWalkDone || !sawDetectDone {
		t.Fatalf("missing stage events: %+v", events)
	}
	if diff := cmp.Diff(map[string]int{"a.md": 1, "b.md": 0}, spansByFile); diff != "" {
		t.Fatalf("per-file spans mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyseMarkdownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	src := "````md\n```rust\nhidden\n```\n````\n```rust\nshown\n```\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	det := fence.NewDetector(fence.Options{Lang: "rust", Strategy: fence.StrategyMarkdown})
	a, err := Analyse(path, det, nil)
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if diff := cmp.Diff([]fence.Range{{Start: 6, End: 6}}, a.Ranges); diff != "" {
		t.Fatalf("ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBatchIdenticalDocumentsShareCacheEntry(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{"a.md": rustBlock, "b.md": rustBlock})
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}

	res, err := BuildBatch(context.Background(), root, Options{Cache: c})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	// the key is the content, so b.md reuses the entry a.md just wrote
	if res.CacheHits != 1 {
		t.Fatalf("CacheHits = %d, want 1", res.CacheHits)
	}
	if res.Batch.Len() != 2 {
		t.Fatalf("got %d spans, want 2", res.Batch.Len())
	}
}

func TestBuildBatchSkipsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	testkit.WriteTree(t, root, map[string]string{
		"a.md":         rustBlock,
		"real/deep.md": rustBlock,
		"target.txt":   rustBlock,
	})
	links := map[string]string{
		"notes.md":    filepath.Join(root, "real"),
		"alias.md":    filepath.Join(root, "target.txt"),
		"dangling.md": filepath.Join(root, "missing"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	res, err := BuildBatch(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("BuildBatch: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.md"),
		filepath.Join(root, "alias.md"),
		filepath.Join(root, "real", "deep.md"),
	}
	if diff := cmp.Diff(want, res.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}
