package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fencefmt/internal/batch"
	"fencefmt/internal/cache"
	"fencefmt/internal/fence"
	"fencefmt/internal/trace"
)

// Options configures BuildBatch.
type Options struct {
	Collect  CollectOptions
	Detector *fence.Detector // nil means the default rust toggle detector
	// Jobs bounds concurrent detection. Values <= 1 scan serially.
	Jobs  int
	Cache *cache.Cache // optional
	// Progress receives events; it must be goroutine-safe when Jobs > 1.
	Progress ProgressSink
}

// Result is the outcome of BuildBatch.
type Result struct {
	Batch     batch.Batch
	Files     []string // every scanned document, in batch order
	CacheHits int
	Walk      time.Duration
	Detect    time.Duration
}

// Analysis is the detector output for one document.
type Analysis struct {
	Path   string
	Ranges []fence.Range
	Cached bool
}

// Analyse reads path and detects its blocks. Cache failures never fail the
// analysis; read failures do.
func Analyse(path string, det *fence.Detector, c *cache.Cache) (Analysis, error) {
	if det == nil {
		det = fence.NewDetector(fence.Options{})
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Analysis{}, err
	}

	var key cache.Digest
	if c != nil {
		key = cache.Key(data, det.Options())
		if ranges, ok, err := c.Get(key); err == nil && ok {
			return Analysis{Path: path, Ranges: ranges, Cached: true}, nil
		}
	}

	ranges := det.Detect(string(data))
	if c != nil {
		_ = c.Put(key, ranges)
	}
	return Analysis{Path: path, Ranges: ranges}, nil
}

// BuildBatch collects the documents under root, detects their blocks and
// returns every span in one batch. The batch order does not depend on Jobs.
func BuildBatch(ctx context.Context, root string, opts Options) (Result, error) {
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	det := opts.Detector
	if det == nil {
		det = fence.NewDetector(fence.Options{})
	}

	var result Result

	walkSpan := trace.Begin(tracer, trace.ScopeStage, "walk", parent)
	emit(opts.Progress, Event{Stage: StageWalk, Status: StatusWorking})
	files, err := CollectDocuments(ctx, root, opts.Collect)
	result.Walk = walkSpan.End(fmt.Sprintf("%d files", len(files)))
	if err != nil {
		trace.Error(tracer, "walk", err, parent)
		emit(opts.Progress, Event{Stage: StageWalk, Status: StatusError, Err: err})
		return result, err
	}
	emit(opts.Progress, Event{Stage: StageWalk, Status: StatusDone, Elapsed: result.Walk})
	result.Files = files
	for _, file := range files {
		emit(opts.Progress, Event{File: file, Stage: StageDetect, Status: StatusQueued})
	}

	detectSpan := trace.Begin(tracer, trace.ScopeStage, "detect", parent)
	analyses, err := analyseAll(ctx, files, det, opts)
	if err != nil {
		result.Detect = detectSpan.End("failed")
		trace.Error(tracer, "detect", err, parent)
		emit(opts.Progress, Event{Stage: StageDetect, Status: StatusError, Err: err})
		return result, err
	}

	for _, a := range analyses {
		result.Batch.AddRanges(a.Path, a.Ranges)
		if a.Cached {
			result.CacheHits++
		}
	}
	detectSpan.WithExtra("spans", fmt.Sprint(result.Batch.Len()))
	detectSpan.WithExtra("cache_hits", fmt.Sprint(result.CacheHits))
	result.Detect = detectSpan.End(fmt.Sprintf("%d files", len(files)))
	emit(opts.Progress, Event{Stage: StageDetect, Status: StatusDone, Spans: result.Batch.Len(), Elapsed: result.Detect})
	return result, nil
}

func analyseAll(ctx context.Context, files []string, det *fence.Detector, opts Options) ([]Analysis, error) {
	analyses := make([]Analysis, len(files))
	if opts.Jobs <= 1 || len(files) < 2 {
		for i, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			a, err := analyseOne(ctx, path, det, opts)
			if err != nil {
				return nil, err
			}
			analyses[i] = a
		}
		return analyses, nil
	}

	// indices are unique per goroutine, no lock needed
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Jobs, len(files)))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := analyseOne(gctx, path, det, opts)
			if err != nil {
				return err
			}
			analyses[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analyses, nil
}

func analyseOne(ctx context.Context, path string, det *fence.Detector, opts Options) (Analysis, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFile, "file:"+path, trace.CurrentSpan(ctx).SpanID)
	emit(opts.Progress, Event{File: path, Stage: StageDetect, Status: StatusWorking})

	a, err := Analyse(path, det, opts.Cache)
	if err != nil {
		span.End("error")
		emit(opts.Progress, Event{File: path, Stage: StageDetect, Status: StatusError, Err: err})
		return Analysis{}, err
	}

	status := StatusDone
	if a.Cached {
		status = StatusCached
	}
	elapsed := span.End(fmt.Sprintf("%d spans", len(a.Ranges)))
	if tracer.Level() >= trace.LevelDebug {
		for _, r := range a.Ranges {
			trace.Point(tracer, trace.ScopeBlock, "block", path+":"+r.String(), span.ID())
		}
	}
	emit(opts.Progress, Event{File: path, Stage: StageDetect, Status: status, Spans: len(a.Ranges), Elapsed: elapsed})
	return a, nil
}
