package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fencefmt/internal/formatter"
	"fencefmt/internal/observ"
	"fencefmt/internal/trace"
)

var noticeColor = color.New(color.FgYellow)

// runFormat scans the root directory and runs the formatter once over every
// detected block. The formatter's captured stdout, a blank line and its
// captured stderr are printed after it exits, whether it succeeded or not.
func runFormat(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd, rootArg(args))
	if err != nil {
		return err
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer stopTracing()

	ctx, runSpan := beginRun(cmd.Context(), "format", s.root)
	timer := observ.NewTimer()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	opts, err := s.driverOptions()
	if err != nil {
		runSpan.End("failed")
		return err
	}
	endScan := timer.Track("scan")
	res, err := buildBatch(ctx, s, opts, out)
	endScan(fmt.Sprintf("%d files", len(res.Files)))
	if err != nil {
		runSpan.End("failed")
		return err
	}

	if res.Batch.Empty() && s.config.Formatter.SkipEmpty {
		if !s.quiet {
			noticeColor.Fprintf(errOut, "nothing to format: no %s blocks in %d files\n", s.detector.Lang, len(res.Files))
		}
		if s.timings {
			printTimings(errOut, res, timer)
		}
		runSpan.End("skipped")
		return nil
	}

	request, err := res.Batch.Encode(s.lineBase)
	if err != nil {
		runSpan.End("failed")
		return err
	}
	trace.Point(trace.FromContext(ctx), trace.ScopeStage, "request", fmt.Sprintf("%d spans, %d bytes", res.Batch.Len(), len(request)), runSpan.ID())

	endFormat := timer.Track("format")
	result, runErr := formatter.Run(ctx, s.tool, request)
	endFormat(s.tool.String())

	var exitErr *formatter.ExitError
	if runErr == nil || errors.As(runErr, &exitErr) {
		printCaptured(out, result.Stdout, result.Stderr)
	}
	if s.timings {
		printTimings(errOut, res, timer)
	}
	if runErr != nil {
		trace.Error(trace.FromContext(ctx), "formatter", runErr, runSpan.ID())
		runSpan.End("failed")
		return fmt.Errorf("formatting %d spans in %d files: %w", res.Batch.Len(), len(res.Batch.Files()), runErr)
	}
	runSpan.End(fmt.Sprintf("%d spans", res.Batch.Len()))
	return nil
}

// beginRun opens the run-scoped trace span and makes it the parent of
// everything started from the returned context.
func beginRun(ctx context.Context, name, root string) (context.Context, *trace.Span) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRun, name, 0)
	span.WithExtra("root", root)
	return trace.WithSpan(ctx, span), span
}

func printCaptured(out io.Writer, stdout, stderr []byte) {
	_, _ = out.Write(stdout)
	if len(stdout) > 0 && stdout[len(stdout)-1] != '\n' {
		_, _ = io.WriteString(out, "\n")
	}
	_, _ = io.WriteString(out, "\n")
	_, _ = out.Write(stderr)
	if len(stderr) > 0 && stderr[len(stderr)-1] != '\n' {
		_, _ = io.WriteString(out, "\n")
	}
}
