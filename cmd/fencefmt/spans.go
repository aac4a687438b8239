package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSpansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spans [root]",
		Short: "List the fenced blocks that would be formatted",
		Long: `Scan the root directory and print every detected block without running
the formatter. With --format json the output is exactly the request the
formatter would receive.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSpans,
	}
	addScanFlags(cmd)
	cmd.Flags().String("format", "text", "output format (text|json)")
	return cmd
}

func runSpans(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	s, err := resolveSettings(cmd, rootArg(args))
	if err != nil {
		return err
	}
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer stopTracing()

	ctx, runSpan := beginRun(cmd.Context(), "spans", s.root)
	opts, err := s.driverOptions()
	if err != nil {
		runSpan.End("failed")
		return err
	}
	out := cmd.OutOrStdout()
	res, err := buildBatch(ctx, s, opts, cmd.ErrOrStderr())
	if err != nil {
		runSpan.End("failed")
		return err
	}
	runSpan.End(fmt.Sprintf("%d spans", res.Batch.Len()))

	if format == "json" {
		request, err := res.Batch.Encode(s.lineBase)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", request)
		return err
	}

	for _, entry := range res.Batch.Entries(s.lineBase) {
		fmt.Fprintf(out, "%s:%d-%d\n", entry.File, entry.Range[0], entry.Range[1])
	}
	if !s.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d spans (%d lines) in %d of %d files\n", res.Batch.Len(), res.Batch.Lines(), len(res.Batch.Files()), len(res.Files))
	}
	if s.timings {
		printTimings(cmd.ErrOrStderr(), res, nil)
	}
	return nil
}
