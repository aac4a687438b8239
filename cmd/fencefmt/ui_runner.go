package main

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"fencefmt/internal/driver"
	"fencefmt/internal/ui"
)

// errInterrupted reports that the progress UI was closed before the scan
// finished. Nothing is formatted in that case.
var errInterrupted = errors.New("interrupted before the scan finished")

type batchOutcome struct {
	result driver.Result
	err    error
}

// buildBatch runs driver.BuildBatch, rendering progress when the UI is on.
func buildBatch(ctx context.Context, s *settings, opts driver.Options, out io.Writer) (driver.Result, error) {
	if !shouldUseTUI(s.ui, s.quiet, out) {
		return driver.BuildBatch(ctx, s.root, opts)
	}
	title := "scanning " + s.root
	return collectWithUI(ctx, s.root, opts, 256, func(events <-chan driver.Event) error {
		program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(out), tea.WithInput(nil))
		_, err := program.Run()
		return err
	})
}

// collectWithUI builds the batch on a worker goroutine while runUI consumes
// its progress events. If runUI returns before the worker is done, the scan
// is cancelled and errInterrupted is returned.
func collectWithUI(ctx context.Context, root string, opts driver.Options, buffer int, runUI func(<-chan driver.Event) error) (driver.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, buffer)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.BuildBatch(ctx, root, opts)
		outcomeCh <- batchOutcome{result: res, err: err}
		close(events)
	}()

	uiErr := runUI(events)

	// the outcome is sent before events is closed, so a UI that saw the
	// whole stream always finds it here
	var (
		outcome     batchOutcome
		interrupted bool
	)
	select {
	case outcome = <-outcomeCh:
	default:
		interrupted = true
		cancel()
	}
	go func() {
		for range events {
		}
	}()
	if interrupted {
		outcome = <-outcomeCh
	}

	switch {
	case uiErr != nil:
		return outcome.result, uiErr
	case interrupted:
		return outcome.result, errInterrupted
	default:
		return outcome.result, outcome.err
	}
}
