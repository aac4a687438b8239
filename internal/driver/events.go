package driver

import "time"

// Stage describes a high-level phase of a run.
type Stage string

const (
	// StageWalk is directory traversal.
	StageWalk Stage = "walk"
	// StageDetect is fence detection over one document.
	StageDetect Stage = "detect"
	// StageFormat is the external formatter call.
	StageFormat Stage = "format"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the document is waiting to be scanned.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is in progress.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusCached indicates detection was served from the cache.
	StatusCached Status = "cached"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress for a document, or for the whole run when File is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Spans   int
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent sends evt on the channel. A nil channel drops it.
func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

// OnEvent calls f(evt).
func (f SinkFunc) OnEvent(evt Event) {
	f(evt)
}

func emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}
