package ui

import (
	"github.com/revoice-audio/revoice/internal/batch"
)

// JobStartMsg indicates a file has started processing
type JobStartMsg struct {
	Index int
	Path  string
}

// JobProgressMsg carries a mid-job progress update
type JobProgressMsg struct {
	Index    int
	Stage    batch.Stage
	Progress float64 // 0.0 to 1.0
	Backend  string
	Warning  string
}

// JobDoneMsg indicates a file has reached a terminal state
type JobDoneMsg struct {
	Index      int
	State      batch.JobState
	OutputPath string
	Warning    string
	Err        error
}

// BatchDoneMsg indicates the whole batch has finished
type BatchDoneMsg struct {
	Stats batch.Stats
}

// MsgFromEvent converts a runner event into the matching UI message.
func MsgFromEvent(ev batch.Event) interface{} {
	switch ev.State {
	case batch.JobRunning:
		if ev.Stage == "" {
			return JobStartMsg{Index: ev.Index, Path: ev.Path}
		}
		return JobProgressMsg{
			Index:    ev.Index,
			Stage:    ev.Stage,
			Progress: ev.Progress,
			Backend:  ev.Backend,
			Warning:  ev.Warning,
		}
	default:
		return JobDoneMsg{
			Index:      ev.Index,
			State:      ev.State,
			OutputPath: ev.OutputPath,
			Warning:    ev.Warning,
			Err:        ev.Err,
		}
	}
}
