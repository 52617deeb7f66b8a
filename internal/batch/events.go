// Package batch runs the restoration pipeline over a list of files,
// one at a time, emitting progress events for each.
package batch

import (
	"github.com/google/uuid"
)

// Stage identifies the pipeline step a progress event refers to.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageDenoise   Stage = "denoise"
	StageEnhance   Stage = "enhance"
	StageNormalize Stage = "normalize"
	StageRemux     Stage = "remux"
)

// JobState is the lifecycle state of a single file.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Event describes one observable change in a job. Events for a batch
// form a single ordered stream; Seq increases by one per event.
type Event struct {
	Seq   uint64
	JobID uuid.UUID
	Index int
	Path  string
	State JobState

	// Progress detail, meaningful while State is JobRunning.
	Stage    Stage
	Progress float64
	Backend  string
	Warning  string

	// Terminal detail.
	OutputPath string
	Err        error
}

// Note is a mid-job progress report from the processor.
type Note struct {
	Stage    Stage
	Progress float64
	Backend  string
	Warning  string
}

// Stats summarises a finished batch.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
}

// validTransitions lists the allowed state changes. Every job emits
// exactly one terminal event.
var validTransitions = map[JobState][]JobState{
	JobPending: {JobRunning, JobCancelled},
	JobRunning: {JobRunning, JobDone, JobFailed, JobCancelled},
}

func isValidTransition(from, to JobState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
