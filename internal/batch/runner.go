package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Processor turns one input file into one output file. note may be
// called any number of times to report progress; it must not be called
// after Process returns.
type Processor interface {
	Process(ctx context.Context, path string, note func(Note)) (outputPath string, err error)
}

// Runner drives a Processor over a list of files sequentially. Events
// are delivered to a single callback in order. A Runner is single-use.
type Runner struct {
	processor Processor
	log       *logrus.Entry

	seq       uint64
	cancelled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRunner(processor Processor, log *logrus.Entry) *Runner {
	return &Runner{processor: processor, log: log}
}

// Cancel stops the batch. The running job is interrupted through its
// context; jobs not yet started are reported as cancelled. Safe to call
// from any goroutine, before or during Run.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
}

// Run processes each path in order and returns the batch totals. emit
// is called synchronously from the run goroutine, so event order is the
// emission order.
func (r *Runner) Run(ctx context.Context, paths []string, emit func(Event)) Stats {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	if r.cancelled.Load() {
		cancel()
	}

	stats := Stats{Total: len(paths)}

	states := make([]JobState, len(paths))
	for i := range states {
		states[i] = JobPending
	}

	send := func(i int, jobID uuid.UUID, ev Event) {
		if !isValidTransition(states[i], ev.State) {
			return
		}
		states[i] = ev.State
		r.seq++
		ev.Seq = r.seq
		ev.JobID = jobID
		ev.Index = i
		ev.Path = paths[i]
		emit(ev)
	}

	for i, path := range paths {
		jobID := uuid.New()

		if r.cancelled.Load() || ctx.Err() != nil {
			send(i, jobID, Event{State: JobCancelled})
			stats.Cancelled++
			continue
		}

		if r.log != nil {
			r.log.WithFields(logrus.Fields{
				"job":  jobID,
				"file": path,
			}).Info("starting job")
		}
		send(i, jobID, Event{State: JobRunning})

		var lastWarning string
		note := func(n Note) {
			if n.Warning != "" {
				lastWarning = n.Warning
			}
			send(i, jobID, Event{
				State:    JobRunning,
				Stage:    n.Stage,
				Progress: n.Progress,
				Backend:  n.Backend,
				Warning:  n.Warning,
			})
		}

		output, err := r.processor.Process(ctx, path, note)
		switch {
		case errors.Is(err, context.Canceled) || (err != nil && ctx.Err() != nil):
			send(i, jobID, Event{State: JobCancelled})
			stats.Cancelled++
		case err != nil:
			if r.log != nil {
				r.log.WithField("file", path).WithError(err).Error("job failed")
			}
			send(i, jobID, Event{State: JobFailed, Err: err})
			stats.Failed++
		default:
			if r.log != nil {
				r.log.WithFields(logrus.Fields{
					"file":   path,
					"output": output,
				}).Info("job finished")
			}
			send(i, jobID, Event{State: JobDone, OutputPath: output, Warning: lastWarning})
			stats.Succeeded++
		}
	}

	return stats
}
