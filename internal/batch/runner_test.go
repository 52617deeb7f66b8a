package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// fakeProcessor completes, fails or blocks per path.
type fakeProcessor struct {
	failOn   map[string]error
	notes    []Note
	onStart  func(path string)
	invoked  []string
	outputFn func(path string) string
}

func (f *fakeProcessor) Process(ctx context.Context, path string, note func(Note)) (string, error) {
	f.invoked = append(f.invoked, path)
	if f.onStart != nil {
		f.onStart(path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, n := range f.notes {
		note(n)
	}
	if err, ok := f.failOn[path]; ok {
		return "", err
	}
	if f.outputFn != nil {
		return f.outputFn(path), nil
	}
	return path + ".out", nil
}

func collectEvents(t *testing.T, r *Runner, paths []string) ([]Event, Stats) {
	t.Helper()
	var events []Event
	stats := r.Run(context.Background(), paths, func(ev Event) {
		events = append(events, ev)
	})
	return events, stats
}

func terminalEvents(events []Event) map[int][]Event {
	byJob := make(map[int][]Event)
	for _, ev := range events {
		if ev.State == JobDone || ev.State == JobFailed || ev.State == JobCancelled {
			byJob[ev.Index] = append(byJob[ev.Index], ev)
		}
	}
	return byJob
}

func TestRunnerAllSucceed(t *testing.T) {
	proc := &fakeProcessor{
		notes: []Note{{Stage: StageDenoise, Progress: 0.5, Backend: "spectral-gate"}},
	}
	paths := []string{"a.mp4", "b.mp3", "c.wav"}

	events, stats := collectEvents(t, NewRunner(proc, nil), paths)

	if stats.Succeeded != 3 || stats.Failed != 0 || stats.Cancelled != 0 {
		t.Fatalf("stats = %+v, want 3 succeeded", stats)
	}

	terms := terminalEvents(events)
	for i := range paths {
		if len(terms[i]) != 1 {
			t.Errorf("job %d has %d terminal events, want 1", i, len(terms[i]))
			continue
		}
		ev := terms[i][0]
		if ev.State != JobDone {
			t.Errorf("job %d state = %s, want done", i, ev.State)
		}
		if ev.OutputPath != paths[i]+".out" {
			t.Errorf("job %d output = %q", i, ev.OutputPath)
		}
	}

	// Seq strictly increases by one across the stream
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
}

func TestRunnerProgressEvents(t *testing.T) {
	proc := &fakeProcessor{
		notes: []Note{
			{Stage: StageExtract, Progress: 0.0},
			{Stage: StageDenoise, Progress: 0.5, Backend: "rnnoise"},
			{Stage: StageRemux, Progress: 1.0},
		},
	}

	events, _ := collectEvents(t, NewRunner(proc, nil), []string{"a.mp4"})

	var running []Event
	for _, ev := range events {
		if ev.State == JobRunning && ev.Stage != "" {
			running = append(running, ev)
		}
	}
	if len(running) != 3 {
		t.Fatalf("got %d progress events, want 3", len(running))
	}
	if running[1].Backend != "rnnoise" {
		t.Errorf("backend = %q, want rnnoise", running[1].Backend)
	}
	if running[2].Progress != 1.0 {
		t.Errorf("final progress = %v, want 1.0", running[2].Progress)
	}

	// All events for the one job share a job ID
	id := events[0].JobID
	if id == uuid.Nil {
		t.Fatal("job ID not set")
	}
	for _, ev := range events {
		if ev.JobID != id {
			t.Fatal("job ID changed mid-job")
		}
	}
}

func TestRunnerFailureContinuesBatch(t *testing.T) {
	boom := errors.New("decode blew up")
	proc := &fakeProcessor{failOn: map[string]error{"b.mp3": boom}}
	paths := []string{"a.mp4", "b.mp3", "c.wav"}

	events, stats := collectEvents(t, NewRunner(proc, nil), paths)

	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 2 succeeded 1 failed", stats)
	}
	if len(proc.invoked) != 3 {
		t.Fatalf("invoked %d jobs, want all 3", len(proc.invoked))
	}

	terms := terminalEvents(events)
	if ev := terms[1][0]; ev.State != JobFailed || !errors.Is(ev.Err, boom) {
		t.Errorf("job 1 terminal = %+v, want failed with cause", ev)
	}
}

func TestRunnerCancelMidBatch(t *testing.T) {
	var runner *Runner
	proc := &fakeProcessor{
		onStart: func(path string) {
			if path == "b.mp3" {
				runner.Cancel()
			}
		},
	}
	runner = NewRunner(proc, nil)

	paths := []string{"a.mp4", "b.mp3", "c.wav", "d.mkv"}
	events, stats := collectEvents(t, runner, paths)

	if stats.Succeeded != 1 {
		t.Fatalf("stats = %+v, want 1 succeeded", stats)
	}
	if stats.Cancelled != 3 {
		t.Fatalf("stats = %+v, want 3 cancelled", stats)
	}

	// Jobs after the cancellation point never run
	for _, path := range proc.invoked {
		if path == "c.wav" || path == "d.mkv" {
			t.Errorf("job %s ran after cancellation", path)
		}
	}

	terms := terminalEvents(events)
	for i := range paths {
		if len(terms[i]) != 1 {
			t.Errorf("job %d has %d terminal events, want exactly 1", i, len(terms[i]))
		}
	}
	for i := 1; i < len(paths); i++ {
		if terms[i][0].State != JobCancelled {
			t.Errorf("job %d state = %s, want cancelled", i, terms[i][0].State)
		}
	}
}

func TestRunnerEmptyBatch(t *testing.T) {
	events, stats := collectEvents(t, NewRunner(&fakeProcessor{}, nil), nil)
	if stats.Total != 0 || len(events) != 0 {
		t.Fatalf("empty batch produced %d events, stats %+v", len(events), stats)
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to JobState
		want     bool
	}{
		{JobPending, JobRunning, true},
		{JobPending, JobCancelled, true},
		{JobPending, JobDone, false},
		{JobRunning, JobRunning, true},
		{JobRunning, JobDone, true},
		{JobRunning, JobFailed, true},
		{JobRunning, JobCancelled, true},
		{JobDone, JobRunning, false},
		{JobFailed, JobCancelled, false},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s->%s", tt.from, tt.to)
		if got := isValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s = %v, want %v", name, got, tt.want)
		}
	}
}

// blockingProcessor holds its job open until the context is cancelled.
type blockingProcessor struct {
	started chan struct{}
}

func (b *blockingProcessor) Process(ctx context.Context, path string, note func(Note)) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunnerCancelFromAnotherGoroutine(t *testing.T) {
	proc := &blockingProcessor{started: make(chan struct{}, 1)}
	r := NewRunner(proc, nil)

	done := make(chan Stats, 1)
	go func() {
		done <- r.Run(context.Background(), []string{"a.mp4", "b.mp4"}, func(Event) {})
	}()

	// Cancel only once the first job is blocked inside Process, so the
	// interrupt has to travel through the job context.
	<-proc.started
	r.Cancel()

	stats := <-done
	if stats.Cancelled != 2 || stats.Succeeded != 0 {
		t.Fatalf("stats = %+v, want 2 cancelled", stats)
	}
}

func TestRunnerCancelBeforeRun(t *testing.T) {
	proc := &fakeProcessor{}
	r := NewRunner(proc, nil)
	r.Cancel()

	events, stats := collectEvents(t, r, []string{"a.mp4", "b.mp4"})

	if stats.Cancelled != 2 {
		t.Fatalf("stats = %+v, want 2 cancelled", stats)
	}
	if len(proc.invoked) != 0 {
		t.Errorf("processor invoked for %v after cancel", proc.invoked)
	}
	for _, ev := range events {
		if ev.State != JobCancelled {
			t.Errorf("event state = %s, want cancelled", ev.State)
		}
	}
}
