package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/revoice-audio/revoice/internal/batch"
)

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModelTracksJobLifecycle(t *testing.T) {
	m := NewModel([]string{"a.mp4", "b.mp3"}, nil)

	m = apply(t, m,
		JobStartMsg{Index: 0, Path: "a.mp4"},
		JobProgressMsg{Index: 0, Stage: batch.StageDenoise, Progress: 0.5, Backend: "rnnoise"},
	)

	if m.CurrentIndex != 0 || m.Files[0].Status != StatusRunning {
		t.Fatalf("file 0 not running: %+v", m.Files[0])
	}
	if m.Files[0].Backend != "rnnoise" || m.Files[0].Progress != 0.5 {
		t.Errorf("progress not tracked: %+v", m.Files[0])
	}

	m = apply(t, m, JobDoneMsg{Index: 0, State: batch.JobDone, OutputPath: "a-restored.mp4"})
	if m.Files[0].Status != StatusComplete || m.CompletedFiles != 1 {
		t.Errorf("completion not tracked: %+v", m.Files[0])
	}

	m = apply(t, m,
		JobStartMsg{Index: 1, Path: "b.mp3"},
		JobDoneMsg{Index: 1, State: batch.JobFailed},
	)
	if m.Files[1].Status != StatusError || m.FailedFiles != 1 {
		t.Errorf("failure not tracked: %+v", m.Files[1])
	}

	m = apply(t, m, BatchDoneMsg{Stats: batch.Stats{Total: 2, Succeeded: 1, Failed: 1}})
	if !m.Done {
		t.Fatal("batch completion not tracked")
	}
}

func TestModelCancelKey(t *testing.T) {
	called := false
	m := NewModel([]string{"a.mp4"}, func() { called = true })

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if !called {
		t.Fatal("cancel not invoked")
	}
	if !m.Cancelling {
		t.Fatal("cancelling state not set")
	}
}

func TestMsgFromEvent(t *testing.T) {
	start := MsgFromEvent(batch.Event{Index: 2, Path: "x.mp4", State: batch.JobRunning})
	if _, ok := start.(JobStartMsg); !ok {
		t.Fatalf("got %T, want JobStartMsg", start)
	}

	prog := MsgFromEvent(batch.Event{
		Index: 2, State: batch.JobRunning, Stage: batch.StageRemux, Progress: 0.9,
	})
	if _, ok := prog.(JobProgressMsg); !ok {
		t.Fatalf("got %T, want JobProgressMsg", prog)
	}

	done := MsgFromEvent(batch.Event{Index: 2, State: batch.JobDone, OutputPath: "out.mp4"})
	if _, ok := done.(JobDoneMsg); !ok {
		t.Fatalf("got %T, want JobDoneMsg", done)
	}
}

func TestViewRendersQueue(t *testing.T) {
	m := NewModel([]string{"alpha.mp4", "beta.mp3"}, nil)
	m = apply(t, m, JobStartMsg{Index: 0, Path: "alpha.mp4"})

	out := m.View()
	if !strings.Contains(out, "alpha.mp4") || !strings.Contains(out, "beta.mp3") {
		t.Errorf("view missing file names:\n%s", out)
	}
	if !strings.Contains(out, "Queued") {
		t.Errorf("view missing queued marker:\n%s", out)
	}
}
