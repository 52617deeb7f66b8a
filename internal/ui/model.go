// Package ui provides the Bubbletea terminal user interface for revoice
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/revoice-audio/revoice/internal/batch"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusRunning
	StatusComplete
	StatusError
	StatusCancelled
)

// FileProgress tracks progress for a single input file
type FileProgress struct {
	InputPath  string
	OutputPath string
	Status     FileStatus

	Stage    batch.Stage
	Progress float64 // 0.0 to 1.0
	Backend  string
	Warning  string

	StartTime   time.Time
	ElapsedTime time.Duration

	Error error
}

// tickMsg drives the spinner and elapsed-time display
type tickMsg time.Time

// Model is the Bubbletea model for the batch UI
type Model struct {
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int
	Stats          batch.Stats

	StartTime  time.Time
	Done       bool
	Cancelling bool

	// Cancel stops the batch; quitting waits for BatchDoneMsg so the
	// runner can report the remaining jobs as cancelled
	Cancel func()

	spinnerIndex int

	Width  int
	Height int
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string, cancel func()) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1,
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		Cancel:       cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Cancelling && m.Cancel != nil {
				m.Cancelling = true
				m.Cancel()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		m.spinnerIndex++
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			fp := &m.Files[m.CurrentIndex]
			if fp.Status == StatusRunning {
				fp.ElapsedTime = time.Since(fp.StartTime)
			}
		}
		if !m.Done {
			return m, tick()
		}

	case JobStartMsg:
		if msg.Index >= 0 && msg.Index < len(m.Files) {
			m.CurrentIndex = msg.Index
			m.Files[msg.Index].Status = StatusRunning
			m.Files[msg.Index].StartTime = time.Now()
		}

	case JobProgressMsg:
		if msg.Index >= 0 && msg.Index < len(m.Files) {
			fp := &m.Files[msg.Index]
			fp.Stage = msg.Stage
			fp.Progress = msg.Progress
			if msg.Backend != "" {
				fp.Backend = msg.Backend
			}
			if msg.Warning != "" {
				fp.Warning = msg.Warning
			}
			fp.ElapsedTime = time.Since(fp.StartTime)
		}

	case JobDoneMsg:
		if msg.Index >= 0 && msg.Index < len(m.Files) {
			fp := &m.Files[msg.Index]
			fp.OutputPath = msg.OutputPath
			fp.Error = msg.Err
			if msg.Warning != "" {
				fp.Warning = msg.Warning
			}

			switch msg.State {
			case batch.JobDone:
				fp.Status = StatusComplete
				m.CompletedFiles++
			case batch.JobCancelled:
				fp.Status = StatusCancelled
			default:
				fp.Status = StatusError
				m.FailedFiles++
			}
		}

	case BatchDoneMsg:
		m.Stats = msg.Stats
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
