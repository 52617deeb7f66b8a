package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/revoice-audio/revoice/internal/batch"
)

// Spinner frames for the active file indicator
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stageLabels maps pipeline stages to display names
var stageLabels = map[batch.Stage]string{
	batch.StageExtract:   "Extracting Audio",
	batch.StageDenoise:   "Reducing Noise",
	batch.StageEnhance:   "Enhancing Voice",
	batch.StageNormalize: "Normalizing Loudness",
	batch.StageRemux:     "Writing Output",
}

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2E5090")).
		Render("Revoice 🎙 - Audio Restoration")

	status := fmt.Sprintf("Restoring %d file(s)", m.TotalFiles)
	if m.Cancelling {
		status = "Cancelling... finishing current file"
	}
	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(status)

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for i := range m.Files {
		b.WriteString(renderFileEntry(m, i))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(m Model, index int) string {
	file := m.Files[index]
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
		entry := fmt.Sprintf(" %s %s → %s", icon, fileName, filepath.Base(file.OutputPath))
		if file.Warning != "" {
			entry += fmt.Sprintf("\n   ⚠ %s", file.Warning)
		}
		return entry

	case StatusRunning:
		frame := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render(frame)
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	case StatusCancelled:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("⊘")
		return fmt.Sprintf(" %s %s\n   Cancelled", icon, fileName)

	default:
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#2E5090")).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	stage := stageLabels[file.Stage]
	if stage == "" {
		stage = "Starting"
	}
	if file.Backend != "" {
		stage += fmt.Sprintf(" (%s)", file.Backend)
	}
	content.WriteString(stage)
	content.WriteString("\n")

	content.WriteString(renderProgressBar(file.Progress, 40))
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs", file.ElapsedTime.Seconds()))

	if file.Warning != "" {
		content.WriteString(fmt.Sprintf("\n⚠  %s", file.Warning))
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#888888")).
		Padding(0, 1).
		Width(60)

	var content string
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
		content = fmt.Sprintf("File %d of %d (%d complete)  |  q to cancel",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles)
	} else {
		content = fmt.Sprintf("Overall: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	headerText := "✨ Restoration Complete"
	headerColor := "#00AA00"
	if m.Stats.Cancelled > 0 {
		headerText = "Restoration Stopped"
		headerColor = "#FFA500"
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(headerColor)).
		Render(headerText)
	b.WriteString(header)
	b.WriteString("\n\n")

	for i := range m.Files {
		b.WriteString(renderFileEntry(m, i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d restored, %d failed, %d cancelled\n",
		m.Stats.Succeeded, m.Stats.Failed, m.Stats.Cancelled))

	return b.String()
}
