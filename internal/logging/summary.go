package logging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/revoice-audio/revoice/internal/batch"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57"))
	failStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))
	skipStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Summary renders the end-of-batch report from the terminal event of
// each job.
func Summary(terminals []batch.Event, stats batch.Stats) string {
	table := &resultTable{headers: []string{"File", "Result", "Output"}}

	for _, ev := range terminals {
		switch ev.State {
		case batch.JobDone:
			result := okStyle.Render("ok")
			if ev.Warning != "" {
				result = okStyle.Render("ok") + " (with warnings)"
			}
			table.addRow(filepath.Base(ev.Path), result, filepath.Base(ev.OutputPath))
		case batch.JobFailed:
			reason := "failed"
			if ev.Err != nil {
				reason = fmt.Sprintf("failed: %v", ev.Err)
			}
			table.addRow(filepath.Base(ev.Path), failStyle.Render(reason), "")
		case batch.JobCancelled:
			table.addRow(filepath.Base(ev.Path), skipStyle.Render("cancelled"), "")
		}
	}

	var sb strings.Builder
	sb.WriteString(summaryTitleStyle.Render("Batch summary"))
	sb.WriteString("\n")
	sb.WriteString(table.String())
	sb.WriteString(fmt.Sprintf(
		"\n%d file(s): %d restored, %d failed, %d cancelled\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.Cancelled,
	))
	return sb.String()
}
