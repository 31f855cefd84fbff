package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/clouddesk/tenantctl/internal/model"
)

var (
	styleGood    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleNeutral = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleBad     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func styleFor(status model.Status) lipgloss.Style {
	switch status {
	case model.StatusCreated, model.StatusRemoved:
		return styleGood
	case model.StatusFailed, model.StatusCancelled:
		return styleBad
	default:
		return styleNeutral
	}
}

// RenderOptions controls terminal rendering.
type RenderOptions struct {
	// Styled enables ANSI colors; disable when the output is not a TTY.
	Styled bool
}

// Render writes the run result as a table followed by a one-line summary.
func Render(w io.Writer, result *model.RunResult, opts RenderOptions) {
	if result == nil {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatUpper
	tw.AppendHeader(table.Row{"Type", "Key", "Status", "Detail"})

	for _, o := range result.Outcomes {
		status := string(o.Status)
		if opts.Styled {
			status = styleFor(o.Status).Render(status)
		}
		tw.AppendRow(table.Row{o.Type, o.Key, status, o.Detail})
	}
	tw.Render()

	fmt.Fprintln(w, Summary(result))
}

// Summary formats the per-status counts on one line, in a stable order.
func Summary(result *model.RunResult) string {
	if result == nil {
		return ""
	}

	order := []model.Status{
		model.StatusCreated,
		model.StatusAlreadyExists,
		model.StatusRemoved,
		model.StatusNotFound,
		model.StatusWouldCreate,
		model.StatusWouldRemove,
		model.StatusFailed,
		model.StatusCancelled,
	}

	out := fmt.Sprintf("%d resources", len(result.Outcomes))
	for _, s := range order {
		if n := result.Counts[s]; n > 0 {
			out += fmt.Sprintf(", %d %s", n, s)
		}
	}
	if result.Duration > 0 {
		out += fmt.Sprintf(" (%s)", result.Duration.Round(time.Millisecond))
	}
	return out
}
