package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/state"
)

// #region styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// #endregion styles

// #region table
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// padding is part of the rendered width
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(titleStyle.Render(t.title))
		sb.WriteString("\n")
	}
	sep := mutedStyle.Render("|")
	cells := make([]string, len(t.headers))
	for i, h := range t.headers {
		cells[i] = headerStyle.Width(widths[i]).Render(h)
	}
	sb.WriteString(strings.Join(cells, sep))
	sb.WriteString("\n")
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("─", total)))
	for _, row := range t.rows {
		sb.WriteString("\n")
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = cellStyle.Width(widths[i]).Render(cell)
		}
		sb.WriteString(strings.Join(cells, sep))
	}
	return sb.String()
}

// #endregion table

// #region renderers
func renderSessions(records []state.SessionRecord) string {
	t := &table{title: "Sessions", headers: []string{"Session", "Started", "Transitions", "Last", "Exported"}}
	for _, r := range records {
		exported := mutedStyle.Render("no")
		if r.Exported {
			exported = r.ExportedAt.Format("2006-01-02 15:04:05")
		}
		last := r.LastPrimary
		if last == "" {
			last = "-"
		}
		t.add(r.SessionID, r.StartedAt.Format("2006-01-02 15:04:05"), fmt.Sprint(r.Transitions), last, exported)
	}
	return t.render()
}

func renderReport(id, source string, rep report.Report) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Session " + id))
	sb.WriteString(" " + mutedStyle.Render("("+source+")"))
	sb.WriteString("\n")
	sb.WriteString(boxStyle.Render(rep.Narrative))
	sb.WriteString("\n\n")
	if rep.Total == 0 {
		return sb.String()
	}

	hist := &table{title: "Primary emotions", headers: []string{"Emotion", "Count", "%", ""}}
	for _, b := range rep.Primary {
		if b.Count == 0 {
			continue
		}
		hist.add(b.Label, fmt.Sprint(b.Count), fmt.Sprintf("%.1f", b.Percent), bar(b.Percent))
	}
	sb.WriteString(hist.render())
	sb.WriteString("\n\n")

	axes := &table{title: "Axes", headers: []string{"Axis", "Min", "Max", "Mean", "Peak", "At seq"}}
	for i, a := range rep.Axes {
		peak, at := "-", "-"
		if p := rep.Peaks[i]; p != nil {
			peak, at = fmt.Sprintf("%+.3f", p.Value), fmt.Sprint(p.Seq)
		}
		axes.add(a.Axis, fmt.Sprintf("%+.3f", a.Min), fmt.Sprintf("%+.3f", a.Max), fmt.Sprintf("%+.3f", a.Mean), peak, at)
	}
	sb.WriteString(axes.render())
	sb.WriteString("\n\n")

	traj := &table{title: "Trajectory", headers: []string{"Primary", "From", "Duration", "Transitions"}}
	for _, s := range rep.Trajectory {
		traj.add(string(s.Primary), s.From.Format("15:04:05.000"), s.Duration.String(), fmt.Sprint(s.Transitions))
	}
	sb.WriteString(traj.render())
	if rep.Unresolved > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%d unresolved triggers", rep.Unresolved)))
	}
	return sb.String()
}

func renderTransitions(ts []session.Transition) string {
	t := &table{title: "Transitions", headers: []string{"Seq", "Time", "Cause", "Emotion", "Intensity", "S", "D", "N"}}
	for _, tr := range ts {
		c := tr.Next.Coordinates
		cause := tr.Cause.String()
		if tr.Unresolved {
			cause += mutedStyle.Render(" (unresolved)")
		}
		t.add(fmt.Sprint(tr.Seq), tr.Timestamp.Format("15:04:05.000"), cause,
			string(tr.Next.Primary)+"/"+tr.Next.SubEmotion,
			fmt.Sprintf("%.3f", tr.Next.Intensity),
			fmt.Sprintf("%+.3f", c.Serotonin), fmt.Sprintf("%+.3f", c.Dopamine), fmt.Sprintf("%+.3f", c.Noradrenaline))
	}
	return t.render()
}

func bar(percent float64) string {
	n := int(percent / 5)
	return barStyle.Render(strings.Repeat("█", n))
}

// #endregion renderers
