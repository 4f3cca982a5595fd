package tui

import (
	"fmt"
	"strings"

	"github.com/mkarlsen/daylog/internal/timeline"
)

type reviewModel struct {
	res timeline.DailyResult
}

func newReviewModel(res timeline.DailyResult) reviewModel {
	return reviewModel{res: res}
}

func (m reviewModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Updated timeline") + "\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s • %d min • confidence %.2f",
		m.res.BusinessDate, m.res.TotalMinutes, m.res.Confidence)) + "\n")

	for _, e := range m.res.Timeline {
		line := fmt.Sprintf("%s–%s  %-10s %4d min  %s",
			e.Start.Format("15:04"),
			e.End.Format("15:04"),
			e.Category,
			e.Minutes,
			dimStyle.Render(fmt.Sprintf("%.2f %s", e.Confidence, e.Method)),
		)
		b.WriteString("  " + line + "\n")
	}

	if len(m.res.Warnings) > 0 {
		b.WriteString("\n" + warningStyle.Render("Warnings:") + "\n")
		for _, w := range m.res.Warnings {
			b.WriteString("  " + warningStyle.Render("• "+w) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("a/Enter: accept • r: rewrite note • s: skip"))
	return b.String()
}
