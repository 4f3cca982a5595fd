package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

type inputModel struct {
	textarea textarea.Model
	gapInfo  string
	width    int
	height   int
}

func newInputModel(gapInfo string, prefill string) inputModel {
	ta := textarea.New()
	ta.Placeholder = "What were you doing? e.g. \"14:00-15:00 code review\" or \"debugging the importer\""
	ta.Focus()
	ta.CharLimit = 500
	ta.SetWidth(60)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	if prefill != "" {
		ta.SetValue(prefill)
	}

	return inputModel{
		textarea: ta,
		gapInfo:  gapInfo,
	}
}

func (m inputModel) Update(msg tea.Msg) (inputModel, tea.Cmd) {
	if wsMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsMsg.Width
		m.height = wsMsg.Height
		if wsMsg.Width > 4 && wsMsg.Width < 64 {
			m.textarea.SetWidth(wsMsg.Width - 4)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	header := titleStyle.Render("daylog — Fill the Gap")
	gapLabel := subtitleStyle.Render(m.gapInfo)
	help := helpStyle.Render("Enter: submit • Ctrl+C: cancel")

	return header + "\n" + gapLabel + "\n" + m.textarea.View() + "\n" + help
}

func (m inputModel) Value() string {
	return m.textarea.Value()
}
