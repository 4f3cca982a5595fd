// Package tui implements the interactive gap-fill prompt: the user describes
// what they did during an unaccounted stretch, the note is analyzed and the
// updated timeline is shown for review.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkarlsen/daylog/internal/analyzer"
	"github.com/mkarlsen/daylog/internal/gaps"
	"github.com/mkarlsen/daylog/internal/timeline"
)

type viewState int

const (
	inputView viewState = iota
	loadingView
	reviewView
	confirmationView
)

// Result reports what the session did once the program exits.
type Result struct {
	Skipped bool
	Daily   *timeline.DailyResult
}

type analysisMsg struct {
	res timeline.DailyResult
	err error
}

type App struct {
	state   viewState
	input   inputModel
	spinner spinner.Model
	review  reviewModel
	result  *Result
	errMsg  string

	gap      gaps.Gap
	userID   string
	analyzer *analyzer.Analyzer
}

func NewApp(a *analyzer.Analyzer, userID string, gap gaps.Gap) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	gapInfo := fmt.Sprintf("%s – %s (%d min unaccounted)",
		gap.StartLocal.Format("15:04"), gap.EndLocal.Format("15:04"), gap.DurationMinutes)

	return &App{
		state:    inputView,
		input:    newInputModel(gapInfo, ""),
		spinner:  s,
		gap:      gap,
		userID:   userID,
		analyzer: a,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsMsg, ok := msg.(tea.WindowSizeMsg); ok {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(wsMsg)
		return a, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	case analysisMsg:
		return a.handleAnalysis(msg)
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		return a.updateLoading(msg)
	case reviewView:
		return a.updateReview(msg)
	case confirmationView:
		return a.updateConfirmation(msg)
	}

	return a, nil
}

func (a *App) View() string {
	switch a.state {
	case inputView:
		return a.input.View()
	case loadingView:
		return a.spinner.View() + " Analyzing..."
	case reviewView:
		return a.review.View()
	case confirmationView:
		if a.errMsg != "" {
			return errorStyle.Render("Error: ") + a.errMsg + "\n\n" + helpStyle.Render("Press any key to exit")
		}
		return successStyle.Render("Gap filled.") + "\n\n" + helpStyle.Render("Press any key to exit")
	}
	return ""
}

func (a *App) GetResult() *Result {
	return a.result
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "enter" && a.input.Value() != "" {
			a.state = loadingView
			return a, tea.Batch(a.spinner.Tick, a.ingest(a.input.Value()))
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

func (a *App) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter", "a":
			a.result = &Result{Daily: &a.review.res}
			a.state = confirmationView
			return a, nil
		case "r":
			a.state = inputView
			newInput := newInputModel(a.input.gapInfo, a.input.Value())
			newInput, _ = newInput.Update(tea.WindowSizeMsg{Width: a.input.width, Height: a.input.height})
			a.input = newInput
			return a, a.input.textarea.Focus()
		case "s":
			a.result = &Result{Skipped: true}
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleAnalysis(msg analysisMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = confirmationView
		a.errMsg = msg.err.Error()
		return a, nil
	}

	a.review = newReviewModel(msg.res)
	a.state = reviewView
	return a, nil
}

// ingest stores the note timestamped at the gap's end so time extraction has
// the right anchor, then returns the recomputed day.
func (a *App) ingest(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		res, err := a.analyzer.IngestNote(ctx, a.userID, text, a.gap.End)
		return analysisMsg{res: res, err: err}
	}
}
