// Package tui renders the live release dashboard.
//
// It follows The Elm Architecture used by bubbletea: the Model holds all
// presentation state, Update folds messages into it, View renders it. The
// worker never touches this package directly; it only writes ProgressEvents
// to the queue this model consumes.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/truthdb/orchestrator/domain"
)

const helpText = `Keys
  q / Esc      Quit
  Ctrl+C       Quit

What you're seeing
  Current Step: what the orchestrator is doing right now.
                This pane overwrites on each update.
  Status:       green OK when healthy; red ERROR when something fails.
  Completion:   stays open when done; press q to exit (or pass --auto-exit).`

var (
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#b9c8d4"))
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#697887")).
			Padding(0, 1)
	titleStyle = textStyle.Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// eventMsg delivers one worker event; the handler drains the rest of the
// queue non-blocking so each frame reflects the latest worker state.
type eventMsg struct {
	ev domain.ProgressEvent
}

// Model is the dashboard state.
type Model struct {
	events   <-chan domain.ProgressEvent
	autoExit bool

	stepTitle     string
	stepBody      string
	stepStartedAt time.Time
	okMsg         string
	errMsg        string // sticky until the next StepChanged or MarkOk
	rows          []domain.RepoStatusRow

	finished   bool
	finishedOk bool

	spinner spinner.Model
	repos   table.Model
	width   int
	height  int

	now func() time.Time
}

// NewModel creates the dashboard over the worker's event queue.
func NewModel(events <-chan domain.ProgressEvent, autoExit bool) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = textStyle

	repos := table.New(
		table.WithColumns([]table.Column{
			{Title: "Repo", Width: 32},
			{Title: "CI", Width: 6},
			{Title: "Latest Release", Width: 14},
			{Title: "Ahead", Width: 8},
		}),
		table.WithHeight(14),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = lipgloss.NewStyle()
	repos.SetStyles(styles)

	return Model{
		events:        events,
		autoExit:      autoExit,
		stepTitle:     "Initializing",
		stepBody:      "Starting orchestrator...",
		stepStartedAt: time.Now(),
		okMsg:         "OK",
		spinner:       sp,
		repos:         repos,
		now:           time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// waitForEvent blocks until the worker publishes the next event.
func waitForEvent(events <-chan domain.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// Quitting detaches observation only; the worker is joined by
			// the caller after the program exits.
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.apply(msg.ev)
	drain:
		for {
			select {
			case ev := <-m.events:
				m.apply(ev)
			default:
				break drain
			}
		}

		if m.finished && m.finishedOk && m.autoExit {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds one event into the model. Consumer state after draining any
// event sequence equals sequential application in emission order.
func (m *Model) apply(ev domain.ProgressEvent) {
	switch e := ev.(type) {
	case domain.StepChanged:
		m.stepTitle = e.Title
		m.stepBody = e.Body
		m.stepStartedAt = m.now()
	case domain.BodyUpdated:
		m.stepBody = e.Body
	case domain.MarkOk:
		m.errMsg = ""
		if strings.TrimSpace(e.Msg) == "" {
			m.okMsg = "OK"
		} else {
			m.okMsg = e.Msg
		}
	case domain.MarkError:
		m.errMsg = e.Msg
	case domain.RepoRowsUpdated:
		m.rows = e.Rows
		m.repos.SetRows(statusRows(e.Rows))
	case domain.Finished:
		m.finished = true
		m.finishedOk = e.Ok
		if e.Ok {
			m.errMsg = ""
			m.okMsg = "DONE, press q to exit"
		}
	}
}

func statusRows(rows []domain.RepoStatusRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		if row.Loading {
			out = append(out, table.Row{row.Name, "...", "...", "..."})
			continue
		}

		ci := "-"
		switch row.CI {
		case domain.CISuccess:
			ci = "OK"
		case domain.CIFailure:
			ci = "FAIL"
		case domain.CIRunning:
			ci = "RUN"
		case domain.CIUnknown:
			ci = "-"
		}

		release := row.LatestRelease
		if release == "" {
			release = "-"
		}

		ahead := "-"
		if row.AheadKnown {
			if row.AheadBy == 0 {
				ahead = "0"
			} else {
				ahead = fmt.Sprintf("+%d", row.AheadBy)
			}
		}

		out = append(out, table.Row{row.Name, ci, release, ahead})
	}
	return out
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	leftWidth := width * 7 / 10
	rightWidth := width - leftWidth - 4

	step := m.renderStep(leftWidth)
	status := m.renderStatus(rightWidth)
	reposPane := frameStyle.Width(leftWidth).Render(
		titleStyle.Render("Repos") + "\n" + m.repos.View(),
	)
	helpPane := frameStyle.Width(rightWidth).Render(
		titleStyle.Render("Help") + "\n" + textStyle.Render(helpText),
	)

	left := lipgloss.JoinVertical(lipgloss.Left, step, reposPane)
	right := lipgloss.JoinVertical(lipgloss.Left, status, helpPane)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderStep(width int) string {
	elapsed := m.now().Sub(m.stepStartedAt)
	header := fmt.Sprintf(
		"Current Step  %s %02d:%02d",
		m.spinner.View(),
		int(elapsed.Minutes()),
		int(elapsed.Seconds())%60,
	)

	var body strings.Builder
	body.WriteString(titleStyle.Render(m.stepTitle))
	body.WriteString("\n\n")
	body.WriteString(textStyle.Render(m.stepBody))

	return frameStyle.Width(width).Render(
		dimStyle.Render(header) + "\n" + body.String(),
	)
}

func (m Model) renderStatus(width int) string {
	var body string
	if m.errMsg != "" {
		body = errStyle.Render("ERROR") + "\n" + warnStyle.Render(m.errMsg)
	} else {
		body = okStyle.Render(m.okMsg)
	}
	return frameStyle.Width(width).Render(
		titleStyle.Render("Status") + "\n" + body,
	)
}

// Run drives the dashboard until the operator quits or, on successful
// completion with autoExit set, until the Finished event arrives.
func Run(events <-chan domain.ProgressEvent, autoExit bool) error {
	program := tea.NewProgram(NewModel(events, autoExit), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
