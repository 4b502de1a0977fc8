package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/capture"
)

// StepRecordedMsg announces one newly captured step.
type StepRecordedMsg struct {
	Count       int
	Description string
	PageTitle   string
	URL         string
	HasImage    bool
}

// LogMsg appends a line to the console.
type LogMsg struct {
	Level   LogLevel
	Message string
}

// StoppedMsg tells the UI the recording ended outside the UI (browser
// closed, API stop).
type StoppedMsg struct{}

type tickMsg time.Time

// Stopper is the one control the UI exercises: ending the recording.
type Stopper interface {
	Stop()
}

// Model is the top-level recording interface.
type Model struct {
	status  *StatusPanel
	steps   *StepsTable
	console *Console

	recorder  Stopper
	events    <-chan capture.StepEvent
	describe  func(capture.StepEvent) StepRecordedMsg
	guideName string
	startTime time.Time
	stats     RecordingStats

	width  int
	height int
}

// NewModel builds the recording UI. events is the capture fan-out
// subscription feeding the step counter. describe, when non-nil, enriches
// each event with the step's description and page before display.
func NewModel(recorder Stopper, events <-chan capture.StepEvent, describe func(capture.StepEvent) StepRecordedMsg, guideName string, stepCount int) *Model {
	m := &Model{
		status:    NewStatusPanel(),
		steps:     NewStepsTable(),
		console:   NewConsole(),
		recorder:  recorder,
		events:    events,
		describe:  describe,
		guideName: guideName,
		startTime: time.Now(),
	}
	m.stats = RecordingStats{
		State:     "armed",
		GuideName: guideName,
		StepCount: stepCount,
		StartTime: m.startTime,
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForStep(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForStep blocks on the capture fan-out and resurfaces events as
// messages.
func (m *Model) waitForStep() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return StoppedMsg{}
		}
		if m.describe != nil {
			return m.describe(ev)
		}
		return StepRecordedMsg{Count: ev.Count}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recorder != nil {
				m.recorder.Stop()
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.status.UpdateStats(m.stats)
		return m, tick()

	case StepRecordedMsg:
		m.stats.StepCount = msg.Count
		m.stats.LastStep = msg.Description
		m.status.UpdateStats(m.stats)
		if msg.Description != "" || msg.PageTitle != "" {
			m.steps.AddStep(StepRow{
				Index:       msg.Count - 1,
				Description: msg.Description,
				PageTitle:   msg.PageTitle,
				URL:         msg.URL,
				HasImage:    msg.HasImage,
			})
		}
		m.console.AddEntry(LevelInfo, describeStepEvent(msg))
		return m, m.waitForStep()

	case LogMsg:
		m.console.AddEntry(msg.Level, msg.Message)
		return m, nil

	case StoppedMsg:
		m.stats.State = "idle"
		m.status.UpdateStats(m.stats)
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	cmds = append(cmds, m.steps.Update(msg))
	cmds = append(cmds, m.console.Update(msg))
	return m, tea.Batch(cmds...)
}

func describeStepEvent(msg StepRecordedMsg) string {
	if msg.Description != "" {
		return msg.Description
	}
	return "step captured"
}

func (m *Model) layout() {
	topHeight := m.height * 2 / 3
	statusWidth := m.width / 3
	m.status.SetSize(statusWidth, topHeight)
	m.steps.SetSize(m.width-statusWidth, topHeight)
	m.console.SetSize(m.width, m.height-topHeight)
}

func (m *Model) View() string {
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.status.View(), m.steps.View())
	return lipgloss.JoinVertical(lipgloss.Left, top, m.console.View())
}
