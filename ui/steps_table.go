package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StepRow is one captured step shown in the table.
type StepRow struct {
	Index       int
	Description string
	PageTitle   string
	URL         string
	HasImage    bool
}

// StepsTable lists the steps captured so far, newest at the bottom.
type StepsTable struct {
	viewport    viewport.Model
	steps       []StepRow
	width       int
	height      int
	headerStyle lipgloss.Style
	style       lipgloss.Style
}

func NewStepsTable() *StepsTable {
	t := &StepsTable{
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		style: borderStyle.BorderForeground(lipgloss.Color("35")),
	}
	t.viewport = viewport.New(0, 0)
	return t
}

func (t *StepsTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width - 4
	t.viewport.Height = height - 4
}

func (t *StepsTable) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			t.viewport.LineUp(1)
		case "down", "j":
			t.viewport.LineDown(1)
		case "pgup":
			t.viewport.HalfViewUp()
		case "pgdown":
			t.viewport.HalfViewDown()
		}
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *StepsTable) View() string {
	if len(t.steps) == 0 {
		return t.style.Width(t.width).Render(infoStyle.Render("No steps captured yet"))
	}

	descWidth := min(50, t.width/2)
	titleWidth := min(25, t.width/4)

	header := t.headerStyle.Render(fmt.Sprintf(
		"%4s %-*s %-*s %5s",
		"#",
		descWidth, "Action",
		titleWidth, "Page",
		"Image",
	))

	var rows []string
	for _, step := range t.steps {
		image := "yes"
		if !step.HasImage {
			image = warningStyle.Render("no")
		}
		rows = append(rows, fmt.Sprintf(
			"%4d %-*s %-*s %5s",
			step.Index+1,
			descWidth, truncate(step.Description, descWidth),
			titleWidth, truncate(step.PageTitle, titleWidth),
			image,
		))
	}

	t.viewport.SetContent(header + "\n" + strings.Join(rows, "\n"))
	return t.style.Width(t.width).Render(t.viewport.View())
}

// AddStep appends a captured step and follows the bottom of the list.
func (t *StepsTable) AddStep(step StepRow) {
	atBottom := t.viewport.AtBottom()
	t.steps = append(t.steps, step)
	if atBottom {
		t.viewport.GotoBottom()
	}
}

// Len reports the number of listed steps.
func (t *StepsTable) Len() int { return len(t.steps) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
