package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RecordingStats holds the live recording state shown in the status panel.
type RecordingStats struct {
	State     string
	GuideName string
	GuideID   string
	StepCount int
	StartTime time.Time
	LastStep  string
}

// StatusPanel displays the recording status.
type StatusPanel struct {
	stats  RecordingStats
	width  int
	height int
	style  lipgloss.Style
}

func NewStatusPanel() *StatusPanel {
	return &StatusPanel{
		style: borderStyle.BorderForeground(lipgloss.Color("99")),
	}
}

func (s *StatusPanel) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// UpdateStats replaces the displayed state.
func (s *StatusPanel) UpdateStats(stats RecordingStats) {
	s.stats = stats
}

func (s *StatusPanel) View() string {
	state := s.stats.State
	if state == "" {
		state = "idle"
	}
	stateView := valueStyle.Render(state)
	if state != "idle" {
		stateView = recordingStyle.Render("● " + state)
	}

	rows := []struct {
		label string
		value string
	}{
		{"State", stateView},
		{"Guide", valueStyle.Render(s.stats.GuideName)},
		{"Steps", valueStyle.Render(fmt.Sprintf("%d", s.stats.StepCount))},
		{"Elapsed", valueStyle.Render(s.formatElapsed())},
	}
	if s.stats.LastStep != "" {
		rows = append(rows, struct{ label, value string }{
			"Last step", infoStyle.Render(truncate(s.stats.LastStep, s.width-16)),
		})
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Recording") + "\n\n")
	for _, row := range rows {
		content.WriteString(fmt.Sprintf("%-12s %s\n", labelStyle.Render(row.label+":"), row.value))
	}
	content.WriteString("\n" + infoStyle.Render("press q to stop recording"))

	return s.style.Width(s.width).Height(s.height).Render(content.String())
}

func (s *StatusPanel) formatElapsed() string {
	if s.stats.StartTime.IsZero() {
		return "00:00:00"
	}
	elapsed := time.Since(s.stats.StartTime)
	return fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()),
		int(elapsed.Minutes())%60,
		int(elapsed.Seconds())%60,
	)
}
