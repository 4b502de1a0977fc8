package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the severity of a log entry.
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarning
	LevelError
)

type logEntry struct {
	timestamp time.Time
	level     LogLevel
	message   string
}

// Console shows recording events and problems, newest at the bottom.
type Console struct {
	viewport viewport.Model
	entries  []logEntry
	width    int
	height   int
	style    lipgloss.Style
}

var (
	errorLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	infoLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

func NewConsole() *Console {
	c := &Console{
		style: borderStyle.BorderForeground(lipgloss.Color("196")),
	}
	c.viewport = viewport.New(0, 0)
	return c
}

func (c *Console) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.viewport.Width = width - 4
	c.viewport.Height = height - 4
}

// AddEntry appends a log line.
func (c *Console) AddEntry(level LogLevel, msg string) {
	c.entries = append(c.entries, logEntry{timestamp: time.Now(), level: level, message: msg})
	c.updateContent()
}

func (c *Console) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return cmd
}

func (c *Console) View() string {
	stats := fmt.Sprintf("Events: %d | Errors: %d | Warnings: %d",
		len(c.entries), c.countByLevel(LevelError), c.countByLevel(LevelWarning))
	return c.style.Width(c.width).Render(
		c.viewport.View() + "\n" + infoStyle.Render(stats),
	)
}

func (c *Console) updateContent() {
	var sb strings.Builder
	for _, entry := range c.entries {
		style := infoLogStyle
		label := "INFO"
		switch entry.level {
		case LevelError:
			style, label = errorLogStyle, "ERROR"
		case LevelWarning:
			style, label = warningLogStyle, "WARN"
		}
		sb.WriteString(fmt.Sprintf("%s [%s] %s\n",
			timestampStyle.Render(entry.timestamp.Format("15:04:05")),
			style.Render(label),
			entry.message,
		))
	}
	c.viewport.SetContent(sb.String())
	c.viewport.GotoBottom()
}

func (c *Console) countByLevel(level LogLevel) int {
	count := 0
	for _, entry := range c.entries {
		if entry.level == level {
			count++
		}
	}
	return count
}
