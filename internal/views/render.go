package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// AppData is one frame of the terminal UI.
type AppData struct {
	Header       string
	Tabs         []string
	ActiveTab    string
	NeedsWater   int
	LeftPane     string
	RightPane    string
	StatusLine   string
	IsError      bool
	Footer       string
	Notification string
}

const (
	leftPaneWidth  = 58
	rightPaneWidth = 50
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(lipgloss.Color("10"))
	badgeStyle     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9"))
)

func RenderApp(data AppData) string {
	lines := []string{renderHeader(data)}

	left := panelStyle.Width(leftPaneWidth).Render(data.LeftPane)
	if strings.TrimSpace(data.RightPane) != "" {
		right := panelStyle.Width(rightPaneWidth).Render(data.RightPane)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		lines = append(lines, left)
	}

	if data.StatusLine != "" {
		if data.IsError {
			lines = append(lines, errorStyle.Render(data.StatusLine))
		} else {
			lines = append(lines, statusStyle.Render(data.StatusLine))
		}
	}
	if data.Notification != "" {
		lines = append(lines, panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

func renderHeader(data AppData) string {
	parts := []string{headerStyle.Render(data.Header)}
	if len(data.Tabs) > 0 {
		tabs := make([]string, 0, len(data.Tabs))
		for _, t := range data.Tabs {
			if t == data.ActiveTab {
				tabs = append(tabs, activeTabStyle.Render(t))
				continue
			}
			tabs = append(tabs, tabStyle.Render(t))
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	}
	if data.NeedsWater > 0 {
		parts = append(parts, badgeStyle.Render(fmt.Sprintf("needs water: %d", data.NeedsWater)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderMarkdown renders contact descriptions. Rendering errors fall back to
// the raw text.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
