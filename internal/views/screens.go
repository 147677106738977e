package views

import (
	"fmt"
	"strings"
)

type RowData struct {
	ID          string
	Name        string
	Circle      string
	CadenceDays int
	LastSpoke   string
	Due         string
	Overdue     bool
}

type SectionData struct {
	Title string
	Rows  []RowData
}

type UpNextPanelData struct {
	Sections   []SectionData
	SelectedID string
}

type GardenPanelData struct {
	Query     string
	TableView string
	Count     int
}

type EventData struct {
	Name  string
	Label string
	When  string
}

type LogData struct {
	At      string
	Summary string
	Overdue bool
}

type ProfilePanelData struct {
	Name         string
	NickName     string
	Circle       string
	CadenceDays  int
	Custom       bool
	LastSpoke    string
	Due          string
	Overdue      bool
	Streak       int
	Events       []EventData
	Logs         []LogData
	Description  string
	LoadingError string
}

type PlanPanelData struct {
	TableView string
	Pending   int
	Delivered []string
	Dropped   uint64
	LastPass  string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderUpNextPanel(data UpNextPanelData) string {
	var b strings.Builder
	b.WriteString("up next:\n")
	b.WriteString("actions: [j/k]move [enter]profile [/]command\n")
	empty := true
	for _, s := range data.Sections {
		if len(s.Rows) == 0 {
			continue
		}
		empty = false
		b.WriteString(fmt.Sprintf("\n%s:\n", s.Title))
		for _, r := range s.Rows {
			cursor := " "
			if r.ID == data.SelectedID {
				cursor = ">"
			}
			due := r.Due
			if r.Overdue {
				due = dueStyle.Render(due)
			}
			b.WriteString(fmt.Sprintf("%s %s [%s] last:%s due:%s\n", cursor, r.Name, r.Circle, r.LastSpoke, due))
		}
	}
	if empty {
		b.WriteString("\n(nobody to reach out to)")
	}
	return strings.TrimSpace(b.String())
}

func RenderGardenPanel(data GardenPanelData) string {
	var b strings.Builder
	b.WriteString("garden:\n")
	if data.Query != "" {
		b.WriteString(fmt.Sprintf("filter: %q (%d)\n", data.Query, data.Count))
	} else {
		b.WriteString(fmt.Sprintf("contacts: %d\n", data.Count))
	}
	b.WriteString("actions: [j/k]move [enter]profile [/find]filter\n")
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderEventsPanel(events []EventData) string {
	if len(events) == 0 {
		return "upcoming events:\n(none)"
	}
	var b strings.Builder
	b.WriteString("upcoming events:\n")
	for _, e := range events {
		b.WriteString(fmt.Sprintf("- %s %s: %s\n", e.When, e.Name, e.Label))
	}
	return strings.TrimSpace(b.String())
}

func RenderProfilePanel(data ProfilePanelData) string {
	if data.LoadingError != "" {
		return "profile:\nerror: " + data.LoadingError
	}
	if data.Name == "" {
		return "profile:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("profile:\n")
	b.WriteString(data.Name)
	if data.NickName != "" {
		b.WriteString(fmt.Sprintf(" (%s)", data.NickName))
	}
	b.WriteString("\n")
	cadence := fmt.Sprintf("every %d days", data.CadenceDays)
	if data.Custom {
		cadence += " (custom)"
	}
	b.WriteString(fmt.Sprintf("circle: %s | %s\n", data.Circle, cadence))
	due := data.Due
	if data.Overdue {
		due = dueStyle.Render(due)
	}
	b.WriteString(fmt.Sprintf("last spoke: %s | due: %s\n", data.LastSpoke, due))
	b.WriteString(fmt.Sprintf("streak: %d\n", data.Streak))
	if len(data.Events) > 0 {
		b.WriteString("\nevents:\n")
		for _, e := range data.Events {
			b.WriteString(fmt.Sprintf("- %s %s\n", e.Label, e.When))
		}
	}
	b.WriteString("\nlogs:\n")
	if len(data.Logs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, l := range data.Logs {
		mark := ""
		if l.Overdue {
			mark = " [late]"
		}
		b.WriteString(fmt.Sprintf("- %s%s %s\n", l.At, mark, l.Summary))
	}
	if data.Description != "" {
		b.WriteString("\n" + data.Description)
	}
	return strings.TrimSpace(b.String())
}

func RenderPlanPanel(data PlanPanelData) string {
	var b strings.Builder
	b.WriteString("notification plan:\n")
	b.WriteString(fmt.Sprintf("pending: %d | delivered: %d | dropped: %d\n", data.Pending, len(data.Delivered), data.Dropped))
	if data.LastPass != "" {
		b.WriteString("last pass: " + data.LastPass + "\n")
	}
	b.WriteString("actions: [R]replan [x]dismiss delivered\n")
	b.WriteString(data.TableView)
	if len(data.Delivered) > 0 {
		b.WriteString("\n\ndelivered:\n")
		for _, id := range data.Delivered {
			b.WriteString("- " + id + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
