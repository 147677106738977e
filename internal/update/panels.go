package update

import (
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/views"
)

func (m Model) renderUpNextView() string {
	now := m.now()
	section := func(title string, rows []garden.Row) views.SectionData {
		return views.SectionData{Title: title, Rows: toRowData(rows, now)}
	}
	return views.RenderUpNextPanel(views.UpNextPanelData{
		Sections: []views.SectionData{
			section("Needs water", m.Buckets.NeedsWater),
			section("Today", m.Buckets.Today),
			section("This week", m.Buckets.ThisWeek),
			section("Later", m.Buckets.Later),
		},
		SelectedID: m.SelectedID,
	})
}

func (m Model) renderGardenView() string {
	return views.RenderGardenPanel(views.GardenPanelData{
		Query:     m.GardenQuery,
		TableView: m.gardenTable.View(),
		Count:     len(m.GardenRows),
	})
}

func (m Model) renderEventsView() string {
	now := m.now()
	out := make([]views.EventData, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, views.EventData{
			Name:  e.DisplayName(),
			Label: e.Event.DisplayLabel(),
			When:  model.FormatDistance(e.Event.NextOccurrenceAt, now),
		})
	}
	return views.RenderEventsPanel(out)
}

func (m Model) renderProfileView() string {
	if m.ProfileErr != nil {
		return views.RenderProfilePanel(views.ProfilePanelData{LoadingError: m.ProfileErr.Error()})
	}
	if m.Profile == nil {
		return views.RenderProfilePanel(views.ProfilePanelData{})
	}
	p := m.Profile
	now := m.now()
	data := views.ProfilePanelData{
		Name:        p.Contact.FullName,
		NickName:    p.Contact.NickName,
		Circle:      string(p.Contact.Circle),
		CadenceDays: p.CadenceDays,
		Custom:      p.Contact.CustomReminderDays != nil,
		LastSpoke:   p.LastSpokeLabel,
		Due:         p.DueLabel,
		Overdue:     p.Due.IsOverdue,
		Streak:      p.Streak,
	}
	for _, e := range p.Events {
		data.Events = append(data.Events, views.EventData{
			Label: e.DisplayLabel(),
			When:  model.FormatDistance(e.NextOccurrenceAt, now),
		})
	}
	for _, l := range p.Logs {
		data.Logs = append(data.Logs, views.LogData{
			At:      l.CreatedAt.Local().Format("2006-01-02"),
			Summary: l.Summary,
			Overdue: l.WasOverdue,
		})
	}
	return views.RenderProfilePanel(data)
}

func (m Model) renderPlanView() string {
	data := views.PlanPanelData{TableView: m.planTable.View()}
	if m.engine != nil {
		data.Pending = len(m.engine.Pending())
		data.Dropped = m.engine.Dropped()
		for _, n := range m.engine.Delivered() {
			data.Delivered = append(data.Delivered, n.ID)
		}
	}
	if m.passes != nil {
		if last := m.passes.LastPass(); last.Reason != "" {
			data.LastPass = formatPass(last)
		}
	}
	return views.RenderPlanPanel(data)
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input)
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Body)
}

func renderDescription(desc string) string {
	if strings.TrimSpace(desc) == "" {
		return "_No notes_"
	}
	return views.RenderMarkdown(desc)
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    time.Now().UTC(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > 40 {
		m.Notifications = m.Notifications[len(m.Notifications)-40:]
	}
}
