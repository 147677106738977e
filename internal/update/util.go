package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/views"
)

func toRowData(rows []garden.Row, now time.Time) []views.RowData {
	out := make([]views.RowData, 0, len(rows))
	for _, r := range rows {
		out = append(out, views.RowData{
			ID:          r.Contact.SystemID,
			Name:        r.Contact.DisplayName(),
			Circle:      string(r.Contact.Circle),
			CadenceDays: r.CadenceDays,
			LastSpoke:   model.LastSpokeLabel(r.LastSpokeAt, now),
			Due:         model.DueLabel(r.Due, now),
			Overdue:     r.IsOverdue,
		})
	}
	return out
}

func (m Model) selectedName() string {
	if m.SelectedID == "" {
		return "-"
	}
	for _, r := range append(m.visibleRowsFor(ViewUpNext), m.GardenRows...) {
		if r.Contact.SystemID == m.SelectedID {
			return r.Contact.DisplayName()
		}
	}
	if m.Profile != nil && m.Profile.Contact.SystemID == m.SelectedID {
		return m.Profile.Contact.DisplayName()
	}
	return m.SelectedID
}

func (m Model) visibleRowsFor(v View) []garden.Row {
	m.CurrentView = v
	return m.visibleRows()
}

func formatPass(p planner.PassResult) string {
	s := fmt.Sprintf("%s planned=%d scheduled=%d failed=%d", p.Reason, p.Planned, p.Scheduled, p.Failed)
	if p.Synced {
		s += " synced"
	}
	return s
}

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
