package update

import (
	"context"
	"fmt"

	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
)

const reminderLogLimit = 20

// applyReminder surfaces a fired notification. Non-sticky notifications are
// dismissed from the delivered set once shown.
func (m *Model) applyReminder(n scheduler.Notification) {
	m.ReminderLog = append(m.ReminderLog, n)
	if len(m.ReminderLog) > reminderLogLimit {
		m.ReminderLog = m.ReminderLog[len(m.ReminderLog)-reminderLogLimit:]
	}

	isOverdue := n.Content.Data["kind"] == string(planner.KindOverdue)
	m.Status = StatusBar{Text: fmt.Sprintf("%s: %s", n.Content.Title, n.Content.Body), IsError: isOverdue}
	m.notify(n.Content.Title, n.Content.Body, levelFromError(isOverdue))

	if m.desktopEnabled && m.notifier != nil {
		if err := m.notifier.Send(Notification{Title: n.Content.Title, Body: n.Content.Body, Level: "reminder", At: n.TriggerAt}); err != nil {
			m.log.WithError(err).WithField("id", n.ID).Warn("desktop notification failed")
		}
	}

	if m.engine != nil && n.Content.AutoDismiss && !n.Content.Sticky {
		if err := m.engine.Dismiss(context.Background(), n.ID); err != nil {
			m.log.WithError(err).WithField("id", n.ID).Debug("dismiss failed")
		}
	}
}
