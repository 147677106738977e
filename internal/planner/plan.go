package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/scheduler"
)

// WindowDays is how many daily reminder instants one pass plans ahead.
const WindowDays = 14

const (
	OverdueIDPrefix = "overdue."
	EventsIDPrefix  = "events."

	// Static identifiers used before plans were keyed by date. They are
	// still cleared on every pass.
	LegacyOverdueID = "tend.overdue"
	LegacyEventsID  = "tend.events"

	ChannelOverdue = "tend-overdue"
	ChannelEvents  = "tend-events"
)

const maxNamesInBody = 3

type Kind string

const (
	KindOverdue Kind = "overdue"
	KindEvents  Kind = "events"
)

// Item is one notification of a plan.
type Item struct {
	ID        string
	Kind      Kind
	TriggerAt time.Time
	Content   scheduler.Content
}

// Inputs is everything a pass reads from the store.
type Inputs struct {
	Config    model.AppConfig
	Snapshots []garden.Snapshot
	Events    []model.UpcomingEvent
}

// BuildPlan synthesizes the full notification plan for the window starting
// at now. Items are ordered by day, overdue before events within a day. An
// event is only announced on the first day it becomes eligible.
func BuildPlan(in Inputs, now time.Time) []Item {
	targets := clock.ReminderTargets(now, in.Config.ReminderTime(), WindowDays)
	seen := make(map[string]bool)
	out := make([]Item, 0, 2*len(targets))

	for _, tg := range targets {
		date, target := tg.Date, tg.At

		overdue := overdueAt(in.Snapshots, in.Config, target)
		if len(overdue) > 0 {
			out = append(out, Item{
				ID:        OverdueIDPrefix + date,
				Kind:      KindOverdue,
				TriggerAt: target,
				Content:   OverdueContent(overdue, in.Config.ShouldKeepRemindersPersistent, date),
			})
		}

		fresh := make([]model.UpcomingEvent, 0)
		for _, ev := range model.UpcomingWithin(in.Events, in.Config.ContactEventsReminderDays, target) {
			key := eventKey(ev)
			if seen[key] {
				continue
			}
			seen[key] = true
			fresh = append(fresh, ev)
		}
		if len(fresh) > 0 {
			out = append(out, Item{
				ID:        EventsIDPrefix + date,
				Kind:      KindEvents,
				TriggerAt: target,
				Content:   EventsContent(fresh, date),
			})
		}
	}
	return out
}

func overdueAt(snaps []garden.Snapshot, cfg model.AppConfig, at time.Time) []garden.Row {
	rows := garden.UpNext(snaps, cfg, at)
	out := make([]garden.Row, 0, len(rows))
	for _, r := range rows {
		if r.IsOverdue {
			out = append(out, r)
		}
	}
	return out
}

func eventKey(ev model.UpcomingEvent) string {
	return ev.Event.ContactSystemID + "|" + ev.Event.SourceEventID + "|" +
		strconv.FormatInt(ev.Event.NextOccurrenceAt.UnixMilli(), 10)
}

// OverdueContent names up to three overdue contacts in up-next order.
func OverdueContent(rows []garden.Row, persistent bool, date string) scheduler.Content {
	body := ""
	switch len(rows) {
	case 0:
	case 1:
		body = fmt.Sprintf("%s is overdue. Time for a call.", rows[0].Contact.DisplayName())
	default:
		names := make([]string, 0, maxNamesInBody)
		for _, r := range rows {
			if len(names) == maxNamesInBody {
				break
			}
			names = append(names, r.Contact.DisplayName())
		}
		body = fmt.Sprintf("%d people are overdue (%s). Time for calls.", len(rows), strings.Join(names, ", "))
	}
	return scheduler.Content{
		Channel:     ChannelOverdue,
		Title:       "Friendly Reminder",
		Body:        body,
		Sticky:      persistent,
		AutoDismiss: !persistent,
		Data:        map[string]string{"kind": string(KindOverdue), "date": date},
	}
}

func EventsContent(events []model.UpcomingEvent, date string) scheduler.Content {
	title := "Upcoming contact event"
	if len(events) != 1 {
		title = fmt.Sprintf("Upcoming contact events (%d)", len(events))
	}

	parts := make([]string, 0, maxNamesInBody)
	for _, ev := range events {
		if len(parts) == maxNamesInBody {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", ev.DisplayName(), ev.Event.DisplayLabel()))
	}
	body := strings.Join(parts, ", ")
	if body == "" {
		body = "An important contact event is coming up."
	}
	return scheduler.Content{
		Channel: ChannelEvents,
		Title:   title,
		Body:    body,
		Data:    map[string]string{"kind": string(KindEvents), "date": date},
	}
}

// IsManagedID reports whether id belongs to a planner-owned notification.
func IsManagedID(id string) bool {
	return strings.HasPrefix(id, OverdueIDPrefix) || strings.HasPrefix(id, EventsIDPrefix) ||
		id == LegacyOverdueID || id == LegacyEventsID
}
