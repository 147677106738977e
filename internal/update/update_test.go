package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tend/internal/app"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type fakeBackend struct {
	snaps    []garden.Snapshot
	logs     []model.LogInput
	patches  map[string]model.ContactPatch
	config   []model.AppConfigPatch
	replans  []planner.Request
	loadErr  error
	queries  []string
	profiles []string
}

func newFakeBackend() *fakeBackend {
	ago := func(days int) *time.Time {
		t := testNow.AddDate(0, 0, -days)
		return &t
	}
	return &fakeBackend{
		snaps: []garden.Snapshot{
			{Contact: model.Contact{SystemID: "ada", FullName: "Ada Lovelace", Circle: model.CircleInner}, LastSpokeAt: ago(30)},
			{Contact: model.Contact{SystemID: "grace", FullName: "Grace Hopper", Circle: model.CircleMid}, LastSpokeAt: ago(2)},
		},
		patches: make(map[string]model.ContactPatch),
	}
}

func (f *fakeBackend) Now() time.Time { return testNow }

func (f *fakeBackend) Buckets(context.Context) (garden.Buckets, error) {
	if f.loadErr != nil {
		return garden.Buckets{}, f.loadErr
	}
	rows := garden.UpNext(f.snaps, model.DefaultAppConfig(), testNow)
	return garden.Partition(rows, testNow), nil
}

func (f *fakeBackend) Garden(_ context.Context, query string) ([]garden.Row, error) {
	f.queries = append(f.queries, query)
	return garden.Garden(f.snaps, model.DefaultAppConfig(), testNow, query), nil
}

func (f *fakeBackend) UpcomingEvents(context.Context) ([]model.UpcomingEvent, error) {
	return []model.UpcomingEvent{{
		Event:    model.ContactEvent{ContactSystemID: "ada", Type: model.EventTypeBirthday, NextOccurrenceAt: testNow.AddDate(0, 0, 3)},
		FullName: "Ada Lovelace",
	}}, nil
}

func (f *fakeBackend) Profile(_ context.Context, id string) (app.Profile, error) {
	f.profiles = append(f.profiles, id)
	for _, s := range f.snaps {
		if s.Contact.SystemID == id {
			var logs []model.ContactLog
			if s.LastSpokeAt != nil {
				logs = append(logs, model.ContactLog{ContactSystemID: id, CreatedAt: *s.LastSpokeAt, Summary: "call"})
			}
			return app.BuildProfile(s.Contact, model.DefaultAppConfig(), logs, nil, testNow), nil
		}
	}
	return app.Profile{}, errors.New("not found")
}

func (f *fakeBackend) LogInteraction(_ context.Context, in model.LogInput) (model.ContactLog, error) {
	f.logs = append(f.logs, in)
	return model.ContactLog{ContactSystemID: in.ContactSystemID, Summary: in.Summary, WasOverdue: true}, nil
}

func (f *fakeBackend) UpdateContact(_ context.Context, id string, patch model.ContactPatch) (model.Contact, error) {
	f.patches[id] = patch
	return model.Contact{SystemID: id}, nil
}

func (f *fakeBackend) UpdateConfig(_ context.Context, patch model.AppConfigPatch) (model.AppConfig, error) {
	f.config = append(f.config, patch)
	return patch.Merge(model.DefaultAppConfig()), nil
}

func (f *fakeBackend) Replan(_ context.Context, req planner.Request) error {
	f.replans = append(f.replans, req)
	return nil
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

// loaded returns a model with the backend data applied.
func loaded(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := NewModel(Options{Backend: backend})
	msg := m.refreshCmd()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func typePalette(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = updated.(Model)
	if !m.Palette.Active {
		t.Fatal("expected palette to be active")
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(input)})
	m = updated.(Model)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(Options{})
	if m.CurrentView != ViewUpNext {
		t.Fatalf("expected default view %q, got %q", ViewUpNext, m.CurrentView)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if cmd := m.Init(); cmd != nil {
		if msg := cmd(); msg != nil {
			t.Fatalf("expected no work without backend or scheduler, got %T", msg)
		}
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := NewModel(Options{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	next := updated.(Model)
	if next.CurrentView != ViewGarden {
		t.Fatalf("expected garden view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'4'}})
	next = updated.(Model)
	if next.CurrentView != ViewPlan {
		t.Fatalf("expected plan view, got %q", next.CurrentView)
	}
}

func TestUpdateSwitchViewMsg(t *testing.T) {
	m := NewModel(Options{})
	updated, _ := m.Update(SwitchViewMsg{View: ViewGarden})
	next := updated.(Model)
	if next.CurrentView != ViewGarden {
		t.Fatalf("expected garden view, got %q", next.CurrentView)
	}

	updated, _ = next.Update(SwitchViewMsg{View: View("Unknown")})
	next = updated.(Model)
	if next.CurrentView != ViewGarden {
		t.Fatalf("expected view unchanged for unknown view, got %q", next.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := NewModel(Options{})
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %+v", next.Status)
	}

	updated, _ = next.Update(AppErrorMsg{Err: errors.New("boom")})
	next = updated.(Model)
	if next.LastError == nil || next.LastError.Error() != "boom" {
		t.Fatalf("expected last error boom, got: %v", next.LastError)
	}
	if !next.Status.IsError || next.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", next.Status)
	}

	updated, _ = next.Update(ClearStatusMsg{})
	next = updated.(Model)
	if next.Status.Text != "" || next.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", next.Status)
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m := NewModel(Options{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	next := updated.(Model)
	if !next.Quitting {
		t.Fatal("expected quitting flag true")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestDataLoadedRendersUpNextAndSelectsFirstRow(t *testing.T) {
	m := loaded(t, newFakeBackend())
	if len(m.Buckets.NeedsWater) != 1 || m.Buckets.NeedsWater[0].Contact.SystemID != "ada" {
		t.Fatalf("expected ada to need water, got %+v", m.Buckets.NeedsWater)
	}
	if m.SelectedID != "ada" {
		t.Fatalf("expected ada selected, got %q", m.SelectedID)
	}

	out := m.View()
	for _, want := range []string{"view: Up Next", "selected: Ada Lovelace", "Needs water:", "Grace Hopper", "upcoming events:", "Ada Lovelace: Birthday"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %q", want, out)
		}
	}
}

func TestDataLoadFailureSetsErrorStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.loadErr = errors.New("db closed")
	m := loaded(t, backend)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "db closed") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestListNavigationAndProfile(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = updated.(Model)
	if m.SelectedID != "grace" {
		t.Fatalf("expected grace selected after j, got %q", m.SelectedID)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = updated.(Model)
	if m.SelectedID != "grace" {
		t.Fatalf("cursor should stop at the last row, got %q", m.SelectedID)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.CurrentView != ViewProfile {
		t.Fatalf("expected profile view, got %q", m.CurrentView)
	}
	if cmd == nil {
		t.Fatal("expected profile load command")
	}
	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if m.Profile == nil || m.Profile.Contact.SystemID != "grace" {
		t.Fatalf("expected grace profile, got %+v", m.Profile)
	}
	out := m.View()
	if !strings.Contains(out, "Grace Hopper") || !strings.Contains(out, "last spoke: 2 days ago") {
		t.Fatalf("unexpected profile view: %q", out)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.CurrentView != ViewUpNext {
		t.Fatalf("expected esc to return to up next, got %q", m.CurrentView)
	}
}

func TestStaleProfileLoadIsIgnored(t *testing.T) {
	m := loaded(t, newFakeBackend())
	updated, _ := m.Update(ProfileLoadedMsg{ID: "someone-else", Profile: app.Profile{Contact: model.Contact{SystemID: "someone-else"}}})
	m = updated.(Model)
	if m.Profile != nil {
		t.Fatalf("expected stale profile to be ignored, got %+v", m.Profile)
	}
}

func TestPaletteLogsInteractionForSelection(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)

	m, cmd := typePalette(t, m, "log coffee downtown")
	if m.Palette.Active {
		t.Fatal("expected palette to close after execution")
	}
	if len(backend.logs) != 1 || backend.logs[0].ContactSystemID != "ada" || backend.logs[0].Summary != "coffee downtown" {
		t.Fatalf("unexpected logs: %+v", backend.logs)
	}
	if m.Status.IsError || !strings.Contains(m.Status.Text, "was overdue") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if cmd == nil {
		t.Fatal("expected a refresh after a mutation")
	}
}

func TestPaletteRequiresSelection(t *testing.T) {
	backend := newFakeBackend()
	m := NewModel(Options{Backend: backend})

	m, _ = typePalette(t, m, "log hello")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "no contact selected") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if len(backend.logs) != 0 {
		t.Fatalf("expected no logs, got %+v", backend.logs)
	}
}

func TestPaletteParseErrorIsReported(t *testing.T) {
	m := loaded(t, newFakeBackend())
	m, cmd := typePalette(t, m, "cadence soon")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "invalid_argument") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if cmd != nil {
		t.Fatal("expected no follow-up command on parse failure")
	}
}

func TestPaletteCadenceAndCircle(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)

	m, _ = typePalette(t, m, "cadence default")
	if p := backend.patches["ada"]; !p.ClearCustomReminderDays || p.CustomReminderDays != nil {
		t.Fatalf("expected cadence override cleared, got %+v", p)
	}

	m, _ = typePalette(t, m, "cadence 10")
	if p := backend.patches["ada"]; p.CustomReminderDays == nil || *p.CustomReminderDays != 10 || p.ClearCustomReminderDays {
		t.Fatalf("expected cadence 10, got %+v", p)
	}

	_, _ = typePalette(t, m, "circle outer")
	if p := backend.patches["ada"]; p.Circle == nil || *p.Circle != model.CircleOuter {
		t.Fatalf("expected outer circle, got %+v", p)
	}
}

func TestPaletteConfig(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)
	m, _ = typePalette(t, m, "config persistent on")
	if len(backend.config) != 1 || backend.config[0].ShouldKeepRemindersPersistent == nil || !*backend.config[0].ShouldKeepRemindersPersistent {
		t.Fatalf("unexpected config patches: %+v", backend.config)
	}
	if m.Status.Text != "config persistent set to on" {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestPaletteFindFiltersGarden(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)

	m, cmd := typePalette(t, m, "find grace")
	if m.CurrentView != ViewGarden || m.GardenQuery != "grace" {
		t.Fatalf("expected filtered garden view, got view=%q query=%q", m.CurrentView, m.GardenQuery)
	}
	if cmd == nil {
		t.Fatal("expected refresh command")
	}
	updated, _ := m.Update(m.refreshCmd()())
	m = updated.(Model)
	if len(m.GardenRows) != 1 || m.GardenRows[0].Contact.SystemID != "grace" {
		t.Fatalf("unexpected garden rows: %+v", m.GardenRows)
	}
	if m.SelectedID != "grace" {
		t.Fatalf("expected grace selected, got %q", m.SelectedID)
	}
	if last := backend.queries[len(backend.queries)-1]; last != "grace" {
		t.Fatalf("expected garden query grace, got %q", last)
	}
}

func TestReplanLifecycle(t *testing.T) {
	backend := newFakeBackend()
	m := loaded(t, backend)

	m, cmd := m.startReplan(true)
	if !m.Replanning || cmd == nil {
		t.Fatalf("expected replan in progress, replanning=%v", m.Replanning)
	}
	next, again := m.startReplan(false)
	if again != nil || !next.Replanning {
		t.Fatal("expected a second replan to be ignored while one runs")
	}

	msg := m.replanCmd(true)()
	if len(backend.replans) != 1 || !backend.replans[0].ForceSync || backend.replans[0].Reason != planner.ReasonDataChange {
		t.Fatalf("unexpected replans: %+v", backend.replans)
	}
	updated, _ := m.Update(msg)
	m = updated.(Model)
	if m.Replanning || m.Status.Text != "replan complete" {
		t.Fatalf("unexpected state after replan: replanning=%v status=%+v", m.Replanning, m.Status)
	}

	updated, _ = m.Update(ReplanDoneMsg{Err: errors.New("store offline")})
	m = updated.(Model)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "store offline") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestFocusAndBlurSendLifecycleSignals(t *testing.T) {
	signals := make(chan planner.LifecycleEvent, 2)
	m := NewModel(Options{Signals: signals})

	updated, _ := m.Update(tea.FocusMsg{})
	m = updated.(Model)
	updated, _ = m.Update(tea.BlurMsg{})
	_ = updated.(Model)

	if got := <-signals; got != planner.Foreground {
		t.Fatalf("expected foreground, got %q", got)
	}
	if got := <-signals; got != planner.Background {
		t.Fatalf("expected background, got %q", got)
	}
}

func TestLifecycleSignalDoesNotBlockWhenFull(t *testing.T) {
	signals := make(chan planner.LifecycleEvent)
	m := NewModel(Options{Signals: signals})

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Update(tea.FocusMsg{})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("focus handling blocked on a full signal channel")
	}
}

func TestInitWithSchedulerReturnsReminderCmd(t *testing.T) {
	engine := scheduler.NewEngine(1)
	m := NewModel(Options{Scheduler: engine})
	if cmd := m.Init(); cmd == nil {
		t.Fatal("expected reminder wait cmd when scheduler is attached")
	}
}

func TestReminderDueMsgAppendsLogNotifiesAndDismisses(t *testing.T) {
	engine := scheduler.NewEngine(4)
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	content := planner.OverdueContent([]garden.Row{{Contact: model.Contact{FullName: "Ada"}}}, false, "2026-03-10")
	if err := engine.ScheduleAt(ctx, "overdue.2026-03-10", content, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var fired scheduler.Notification
	select {
	case fired = <-engine.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	notifier := &recordingNotifier{}
	m := NewModel(Options{Scheduler: engine, Notifier: notifier, DesktopEnabled: true})
	updated, cmd := m.Update(ReminderDueMsg{Notification: fired})
	next := updated.(Model)

	if len(next.ReminderLog) != 1 || next.ReminderLog[0].ID != "overdue.2026-03-10" {
		t.Fatalf("unexpected reminder log: %#v", next.ReminderLog)
	}
	if cmd == nil {
		t.Fatal("expected reminder listener rearm cmd")
	}
	if !next.Status.IsError || !strings.Contains(next.Status.Text, "Friendly Reminder") {
		t.Fatalf("unexpected status: %+v", next.Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Friendly Reminder" {
		t.Fatalf("unexpected desktop notifications: %+v", notifier.sent)
	}
	if got := engine.Delivered(); len(got) != 0 {
		t.Fatalf("expected auto dismissed notification, got %+v", got)
	}
}

func TestStickyReminderStaysUntilDismissed(t *testing.T) {
	engine := scheduler.NewEngine(4)
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	content := planner.OverdueContent([]garden.Row{{Contact: model.Contact{FullName: "Ada"}}}, true, "2026-03-10")
	if err := engine.ScheduleAt(ctx, "overdue.2026-03-10", content, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	var fired scheduler.Notification
	select {
	case fired = <-engine.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	m := NewModel(Options{Scheduler: engine})
	updated, _ := m.Update(ReminderDueMsg{Notification: fired})
	m = updated.(Model)
	if got := engine.Delivered(); len(got) != 1 {
		t.Fatalf("expected sticky notification to remain delivered, got %+v", got)
	}

	updated, _ = m.Update(SwitchViewMsg{View: ViewPlan})
	m = updated.(Model)
	if out := m.View(); !strings.Contains(out, "delivered: 1") {
		t.Fatalf("expected delivered count in plan view: %q", out)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = updated.(Model)
	if got := engine.Delivered(); len(got) != 0 {
		t.Fatalf("expected x to dismiss delivered notifications, got %+v", got)
	}
	if m.Status.Text != "dismissed 1 notification(s)" {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestPlanViewListsPendingNotifications(t *testing.T) {
	engine := scheduler.NewEngine(1)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := engine.ScheduleAt(ctx, "events.2026-03-14", scheduler.Content{Title: "Upcoming"}, at); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	m := NewModel(Options{Scheduler: engine})
	m.CurrentView = ViewPlan
	out := m.View()
	if !strings.Contains(out, "pending: 1") || !strings.Contains(out, "events.2026-03-14") {
		t.Fatalf("expected pending notification in plan view: %q", out)
	}
}

func TestHelpToggleListsPaletteCommands(t *testing.T) {
	m := NewModel(Options{})
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = updated.(Model)
	if !m.HelpVisible {
		t.Fatal("expected help to be visible")
	}
	out := m.renderHelpView()
	for _, want := range []string{"- /log <summary>: log an interaction", "replan notifications"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in help:\n%s", want, out)
		}
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if updated.(Model).HelpVisible {
		t.Fatal("expected help to be hidden")
	}
}
