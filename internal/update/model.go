// Package update holds the terminal UI state machine: key handling, the
// command palette and delivery of fired reminders.
package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/tend/internal/app"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
	"github.com/sirupsen/logrus"
)

type View string

const (
	ViewUpNext  View = "Up Next"
	ViewGarden  View = "Garden"
	ViewProfile View = "Profile"
	ViewPlan    View = "Plan"
)

// Backend is the application surface the UI reads and mutates.
type Backend interface {
	Now() time.Time
	Buckets(ctx context.Context) (garden.Buckets, error)
	Garden(ctx context.Context, query string) ([]garden.Row, error)
	UpcomingEvents(ctx context.Context) ([]model.UpcomingEvent, error)
	Profile(ctx context.Context, id string) (app.Profile, error)
	LogInteraction(ctx context.Context, in model.LogInput) (model.ContactLog, error)
	UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (model.Contact, error)
	UpdateConfig(ctx context.Context, patch model.AppConfigPatch) (model.AppConfig, error)
	Replan(ctx context.Context, req planner.Request) error
}

// PassReporter exposes the most recent planning pass.
type PassReporter interface {
	LastPass() planner.PassResult
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	UpNext  string
	Garden  string
	Profile string
	Plan    string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type Options struct {
	Backend        Backend
	Scheduler      *scheduler.Engine
	Passes         PassReporter
	Signals        chan<- planner.LifecycleEvent
	Notifier       DesktopNotifier
	DesktopEnabled bool
	Log            logrus.FieldLogger
}

type Model struct {
	CurrentView   View
	SelectedID    string
	GardenQuery   string
	Buckets       garden.Buckets
	GardenRows    []garden.Row
	Events        []model.UpcomingEvent
	Profile       *app.Profile
	ProfileErr    error
	Cursor        map[View]int
	Palette       CommandPaletteState
	HelpVisible   bool
	Notifications []Notification
	ReminderLog   []scheduler.Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error
	Replanning    bool

	backend        Backend
	engine         *scheduler.Engine
	passes         PassReporter
	signals        chan<- planner.LifecycleEvent
	notifier       DesktopNotifier
	desktopEnabled bool
	log            logrus.FieldLogger

	gardenTable   table.Model
	planTable     table.Model
	commandInput  textinput.Model
	replanSpinner spinner.Model
	helpModel     help.Model
	descViewport  viewport.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type DataLoadedMsg struct {
	Buckets garden.Buckets
	Garden  []garden.Row
	Events  []model.UpcomingEvent
	Err     error
}

type ProfileLoadedMsg struct {
	ID      string
	Profile app.Profile
	Err     error
}

type ReplanDoneMsg struct {
	Err error
}

type ReminderDueMsg struct {
	Notification scheduler.Notification
}

func NewModel(opts Options) Model {
	if opts.Notifier == nil {
		opts.Notifier = NoopDesktopNotifier{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	m := Model{
		CurrentView: ViewUpNext,
		Cursor:      make(map[View]int),
		Keys: GlobalKeyMap{
			UpNext:  "1",
			Garden:  "2",
			Profile: "3",
			Plan:    "4",
			Help:    "?",
			Quit:    "q",
		},
		backend:        opts.Backend,
		engine:         opts.Scheduler,
		passes:         opts.Passes,
		signals:        opts.Signals,
		notifier:       opts.Notifier,
		desktopEnabled: opts.DesktopEnabled,
		log:            opts.Log.WithField("component", "tui"),
	}
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	gardenCols := []table.Column{
		{Title: "Name", Width: 18},
		{Title: "Circle", Width: 6},
		{Title: "Last", Width: 11},
		{Title: "Due", Width: 11},
	}
	m.gardenTable = table.New(table.WithColumns(gardenCols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	planCols := []table.Column{
		{Title: "When", Width: 16},
		{Title: "ID", Width: 19},
		{Title: "Title", Width: 12},
	}
	m.planTable = table.New(table.WithColumns(planCols), table.WithRows([]table.Row{}), table.WithHeight(10))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.replanSpinner = spinner.New()
	m.replanSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.descViewport = viewport.New(46, 8)
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.GardenRows))
	for _, r := range m.GardenRows {
		rows = append(rows, table.Row{r.Contact.DisplayName(), string(r.Contact.Circle), model.LastSpokeLabel(r.LastSpokeAt, m.now()), model.DueLabel(r.Due, m.now())})
	}
	m.gardenTable.SetRows(rows)
	if c := m.Cursor[ViewGarden]; c < len(rows) {
		m.gardenTable.SetCursor(c)
	}

	var planRows []table.Row
	if m.engine != nil {
		for _, n := range m.engine.Pending() {
			planRows = append(planRows, table.Row{n.TriggerAt.Format("2006-01-02 15:04"), n.ID, n.Content.Title})
		}
	}
	m.planTable.SetRows(planRows)

	m.commandInput.SetValue(m.Palette.Input)
	if m.Palette.Active {
		m.commandInput.Focus()
	}
}

func (m Model) now() time.Time {
	if m.backend != nil {
		return m.backend.Now()
	}
	return time.Now()
}
