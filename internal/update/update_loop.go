package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
	"github.com/sandeepkv93/tend/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd()}
	if m.engine != nil {
		cmds = append(cmds, waitForReminderCmd(m.engine.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.UpNext:
			m.CurrentView = ViewUpNext
			m.syncSelection()
			return m, nil
		case m.Keys.Garden:
			m.CurrentView = ViewGarden
			m.syncSelection()
			return m, nil
		case m.Keys.Profile:
			return m.openProfile()
		case m.Keys.Plan:
			m.CurrentView = ViewPlan
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case "r":
			m.Status = StatusBar{Text: "refreshing"}
			return m, m.refreshCmd()
		case "R":
			return m.startReplan(false)
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		switch m.CurrentView {
		case ViewUpNext, ViewGarden:
			return m.handleListKey(typed)
		case ViewProfile:
			if typed.String() == "esc" {
				m.CurrentView = ViewUpNext
				return m, nil
			}
			var cmd tea.Cmd
			m.descViewport, cmd = m.descViewport.Update(typed)
			return m, cmd
		case ViewPlan:
			if typed.String() == "x" {
				return m.dismissDelivered(), nil
			}
		}
	case tea.FocusMsg:
		m.signal(planner.Foreground)
		return m, m.refreshCmd()
	case tea.BlurMsg:
		m.signal(planner.Background)
		return m, nil
	case spinner.TickMsg:
		if m.Replanning {
			var cmd tea.Cmd
			m.replanSpinner, cmd = m.replanSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if !isKnownView(typed.View) {
			return m, nil
		}
		if typed.View == ViewProfile {
			return m.openProfile()
		}
		m.CurrentView = typed.View
		m.syncSelection()
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case DataLoadedMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: fmt.Sprintf("load failed: %v", typed.Err), IsError: true}
			return m, nil
		}
		m.Buckets = typed.Buckets
		m.GardenRows = typed.Garden
		m.Events = typed.Events
		m.clampCursors()
		m.syncSelection()
		if m.Status.Text == "refreshing" {
			m.Status = StatusBar{}
		}
		return m, nil
	case ProfileLoadedMsg:
		if typed.ID != m.SelectedID {
			return m, nil
		}
		if typed.Err != nil {
			m.Profile = nil
			m.ProfileErr = typed.Err
			return m, nil
		}
		p := typed.Profile
		m.Profile = &p
		m.ProfileErr = nil
		m.descViewport.SetContent(renderDescription(p.Contact.Description))
		m.descViewport.GotoTop()
		return m, nil
	case ReplanDoneMsg:
		m.Replanning = false
		if typed.Err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("replan failed: %v", typed.Err), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: "replan complete"}
		return m, m.refreshCmd()
	case ReminderDueMsg:
		m.applyReminder(typed.Notification)
		if m.engine != nil {
			return m, waitForReminderCmd(m.engine.C())
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := len(m.visibleRows())
	switch msg.String() {
	case "j", "down":
		if m.Cursor[m.CurrentView] < n-1 {
			m.Cursor[m.CurrentView]++
		}
	case "k", "up":
		if m.Cursor[m.CurrentView] > 0 {
			m.Cursor[m.CurrentView]--
		}
	case "enter":
		m.syncSelection()
		return m.openProfile()
	}
	m.syncSelection()
	return m, nil
}

func (m Model) openProfile() (Model, tea.Cmd) {
	m.CurrentView = ViewProfile
	if m.SelectedID == "" {
		m.Profile = nil
		return m, nil
	}
	if m.Profile != nil && m.Profile.Contact.SystemID == m.SelectedID {
		return m, nil
	}
	return m, m.profileCmd(m.SelectedID)
}

func (m Model) startReplan(forceSync bool) (Model, tea.Cmd) {
	if m.Replanning {
		return m, nil
	}
	m.Replanning = true
	m.Status = StatusBar{Text: "replanning"}
	return m, tea.Batch(m.replanSpinner.Tick, m.replanCmd(forceSync))
}

func (m Model) dismissDelivered() Model {
	if m.engine == nil {
		return m
	}
	ctx := context.Background()
	dismissed := 0
	for _, n := range m.engine.Delivered() {
		if err := m.engine.Dismiss(ctx, n.ID); err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("dismiss failed: %v", err), IsError: true}
			return m
		}
		dismissed++
	}
	m.Status = StatusBar{Text: fmt.Sprintf("dismissed %d notification(s)", dismissed)}
	return m
}

// visibleRows lists the rows of the current list view in display order.
func (m Model) visibleRows() []garden.Row {
	switch m.CurrentView {
	case ViewUpNext:
		b := m.Buckets
		out := make([]garden.Row, 0, len(b.NeedsWater)+len(b.Today)+len(b.ThisWeek)+len(b.Later))
		out = append(out, b.NeedsWater...)
		out = append(out, b.Today...)
		out = append(out, b.ThisWeek...)
		return append(out, b.Later...)
	case ViewGarden:
		return m.GardenRows
	default:
		return nil
	}
}

func (m *Model) syncSelection() {
	rows := m.visibleRows()
	if len(rows) == 0 {
		return
	}
	c := m.Cursor[m.CurrentView]
	if c >= len(rows) {
		c = len(rows) - 1
	}
	m.SelectedID = rows[c].Contact.SystemID
}

func (m *Model) clampCursors() {
	for _, v := range []View{ViewUpNext, ViewGarden} {
		n := len(m.visibleRowsFor(v))
		if m.Cursor[v] >= n {
			m.Cursor[v] = max(n-1, 0)
		}
	}
}

func (m Model) signal(ev planner.LifecycleEvent) {
	if m.signals == nil {
		return
	}
	select {
	case m.signals <- ev:
	default:
		m.log.WithField("event", ev).Debug("lifecycle signal dropped")
	}
}

func (m Model) refreshCmd() tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend, query := m.backend, m.GardenQuery
	return func() tea.Msg {
		ctx := context.Background()
		buckets, err := backend.Buckets(ctx)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		rows, err := backend.Garden(ctx, query)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		events, err := backend.UpcomingEvents(ctx)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		return DataLoadedMsg{Buckets: buckets, Garden: rows, Events: events}
	}
}

func (m Model) profileCmd(id string) tea.Cmd {
	if m.backend == nil {
		return nil
	}
	backend := m.backend
	return func() tea.Msg {
		p, err := backend.Profile(context.Background(), id)
		return ProfileLoadedMsg{ID: id, Profile: p, Err: err}
	}
}

func (m Model) replanCmd(forceSync bool) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if backend == nil {
			return ReplanDoneMsg{}
		}
		err := backend.Replan(context.Background(), planner.Request{Reason: planner.ReasonDataChange, ForceSync: forceSync})
		return ReplanDoneMsg{Err: err}
	}
}

func waitForReminderCmd(ch <-chan scheduler.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Notification: n}
	}
}

func (m Model) View() string {
	m.syncBubbleData()
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewUpNext:
		leftPane = m.renderUpNextView()
		rightPane = m.renderEventsView()
	case ViewGarden:
		leftPane = m.renderGardenView()
		rightPane = m.renderEventsView()
	case ViewProfile:
		leftPane = m.renderProfileView()
		rightPane = m.descViewport.View()
	case ViewPlan:
		leftPane = m.renderPlanView()
	}
	rightPane = strings.TrimSpace(strings.Join([]string{rightPane, m.renderCommandPalette(), m.renderHelpIfVisible()}, "\n\n"))

	notificationView := ""
	if len(m.ReminderLog) > 0 {
		last := m.ReminderLog[len(m.ReminderLog)-1]
		notificationView = fmt.Sprintf("last-reminder: %s @ %s", last.ID, last.TriggerAt.Format("15:04"))
	}
	if m.Replanning {
		notificationView = strings.TrimSpace(notificationView + "\nreplan: " + m.replanSpinner.View() + " running")
	}
	notificationView = strings.TrimSpace(strings.Join([]string{notificationView, m.renderNotificationsView()}, "\n"))

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("tend | view: %s | selected: %s", m.CurrentView, m.selectedName()),
		Tabs:         []string{string(ViewUpNext), string(ViewGarden), string(ViewProfile), string(ViewPlan)},
		ActiveTab:    string(m.CurrentView),
		NeedsWater:   len(m.Buckets.NeedsWater),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		IsError:      m.Status.IsError,
		Notification: notificationView,
		Footer:       fmt.Sprintf("keys: %s up next | %s garden | %s profile | %s plan | / cmd | %s help | %s quit", m.Keys.UpNext, m.Keys.Garden, m.Keys.Profile, m.Keys.Plan, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewUpNext, ViewGarden, ViewProfile, ViewPlan:
		return true
	default:
		return false
	}
}
