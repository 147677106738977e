package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/tend/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	for _, kb := range paletteCommands {
		plain = append(plain, fmt.Sprintf("- /%s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

var paletteCommands = []KeyBinding{
	{Key: "log <summary>", Action: "log an interaction"},
	{Key: "circle inner|mid|outer", Action: "move to a circle"},
	{Key: "cadence <days>|default", Action: "set reminder cadence"},
	{Key: "config <key> <value>", Action: "change a setting"},
	{Key: "replan [sync]", Action: "rebuild notifications"},
	{Key: "find <name>", Action: "filter the garden"},
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.UpNext, Action: "switch to Up Next"},
		{Key: m.Keys.Garden, Action: "switch to Garden"},
		{Key: m.Keys.Profile, Action: "open selected profile"},
		{Key: m.Keys.Plan, Action: "switch to Plan"},
		{Key: "/", Action: "open command palette"},
		{Key: "r", Action: "refresh"},
		{Key: "R", Action: "replan notifications"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewUpNext, ViewGarden:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "enter", Action: "open profile"},
		}
	case ViewProfile:
		return []KeyBinding{
			{Key: "up/down", Action: "scroll notes"},
			{Key: "esc", Action: "back to Up Next"},
		}
	case ViewPlan:
		return []KeyBinding{
			{Key: "x", Action: "dismiss delivered notifications"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
