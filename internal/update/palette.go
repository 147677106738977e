package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tend/internal/commands"
	"github.com/sandeepkv93/tend/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
	return m, nil
}

func errNoSelection() error {
	return &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no contact selected"}
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	if m.backend == nil {
		m.Status = StatusBar{Text: "no backend configured", IsError: true}
		return m, nil
	}

	ctx := context.Background()
	var follow tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Log: func(a commands.LogArgs) (commands.Result, error) {
			if m.SelectedID == "" {
				return commands.Result{}, errNoSelection()
			}
			entry, err := m.backend.LogInteraction(ctx, model.LogInput{ContactSystemID: m.SelectedID, Summary: a.Summary})
			if err != nil {
				return commands.Result{}, err
			}
			msg := fmt.Sprintf("logged interaction with %s", m.selectedName())
			if entry.WasOverdue {
				msg += " (was overdue)"
			}
			return commands.Result{Message: msg}, nil
		},
		Circle: func(a commands.CircleArgs) (commands.Result, error) {
			if m.SelectedID == "" {
				return commands.Result{}, errNoSelection()
			}
			c := a.Circle
			if _, err := m.backend.UpdateContact(ctx, m.SelectedID, model.ContactPatch{Circle: &c}); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s moved to %s circle", m.selectedName(), c)}, nil
		},
		Cadence: func(a commands.CadenceArgs) (commands.Result, error) {
			if m.SelectedID == "" {
				return commands.Result{}, errNoSelection()
			}
			patch := model.ContactPatch{CustomReminderDays: a.Days, ClearCustomReminderDays: a.Days == nil}
			if _, err := m.backend.UpdateContact(ctx, m.SelectedID, patch); err != nil {
				return commands.Result{}, err
			}
			if a.Days == nil {
				return commands.Result{Message: fmt.Sprintf("%s uses the circle cadence", m.selectedName())}, nil
			}
			return commands.Result{Message: fmt.Sprintf("%s every %d days", m.selectedName(), *a.Days)}, nil
		},
		Config: func(a commands.ConfigArgs) (commands.Result, error) {
			if _, err := m.backend.UpdateConfig(ctx, a.Patch); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("config %s set to %s", a.Key, a.Value)}, nil
		},
		Replan: func(a commands.ReplanArgs) (commands.Result, error) {
			m, follow = m.startReplan(a.ForceSync)
			return commands.Result{Message: "replanning"}, nil
		},
		Find: func(a commands.FindArgs) (commands.Result, error) {
			m.GardenQuery = a.Query
			m.CurrentView = ViewGarden
			m.Cursor[ViewGarden] = 0
			if a.Query == "" {
				return commands.Result{Message: "garden filter cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("garden filtered by %q", a.Query)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	if follow != nil {
		return m, follow
	}
	m.Profile = nil
	return m, tea.Batch(m.refreshCmd(), m.reloadProfileCmd())
}

func (m Model) reloadProfileCmd() tea.Cmd {
	if m.CurrentView != ViewProfile || m.SelectedID == "" {
		return nil
	}
	return m.profileCmd(m.SelectedID)
}
