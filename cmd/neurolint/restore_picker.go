package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"neurolint/internal/backup"
)

// backupItem adapts a backup.Entry to list.Item for the interactive
// restore picker.
type backupItem struct {
	entry backup.Entry
}

func (i backupItem) Title() string {
	return fmt.Sprintf("%s  (%s)", i.entry.File, i.entry.SessionID)
}

func (i backupItem) Description() string {
	return fmt.Sprintf("%s  %dB  created %s", i.entry.ContentHash[:12], i.entry.SizeBytes, i.entry.CreatedAt.Format("2006-01-02 15:04:05"))
}

func (i backupItem) FilterValue() string {
	return i.entry.File + " " + i.entry.SessionID
}

// restorePickerModel is a bubbletea model listing backup entries and
// letting the operator pick one to restore.
type restorePickerModel struct {
	list     list.Model
	chosen   *backup.Entry
	quitting bool
}

func newRestorePickerModel(entries []backup.Entry) restorePickerModel {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = backupItem{entry: e}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a backup to restore"
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	return restorePickerModel{list: l}
}

func (m restorePickerModel) Init() tea.Cmd {
	return nil
}

func (m restorePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(backupItem); ok {
				entry := item.entry
				m.chosen = &entry
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m restorePickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// runRestorePicker drives the interactive picker to completion and
// returns the chosen entry, or nil if the operator quit without
// choosing one.
func runRestorePicker(entries []backup.Entry) (*backup.Entry, error) {
	model := newRestorePickerModel(entries)
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("restore picker failed: %w", err)
	}
	m, ok := final.(restorePickerModel)
	if !ok {
		return nil, nil
	}
	return m.chosen, nil
}
