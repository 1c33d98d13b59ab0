package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // primary text, e.g. wallet name
	SubLabel string // secondary text shown dimmed, e.g. address
	Value    string // returned on selection
	Current  bool   // marked and preselected
}

// pickerModel is the Bubble Tea model for the list picker.
type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items}
	for i, it := range items {
		if it.Current {
			m.cursor = i
			break
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) > 0 {
			item := m.items[m.cursor]
			m.selected = &item
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.title) + "\n\n")

	for i, item := range m.items {
		prefix := "    "
		if i == m.cursor {
			prefix = "  ▸ "
		}
		line := prefix + StyleValue.Render(item.Label)
		if item.Current {
			line += " " + StyleSuccess.Render("●")
		}
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if i == m.cursor {
			sb.WriteString(StyleSelected.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   [ q ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive picker and returns the chosen Value. It
// returns ("", nil) when the user cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to pick from")
	}

	p := tea.NewProgram(newPickerModel(title, items), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}

	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}
