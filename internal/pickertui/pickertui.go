// Package pickertui implements the interactive window picker for
// `pinctl pin --interactive` (SPEC_FULL.md §12.4): a bubbletea list of
// eligible windows styled with lipgloss, in the same
// keyboard-driven-list idiom as gopeep's source picker.
package pickertui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/southflowpeak/pin/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// Result is what the picker returns once the user commits a choice or
// cancels.
type Result struct {
	Chosen    *model.TargetDescriptor
	Cancelled bool
}

type pickerModel struct {
	windows  []model.TargetDescriptor
	cursor   int
	result   Result
	quitting bool
}

func newPickerModel(windows []model.TargetDescriptor) pickerModel {
	return pickerModel{windows: windows}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		m.result = Result{Cancelled: true}
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.windows)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.windows) > 0 {
			chosen := m.windows[m.cursor]
			m.result = Result{Chosen: &chosen}
		} else {
			m.result = Result{Cancelled: true}
		}
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pin — choose a window"))
	b.WriteString("\n\n")

	if len(m.windows) == 0 {
		b.WriteString(dimStyle.Render("no eligible windows"))
		b.WriteString("\n")
	}
	for i, w := range m.windows {
		line := fmt.Sprintf("%s — %s", w.AppName, w.WindowTitle)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move · enter pin · q cancel"))
	b.WriteString("\n")
	return b.String()
}

// Run drives the picker to completion over windows, returning the
// user's choice. It blocks on the terminal until the user commits or
// cancels.
func Run(windows []model.TargetDescriptor) (Result, error) {
	m := newPickerModel(windows)
	program := tea.NewProgram(m)
	final, err := program.Run()
	if err != nil {
		return Result{}, err
	}
	return final.(pickerModel).result, nil
}
