package cli

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flowc/pkg/config"
)

// errNoSelection is returned when the picker is closed without a choice.
var errNoSelection = errors.New("no flow selected")

// FlowPickerModel is the bubbletea model behind "graph --pick".
type FlowPickerModel struct {
	Flows    []config.FlowRef
	Cursor   int
	Offset   int
	Height   int
	Selected *config.FlowRef
}

// NewFlowPickerModel lists flows in configuration order.
func NewFlowPickerModel(flows []config.FlowRef) FlowPickerModel {
	return FlowPickerModel{Flows: flows, Height: 15}
}

func (m FlowPickerModel) Init() tea.Cmd {
	return nil
}

func (m FlowPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Flows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Flows) == 0 {
				return m, tea.Quit
			}
			ref := m.Flows[m.Cursor]
			m.Selected = &ref
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m FlowPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Flow"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Flows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		ref := m.Flows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		minSdk := ref.Flow.MinSdkVersion
		if minSdk == "" {
			minSdk = "—"
		}
		rows = append(rows, []string{cursor, ref.Platform.Name, ref.Flow.Alias, ref.Flow.Name, minSdk, ref.Flow.Path})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "Platform", "Alias", "Name", "Min SDK", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 5 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Flows))))
	return b.String()
}

// pickFlow runs the picker and returns the chosen alias.
func pickFlow(cfg *config.Config) (string, error) {
	flows := cfg.Flows()
	if len(flows) == 0 {
		return "", errNoSelection
	}
	final, err := tea.NewProgram(NewFlowPickerModel(flows)).Run()
	if err != nil {
		return "", fmt.Errorf("flow picker: %w", err)
	}
	m, ok := final.(FlowPickerModel)
	if !ok || m.Selected == nil {
		return "", errNoSelection
	}
	return m.Selected.Flow.Alias, nil
}
