package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/flowc/pkg/config"
)

func pickerFlows() []config.FlowRef {
	web := &config.Platform{Name: "web"}
	return []config.FlowRef{
		{Platform: web, Flow: &config.Flow{Name: "Checkout", Alias: "checkout", Path: "flows/checkout.lua"}},
		{Platform: web, Flow: &config.Flow{Name: "Login", Alias: "login", MinSdkVersion: "3", Path: "flows/login.lua"}},
	}
}

func press(m tea.Model, keys ...tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(k)
	}
	return m, cmd
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestFlowPickerSelect(t *testing.T) {
	m, cmd := press(NewFlowPickerModel(pickerFlows()), keyDown, keyDown, keyUp, keyDown, keyEnter)
	if cmd == nil {
		t.Fatal("enter should quit the program")
	}
	got := m.(FlowPickerModel)
	if got.Selected == nil || got.Selected.Flow.Alias != "login" {
		t.Errorf("Selected = %+v, want login", got.Selected)
	}
}

func TestFlowPickerQuit(t *testing.T) {
	m, cmd := press(NewFlowPickerModel(pickerFlows()), keyEsc)
	if cmd == nil {
		t.Fatal("esc should quit the program")
	}
	if m.(FlowPickerModel).Selected != nil {
		t.Error("esc should not select a flow")
	}
}

func TestFlowPickerScroll(t *testing.T) {
	m := NewFlowPickerModel(pickerFlows())
	m.Height = 1
	next, _ := press(m, keyDown)
	if got := next.(FlowPickerModel); got.Offset != 1 || got.Cursor != 1 {
		t.Errorf("cursor %d offset %d, want 1 and 1", got.Cursor, got.Offset)
	}
}

func TestFlowPickerView(t *testing.T) {
	view := NewFlowPickerModel(pickerFlows()).View()
	for _, want := range []string{"Select Flow", "checkout", "flows/login.lua", "[1/2]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}
