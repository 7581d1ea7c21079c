package cli

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m CallerListModel, msgs ...tea.Msg) (CallerListModel, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model = m
	for _, msg := range msgs {
		next, cmd = next.(CallerListModel).Update(msg)
	}
	return next.(CallerListModel), cmd
}

func TestCallerListNavigation(t *testing.T) {
	m := NewCallerListModel([]CallerEntry{
		{Path: "a.json", Name: "a"},
		{Path: "b.json", Name: "b"},
		{Path: "c.json", Name: "c"},
	})

	m, _ = update(m, key("down"), key("down"), key("down"))
	if m.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2 (clamped)", m.Cursor)
	}
	m, _ = update(m, key("k"))
	if m.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1", m.Cursor)
	}

	m, cmd := update(m, key("enter"))
	if m.Selected == nil || m.Selected.Name != "b" {
		t.Fatalf("Selected = %+v, want b", m.Selected)
	}
	if cmd == nil {
		t.Error("enter should quit")
	}
}

func TestCallerListScrolls(t *testing.T) {
	entries := make([]CallerEntry, 10)
	for i := range entries {
		entries[i] = CallerEntry{Path: "x.json", Name: "x"}
	}
	m := NewCallerListModel(entries)
	m.Height = 3

	m, _ = update(m, key("j"), key("j"), key("j"), key("j"))
	if m.Offset != 2 {
		t.Errorf("Offset = %d, want 2", m.Offset)
	}
	m, _ = update(m, key("up"), key("up"), key("up"), key("up"))
	if m.Offset != 0 || m.Cursor != 0 {
		t.Errorf("Offset, Cursor = %d, %d, want 0, 0", m.Offset, m.Cursor)
	}
}

func TestCallerListSkipsUnreadable(t *testing.T) {
	m := NewCallerListModel([]CallerEntry{{Path: "bad.json", Err: errors.New("boom")}})
	m, cmd := update(m, key("enter"))
	if m.Selected != nil || cmd != nil {
		t.Error("unreadable entry should not be selectable")
	}
	if !strings.Contains(m.View(), "unreadable") {
		t.Error("view should mark unreadable entries")
	}
}

func TestCallerListQuit(t *testing.T) {
	m, cmd := update(NewCallerListModel(nil), key("q"))
	if m.Selected != nil || cmd == nil {
		t.Error("q should quit without selection")
	}
}

func TestLoadCallerEntries(t *testing.T) {
	dir := t.TempDir()
	writeCaller(t, dir, "foo.json", testCaller)
	writeCaller(t, dir, "broken.json", "{")
	writeCaller(t, dir, "tags.json", "{}")

	entries, err := loadCallerEntries(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Err == nil {
		t.Error("broken.json should carry a load error")
	}
	if entries[1].Name != "crate::foo" || !entries[1].Safe || entries[1].Callees != 2 {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if got := defaultTagTable(dir); got != filepath.Join(dir, "tags.json") {
		t.Errorf("defaultTagTable = %q", got)
	}
	if got := defaultTagTable(filepath.Join(dir, "missing")); got != "" {
		t.Errorf("defaultTagTable(missing) = %q, want empty", got)
	}
}
