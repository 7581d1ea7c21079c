package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/upg"
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Pick a caller record interactively and render it",
		Long: `Pick a caller record interactively and render it.

Lists the caller records (*.json) in dir, default the current directory.
A tags.json next to them is used as tag table unless --tags is given.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := loadCallerEntries(dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printWarning("No caller records in %s", dir)
				return nil
			}

			final, err := tea.NewProgram(NewCallerListModel(entries)).Run()
			if err != nil {
				return err
			}
			sel := final.(CallerListModel).Selected
			if sel == nil {
				return nil
			}

			if flags.tags == "" {
				flags.tags = defaultTagTable(dir)
			}
			formats, err := parseFormats(flags.formats)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd, flags.noCache)
			if err != nil {
				return err
			}
			base, err := c.cfg().Options()
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), runner, sel.Path, formats, &flags, flags.options(base))
		},
	}
	flags.register(cmd)
	return cmd
}

// defaultTagTable returns dir/tags.json when it exists.
func defaultTagTable(dir string) string {
	p := filepath.Join(dir, "tags.json")
	if _, err := upg.LoadTagTable(p); err != nil {
		return ""
	}
	return p
}

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// CallerListModel - Interactive caller selection
// =============================================================================

// CallerEntry is one caller record shown in the list.
type CallerEntry struct {
	Path    string
	Name    string
	Safe    bool
	Callees int
	Err     error
}

func loadCallerEntries(dir string) ([]CallerEntry, error) {
	files, err := upg.ListCallerFiles(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]CallerEntry, 0, len(files))
	for _, f := range files {
		e := CallerEntry{Path: f}
		if caller, err := upg.LoadCaller(f); err != nil {
			e.Err = err
		} else {
			e.Name = caller.Name
			e.Safe = caller.Safe
			e.Callees = len(caller.Callees)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CallerListModel is the bubbletea model for interactive caller selection.
type CallerListModel struct {
	Entries  []CallerEntry
	Cursor   int
	Selected *CallerEntry
	Height   int
	Offset   int
}

// NewCallerListModel creates a new caller list model.
func NewCallerListModel(entries []CallerEntry) CallerListModel {
	return CallerListModel{
		Entries: entries,
		Height:  15,
	}
}

func (m CallerListModel) Init() tea.Cmd {
	return nil
}

func (m CallerListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Entries) == 0 {
				return m, nil
			}
			e := m.Entries[m.Cursor]
			if e.Err != nil {
				return m, nil
			}
			m.Selected = &e
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m CallerListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Caller"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ render  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Entries))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		name, safety, callees := e.Name, "unsafe", fmt.Sprint(e.Callees)
		if e.Safe {
			safety = "safe"
		}
		if e.Err != nil {
			name, safety, callees = "unreadable", "—", "—"
		}
		rows = append(rows, []string{cursor, filepath.Base(e.Path), name, safety, callees})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "File", "Caller", "Safety", "Callees").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Entries) {
				return lipgloss.NewStyle()
			}
			e := m.Entries[idx]
			base := lipgloss.NewStyle()
			switch {
			case e.Err != nil:
				base = base.Foreground(colorDim)
			case col == 3 && !e.Safe:
				base = base.Foreground(colorUnsafe)
			case col == 3:
				base = base.Foreground(colorSafe)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}
