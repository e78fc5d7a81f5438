package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/flowkeeper/pkg/catalog"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/mutate"
)

var (
	choiceSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	choiceNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	choiceDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tableHeaderStyle    = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// ConfirmModel - Yes/No prompt
// =============================================================================

// ConfirmModel is the bubbletea model for a yes/no question.
type ConfirmModel struct {
	Message  string
	Yes      bool
	Answered bool
}

// NewConfirmModel creates a prompt with "No" preselected.
func NewConfirmModel(message string) ConfirmModel {
	return ConfirmModel{Message: message}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.Yes = false
		return m, tea.Quit
	case "left", "right", "h", "l", "tab":
		m.Yes = !m.Yes
	case "y", "Y":
		m.Yes, m.Answered = true, true
		return m, tea.Quit
	case "n", "N":
		m.Yes, m.Answered = false, true
		return m, tea.Quit
	case "enter":
		m.Answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.Answered {
		return ""
	}
	yes, no := choiceNormalStyle.Render("  Yes  "), choiceSelectedStyle.Render("▸ No  ")
	if m.Yes {
		yes, no = choiceSelectedStyle.Render("▸ Yes "), choiceNormalStyle.Render("  No   ")
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Message))
	b.WriteString("\n\n  ")
	b.WriteString(yes + "  " + no)
	b.WriteString("\n\n")
	b.WriteString(choiceDimStyle.Render("←/→ choose  y/n answer  ⏎ confirm  q cancel"))
	b.WriteString("\n")
	return b.String()
}

// newConfirmer returns the confirmer for drop-to-group prompts. A non-nil
// answer (from --yes or --no) answers every prompt without asking. Without a
// terminal to ask on, every prompt is declined.
func newConfirmer(answer *bool) mutate.Confirmer {
	if answer != nil {
		return mutate.Always(*answer)
	}
	if !isTerminal(os.Stdin) {
		return mutate.Always(false)
	}
	return mutate.ConfirmFunc(promptConfirm)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusWriter is where spinners draw: stderr when it is a terminal,
// nowhere otherwise.
func statusWriter() io.Writer {
	if isTerminal(os.Stderr) {
		return os.Stderr
	}
	return io.Discard
}

// promptConfirm asks interactively. Any terminal failure declines.
func promptConfirm(message string) bool {
	p := tea.NewProgram(NewConfirmModel(message), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return false
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Answered && m.Yes
}

// =============================================================================
// Tables
// =============================================================================

// nodeTable renders the nodes of g, grouped by container.
func nodeTable(g flow.GraphDocument) string {
	nodes := make([]flow.Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		return groupKey(nodes[i]) < groupKey(nodes[j])
	})

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		category := "—"
		if p, ok := catalog.Lookup(n.Type); ok {
			category = categoryStyle(p.Category).Render(string(p.Category))
		}
		group := n.GroupContainerID
		if group == "" {
			group = "—"
		}
		size := catalog.NodeSize(n)
		rows = append(rows, []string{
			n.ID,
			string(n.Type),
			category,
			n.Label(),
			fmt.Sprintf("%.0f,%.0f", n.Position.X, n.Position.Y),
			fmt.Sprintf("%.0f×%.0f", size.Width, size.Height),
			group,
		})
	}

	return newTable("Node", "Kind", "Category", "Label", "Position", "Size", "Group").
		Rows(rows...).
		String()
}

// edgeTable renders the edges of g.
func edgeTable(g flow.GraphDocument) string {
	rows := make([][]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		rows = append(rows, []string{
			e.Source + " " + StyleDim.Render(e.SourceHandle),
			iconArrow,
			e.Target + " " + StyleDim.Render(e.TargetHandle),
		})
	}
	return newTable("Source", "", "Target").Rows(rows...).String()
}

// graphTable lists the graphs of p and marks the active one.
func graphTable(p flow.ProjectSnapshot) string {
	rows := make([][]string, 0, len(p.Graphs))
	for _, g := range p.Graphs {
		mark := ""
		if g.ID == p.ActiveGraphID {
			mark = "▸"
		}
		rows = append(rows, []string{mark, g.ID, g.Name, fmt.Sprint(len(g.Nodes)), fmt.Sprint(len(g.Edges))})
	}
	return newTable("", "Graph", "Name", "Nodes", "Edges").Rows(rows...).String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// groupKey sorts containers before their members and members after the
// ungrouped nodes of the same container id.
func groupKey(n flow.Node) string {
	if n.IsContainer() {
		return n.ID + "\x00"
	}
	if n.GroupContainerID != "" {
		return n.GroupContainerID + "\x01" + n.ID
	}
	return "\x00" + n.ID
}
