// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/catalink/internal/bib"
)

const (
	defaultListWidth  = 80
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected an item.
	ActionSelected
	// ActionSkipped indicates the user closed the picker without choosing.
	ActionSkipped
	// ActionStopped indicates the user aborted.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *bib.SearchResult
}

type resultItem struct {
	bib.SearchResult
}

func (i resultItem) Title() string {
	return i.SearchResult.Title
}

func (i resultItem) FilterValue() string {
	return i.SearchResult.Title + " " + i.Author
}

func (i resultItem) Description() string {
	return i.Link
}

type itemStyles struct {
	normal      lipgloss.Style
	selected    lipgloss.Style
	formatStyle lipgloss.Style
	titleStyle  lipgloss.Style
	bylineStyle lipgloss.Style
	linkStyle   lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		formatStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		bylineStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
		linkStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Underline(true),
	}
}

type resultDelegate struct {
	styles itemStyles
}

func (d resultDelegate) Height() int                         { return 4 }
func (d resultDelegate) Spacing() int                        { return 1 }
func (d resultDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d resultDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	result, ok := item.(resultItem)
	if !ok {
		return
	}

	width := m.Width() - 4
	content := lipgloss.JoinVertical(lipgloss.Left,
		d.styles.formatStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(result.Format))),
		d.styles.titleStyle.Render(truncate(result.SearchResult.Title, width)),
		d.styles.bylineStyle.Render(truncate(byline(result.SearchResult), width)),
		d.styles.linkStyle.Render(truncate(result.Link, width)),
	)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list   list.Model
	query  string
	total  int
	result SelectionResult
}

func newModel(query string, total int, results []bib.SearchResult) *model {
	listItems := make([]list.Item, len(results))
	for i, r := range results {
		listItems[i] = resultItem{SearchResult: r}
	}

	l := list.New(listItems, resultDelegate{styles: newItemStyles()}, defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:   l,
		query:  query,
		total:  total,
		result: SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(resultItem); ok {
				result := selected.SearchResult
				m.result = SelectionResult{Action: ActionSelected, Selection: &result}
				return m, tea.Quit
			}
		case "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("%d of %d results for: %s", len(m.list.Items()), m.total, m.query))
	help := helpStyle.Render("Up/Down navigate | Enter open | Esc close | q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// Select lets the user pick one result. An empty list is skipped without
// starting the UI.
func Select(query string, total int, results []bib.SearchResult) (SelectionResult, error) {
	if len(results) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	finalModel, err := runProgram(newModel(query, total, results))
	if err != nil {
		return SelectionResult{}, err
	}

	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}

	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func byline(r bib.SearchResult) string {
	parts := make([]string, 0, 2)
	if r.Author != "" {
		parts = append(parts, r.Author)
	}
	if r.Date != "" {
		parts = append(parts, r.Date)
	}
	if len(parts) == 0 {
		return "Unknown author"
	}
	return strings.Join(parts, " | ")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
