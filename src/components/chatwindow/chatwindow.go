// Package chatwindow renders the message pane: the active message sequence,
// a spinner for placeholder messages, and source references on deep-search
// answers.
package chatwindow

import (
	"fmt"
	"strings"

	"deepchat/src/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the message pane state.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	messages   []types.Message
	deepSearch bool
	width      int
	height     int

	style          lipgloss.Style
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	sourceStyle    lipgloss.Style
	emptyStyle     lipgloss.Style
}

// New creates a message pane with default styles.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return Model{
		viewport:       viewport.New(60, 20),
		spinner:        s,
		style:          lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		userLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		assistantLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		sourceStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		emptyStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
	}
}

// Init starts the placeholder spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetMessages replaces the rendered message sequence and scrolls to the
// bottom.
func (m *Model) SetMessages(messages []types.Message) {
	m.messages = messages
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// SetDeepSearch switches the pane's empty-state hint.
func (m *Model) SetDeepSearch(active bool) {
	m.deepSearch = active
	m.viewport.SetContent(m.renderMessages())
}

// SetSize updates the pane dimensions and rebuilds the markdown renderer to
// match the new wrap width.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 4
	m.viewport.Height = height - 2

	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}
	if renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	); err == nil {
		m.renderer = renderer
	}
	m.viewport.SetContent(m.renderMessages())
}

// Update advances the spinner and forwards scroll keys to the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	if _, ok := msg.(spinner.TickMsg); ok {
		// Re-render so the placeholder frame advances.
		m.viewport.SetContent(m.renderMessages())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the pane.
func (m Model) View() string {
	return m.style.Width(m.width - 2).Height(m.height).Render(m.viewport.View())
}

func (m *Model) renderMessages() string {
	if len(m.messages) == 0 {
		hint := "Start a conversation. Enter sends a message."
		if m.deepSearch {
			hint = "Deep search is on. Queries return sourced answers."
		}
		return m.emptyStyle.Render(hint)
	}

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

func (m *Model) renderMessage(msg types.Message) string {
	label := m.userLabel.Render("You")
	if msg.Role == types.RoleAssistant {
		label = m.assistantLabel.Render("Assistant")
	}

	if msg.IsPlaceholder() {
		return fmt.Sprintf("%s\n%s thinking...", label, m.spinner.View())
	}

	body := msg.Content
	if msg.Role == types.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(msg.Content); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}

	out := label + "\n" + body
	if msg.Metadata != nil && len(msg.Metadata.Sources) > 0 {
		var sources []string
		for i, src := range msg.Metadata.Sources {
			sources = append(sources, fmt.Sprintf("  [%d] %s", i+1, src))
		}
		out += "\n" + m.sourceStyle.Render("Sources:\n"+strings.Join(sources, "\n"))
	}
	return out
}
