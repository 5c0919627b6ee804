// Package sidebar renders the chat list pane on the left of the layout.
package sidebar

import (
	"fmt"

	"deepchat/src/types"

	"github.com/charmbracelet/lipgloss"
)

// Model holds the sidebar state: the chat collection, the cursor, and which
// chat is active in the session.
type Model struct {
	chats        []types.Chat
	cursor       int
	activeChatID string
	focused      bool
	open         bool
	width        int
	height       int

	style       lipgloss.Style
	titleStyle  lipgloss.Style
	itemStyle   lipgloss.Style
	cursorStyle lipgloss.Style
	activeStyle lipgloss.Style
	badgeStyle  lipgloss.Style
}

// New creates a sidebar with default styles.
func New() Model {
	return Model{
		open:        true,
		width:       28,
		style:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		titleStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		itemStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		cursorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		activeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
		badgeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	}
}

// SetChats replaces the chat collection, clamping the cursor.
func (m *Model) SetChats(chats []types.Chat) {
	m.chats = chats
	if m.cursor >= len(chats) {
		m.cursor = len(chats) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// SetActive marks the chat currently active in the session.
func (m *Model) SetActive(chatID string) {
	m.activeChatID = chatID
}

// SetFocused toggles keyboard focus highlighting.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// Toggle opens or closes the pane.
func (m *Model) Toggle() {
	m.open = !m.open
}

// Open reports whether the pane is visible.
func (m *Model) Open() bool {
	return m.open
}

// SetSize updates the pane dimensions. A non-positive width leaves the
// configured width alone, so a closed pane keeps its size for reopening.
func (m *Model) SetSize(width, height int) {
	if width > 0 {
		m.width = width
	}
	m.height = height
}

// Width returns the rendered width, zero when closed.
func (m *Model) Width() int {
	if !m.open {
		return 0
	}
	return m.width
}

// MoveUp moves the cursor one chat up.
func (m *Model) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// MoveDown moves the cursor one chat down.
func (m *Model) MoveDown() {
	if m.cursor < len(m.chats)-1 {
		m.cursor++
	}
}

// Selected returns the chat under the cursor.
func (m *Model) Selected() (types.Chat, bool) {
	if m.cursor < 0 || m.cursor >= len(m.chats) {
		return types.Chat{}, false
	}
	return m.chats[m.cursor], true
}

// View renders the pane.
func (m *Model) View() string {
	if !m.open {
		return ""
	}

	title := m.titleStyle.Render(fmt.Sprintf("Chats (%d)", len(m.chats)))
	lines := []string{title, ""}

	if len(m.chats) == 0 {
		lines = append(lines, m.itemStyle.Render("No chats yet"))
	}
	for i, chat := range m.chats {
		label := chat.Title
		if label == "" {
			label = "Untitled chat"
		}
		if chat.IsDeepSearch {
			label += " " + m.badgeStyle.Render("◆")
		}

		prefix := "  "
		style := m.itemStyle
		if chat.ID == m.activeChatID {
			style = m.activeStyle
		}
		if m.focused && i == m.cursor {
			prefix = "> "
			style = m.cursorStyle
		}
		lines = append(lines, style.MaxWidth(m.width-4).Render(prefix+label))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return m.style.Width(m.width - 2).Height(m.height - 2).Render(content)
}
