// Package app provides the main application model wiring the session and
// deep-search stores to the terminal UI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"deepchat/src/components/chatwindow"
	"deepchat/src/components/sidebar"
	"deepchat/src/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// =====================================================================================
// 🚀 Application Model
// =====================================================================================

type focusTarget int

const (
	focusInput focusTarget = iota
	focusSidebar
)

// refreshMsg asks the model to re-read the store snapshots.
type refreshMsg struct{}

// unauthorizedMsg arrives when the transport layer cleared the credentials
// after a 401; the app quits and points the user at the login URL.
type unauthorizedMsg struct{}

// Model is the root Bubble Tea model. It owns no chat state itself; every
// render reads a fresh snapshot from the stores, which are handed in
// explicitly rather than reached for as globals.
type Model struct {
	coord        *session.Coordinator
	logger       *slog.Logger
	loginURL     string
	unauthorized <-chan struct{}

	input   textinput.Model
	sidebar sidebar.Model
	window  chatwindow.Model
	focus   focusTarget
	width   int
	height  int

	loggedOut bool

	headerStyle lipgloss.Style
	footerStyle lipgloss.Style
	errorStyle  lipgloss.Style
	badgeStyle  lipgloss.Style
}

// New builds the application model around an already-wired coordinator.
func New(coord *session.Coordinator, loginURL string, unauthorized <-chan struct{}, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	return Model{
		coord:        coord,
		logger:       logger,
		loginURL:     loginURL,
		unauthorized: unauthorized,
		input:        input,
		sidebar:      sidebar.New(),
		window:       chatwindow.New(),
		headerStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1),
		footerStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1),
		badgeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true),
	}
}

// LoggedOut reports whether the app quit because credentials were rejected.
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

// LoginURL returns the configured login route.
func (m Model) LoginURL() string {
	return m.loginURL
}

// Init loads the chat list and starts the input cursor and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.window.Init(),
		m.storeCmd(m.coord.Session().LoadChats),
		waitForUnauthorized(m.unauthorized),
	)
}

// storeCmd runs one store operation off the event loop and triggers a
// snapshot refresh when it settles. Failures are already recorded in store
// state; a rejected send (generation in flight) is a plain no-op.
func (m Model) storeCmd(op func(context.Context) error) tea.Cmd {
	logger := m.logger
	return func() tea.Msg {
		if err := op(context.Background()); err != nil && !errors.Is(err, session.ErrGenerationInFlight) {
			logger.Debug("operation failed", "error", err)
		}
		return refreshMsg{}
	}
}

func waitForUnauthorized(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return unauthorizedMsg{}
	}
}

// Update handles events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case unauthorizedMsg:
		m.loggedOut = true
		return m, tea.Quit

	case refreshMsg:
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.window, cmd = m.window.Update(msg)
	return m, cmd
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		m.sidebar.SetFocused(m.focus == focusSidebar)
		return m, nil

	case "ctrl+b":
		m.sidebar.Toggle()
		m.layout()
		return m, nil

	case "ctrl+n":
		return m, m.storeCmd(func(ctx context.Context) error {
			_, err := m.coord.Session().CreateChat(ctx)
			return err
		})

	case "ctrl+s":
		m.coord.DeepSearch().Toggle()
		m.sync()
		return m, nil

	case "ctrl+r":
		m.coord.DeepSearch().Reset()
		m.sync()
		return m, nil

	case "esc":
		m.coord.Session().InterruptGeneration()
		m.sync()
		return m, nil

	case "up":
		if m.focus == focusSidebar {
			m.sidebar.MoveUp()
			return m, nil
		}

	case "down":
		if m.focus == focusSidebar {
			m.sidebar.MoveDown()
			return m, nil
		}

	case "ctrl+x":
		if chat, ok := m.sidebar.Selected(); ok && m.focus == focusSidebar {
			id := chat.ID
			return m, m.storeCmd(func(ctx context.Context) error {
				return m.coord.Session().DeleteChat(ctx, id)
			})
		}
		return m, nil

	case "enter":
		if m.focus == focusSidebar {
			if chat, ok := m.sidebar.Selected(); ok {
				id := chat.ID
				return m, m.storeCmd(func(ctx context.Context) error {
					return m.coord.Session().SelectChat(ctx, id)
				})
			}
			return m, nil
		}
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		m.input.Reset()
		send := m.storeCmd(func(ctx context.Context) error {
			return m.coord.Send(ctx, content)
		})
		// Refresh immediately so the optimistic insert is visible before
		// the request settles.
		return m, tea.Batch(send, func() tea.Msg { return refreshMsg{} })
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}
	m.window, cmd = m.window.Update(key)
	return m, cmd
}

// sync re-reads the store snapshots into the panes.
func (m *Model) sync() {
	snap := m.coord.Session().Snapshot()
	m.sidebar.SetChats(snap.Chats)
	m.sidebar.SetActive(snap.ActiveChatID)
	m.window.SetDeepSearch(m.coord.DeepSearch().Active())
	m.window.SetMessages(m.coord.ActiveMessages())
}

func (m *Model) layout() {
	headerHeight := 1
	footerHeight := 2
	inputHeight := 1
	bodyHeight := m.height - headerHeight - footerHeight - inputHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.sidebar.SetSize(m.sidebar.Width(), bodyHeight)
	m.window.SetSize(m.width-m.sidebar.Width(), bodyHeight)
}

// =====================================================================================
// 🎨 Rendering
// =====================================================================================

// View renders the full screen from the latest snapshots.
func (m Model) View() string {
	if m.loggedOut {
		return "Session expired. Log in again at " + m.loginURL + "\n"
	}
	if m.width < 40 || m.height < 10 {
		return "Terminal too small"
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), m.window.View())
	inputLine := m.input.View()
	footer := m.renderFooter()

	sections := []string{header, body}
	if banner := m.renderErrorBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, inputLine, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := "deepchat"
	if m.coord.DeepSearch().Active() {
		title += "  " + m.badgeStyle.Render("◆ deep search")
	}
	if m.coord.Busy() {
		title += "  " + m.footerStyle.Render("generating... (esc to stop)")
	}
	return m.headerStyle.Width(m.width).Render(title)
}

func (m Model) renderErrorBanner() string {
	if err := m.coord.Session().Snapshot().Error; err != "" {
		return m.errorStyle.Width(m.width).Render("⚠ " + err)
	}
	return ""
}

func (m Model) renderFooter() string {
	help := "Enter send | Tab focus | Ctrl+N new | Ctrl+S deep search | Ctrl+X delete | Esc stop | Ctrl+C quit"
	return m.footerStyle.Width(m.width).Render(help)
}

// =====================================================================================
// 🛠️ Program Factory
// =====================================================================================

// NewProgram creates the Bubble Tea program for the app model.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// Farewell returns the message printed after the program exits.
func Farewell(final tea.Model) string {
	m, ok := final.(Model)
	if !ok {
		return ""
	}
	if m.LoggedOut() {
		return fmt.Sprintf("Session expired. Log in again at %s", m.LoginURL())
	}
	return ""
}
