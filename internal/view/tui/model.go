// internal/view/tui/model.go
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/erilali/neonchat/internal/session"
)

const (
	historyStartMarker = "--- Message History ---"
	historyEndMarker   = "--- You are now live ---"

	sidePanelWidth = 28
	// Below this width only one of the chat and info panes is shown.
	splitMinWidth = 80
)

// Intents is what the view asks of the connection manager.
type Intents interface {
	SubmitLogin(username, room string)
	SubmitMessage(content string)
	RequestLogout()
	Session() session.Snapshot
}

type screen int

const (
	screenLogin screen = iota
	screenChat
)

type pane int

const (
	paneChat pane = iota
	paneInfo
)

type lineKind int

const (
	lineChat lineKind = iota
	lineAnnouncement
	lineMarker
)

type line struct {
	kind     lineKind
	username string
	content  string
}

// Model is the bubbletea model for the login and chat screens.
type Model struct {
	intents Intents

	screen screen
	pane   pane

	usernameInput textinput.Model
	roomInput     textinput.Model
	loginFocus    int
	connecting    bool

	messageInput textinput.Model
	chatViewport viewport.Model
	lines        []line

	members    []string
	otherRooms map[string]int

	errText string

	width  int
	height int
}

func New(intents Intents) Model {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "Username"
	usernameInput.CharLimit = 32
	usernameInput.Width = 30
	usernameInput.Focus()

	roomInput := textinput.New()
	roomInput.Placeholder = "Room"
	roomInput.CharLimit = 32
	roomInput.Width = 30

	messageInput := textinput.New()
	messageInput.Placeholder = "Type a message..."
	messageInput.CharLimit = 1000
	messageInput.Width = 50

	return Model{
		intents:       intents,
		usernameInput: usernameInput,
		roomInput:     roomInput,
		messageInput:  messageInput,
		chatViewport:  viewport.New(80, 20),
		width:         100,
		height:        30,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.errText = ""
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateChat(msg)

	case showLoginMsg:
		m.screen = screenLogin
		m.connecting = false
		m.messageInput.Blur()
		m.loginFocus = 0
		m.roomInput.Blur()
		return m, m.usernameInput.Focus()

	case showChatMsg:
		m.screen = screenChat
		m.pane = paneChat
		m.connecting = false
		m.usernameInput.Blur()
		m.roomInput.Blur()
		return m, m.messageInput.Focus()

	case clearChatMsg:
		m.lines = nil
		m.members = nil
		m.otherRooms = nil
		m.messageInput.SetValue("")
		m.refreshViewport()

	case historyStartMsg:
		m.lines = []line{{kind: lineMarker, content: historyStartMarker}}
		m.refreshViewport()

	case historyEndMsg:
		m.appendLine(line{kind: lineMarker, content: historyEndMarker})

	case chatLineMsg:
		m.appendLine(line{kind: lineChat, username: msg.username, content: msg.content})

	case announcementMsg:
		m.appendLine(line{kind: lineAnnouncement, content: msg.content})

	case rosterMsg:
		m.members = msg.members
		m.otherRooms = msg.otherRooms

	case errorMsg:
		m.errText = "Error: " + msg.message
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.roomInput.Blur()
			return m, m.usernameInput.Focus()
		}
		m.usernameInput.Blur()
		return m, m.roomInput.Focus()
	case "enter":
		username := strings.TrimSpace(m.usernameInput.Value())
		room := strings.TrimSpace(m.roomInput.Value())
		if username != "" && room != "" && !m.connecting {
			m.connecting = true
			m.intents.SubmitLogin(username, room)
		}
		return m, nil
	case "esc":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.roomInput, cmd = m.roomInput.Update(msg)
	}
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if m.pane == paneChat {
			m.pane = paneInfo
		} else {
			m.pane = paneChat
		}
		return m, nil
	case "ctrl+x":
		m.intents.RequestLogout()
		return m, nil
	case "enter":
		content := m.messageInput.Value()
		if strings.TrimSpace(content) != "" {
			m.intents.SubmitMessage(content)
			m.messageInput.SetValue("")
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	return m, cmd
}

func (m *Model) appendLine(l line) {
	m.lines = append(m.lines, l)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.chatViewport.SetContent(m.renderLines())
	m.chatViewport.GotoBottom()
}

func (m *Model) split() bool {
	return m.width >= splitMinWidth
}

func (m *Model) resize() {
	chatWidth := m.width - 2
	if m.split() {
		chatWidth -= sidePanelWidth + 2
	}
	if chatWidth < 10 {
		chatWidth = 10
	}
	// header, input line, error line and borders
	chatHeight := m.height - 6
	if chatHeight < 3 {
		chatHeight = 3
	}
	m.chatViewport.Width = chatWidth
	m.chatViewport.Height = chatHeight
	m.messageInput.Width = chatWidth - 4
	m.refreshViewport()
}

func (m Model) renderLines() string {
	rendered := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		switch l.kind {
		case lineChat:
			rendered = append(rendered, usernameStyle.Render(l.username+":")+" "+l.content)
		case lineAnnouncement:
			rendered = append(rendered, announcementStyle.Render(l.content))
		case lineMarker:
			rendered = append(rendered, mutedStyle.Render(l.content))
		}
	}
	return strings.Join(rendered, "\n")
}

func (m Model) View() string {
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.chatView()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("NEON CHAT"))
	b.WriteString("\n\n")
	b.WriteString(m.usernameInput.View())
	b.WriteString("\n")
	b.WriteString(m.roomInput.View())
	b.WriteString("\n\n")
	if m.connecting {
		b.WriteString(mutedStyle.Render("Connecting..."))
	} else {
		b.WriteString(mutedStyle.Render("tab: switch field  enter: join  esc: quit"))
	}
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errText))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(b.String()))
}

func (m Model) chatView() string {
	header := m.tabs()
	if m.errText != "" {
		header += "  " + errorStyle.Render(m.errText)
	}

	chat := chatWindowStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.chatViewport.View(),
		m.messageInput.View(),
	))
	info := m.sidePanel()

	var body string
	switch {
	case m.split():
		body = lipgloss.JoinHorizontal(lipgloss.Top, chat, info)
	case m.pane == paneInfo:
		body = info
	default:
		body = chat
	}

	footer := mutedStyle.Render("tab: switch pane  enter: send  ctrl+x: logout  ctrl+c: quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) tabs() string {
	chatTab, infoTab := mutedStyle.Render("Chat"), mutedStyle.Render("Info")
	if m.pane == paneChat {
		chatTab = activeTabStyle.Render("Chat")
	} else {
		infoTab = activeTabStyle.Render("Info")
	}
	return titleStyle.Render("NEON CHAT") + " " + chatTab + " | " + infoTab
}

func (m Model) sidePanel() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Room: " + m.intents.Session().Room))
	b.WriteString("\n")
	for _, member := range m.members {
		b.WriteString("  " + member + "\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Other rooms"))
	b.WriteString("\n")
	for _, r := range otherRoomLines(m.otherRooms) {
		b.WriteString(mutedStyle.Render("  "+r) + "\n")
	}
	return sidePanelStyle.Width(sidePanelWidth).Render(strings.TrimRight(b.String(), "\n"))
}

// otherRoomLines renders room counts sorted by room name.
func otherRoomLines(rooms map[string]int) []string {
	names := make([]string, 0, len(rooms))
	for name := range rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = fmt.Sprintf("%s (%d online)", name, rooms[name])
	}
	return out
}
