// internal/view/tui/adapter.go
// Bridges connection manager render calls onto the bubbletea program.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/erilali/neonchat/internal/client"
)

type (
	showLoginMsg    struct{}
	showChatMsg     struct{}
	clearChatMsg    struct{}
	historyStartMsg struct{}
	historyEndMsg   struct{}

	chatLineMsg struct {
		username string
		content  string
	}

	announcementMsg struct {
		content string
	}

	rosterMsg struct {
		members    []string
		otherRooms map[string]int
	}

	errorMsg struct {
		message string
	}
)

// Adapter implements client.View. Each render call becomes one tea.Msg;
// Program.Send preserves the order of calls.
type Adapter struct {
	send func(tea.Msg)
}

var _ client.View = (*Adapter)(nil)

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Attach routes render calls to p. It must be called before the
// connection manager starts.
func (a *Adapter) Attach(p *tea.Program) {
	a.send = p.Send
}

func (a *Adapter) emit(msg tea.Msg) {
	if a.send != nil {
		a.send(msg)
	}
}

func (a *Adapter) ShowLogin()         { a.emit(showLoginMsg{}) }
func (a *Adapter) ShowChat()          { a.emit(showChatMsg{}) }
func (a *Adapter) ClearChatView()     { a.emit(clearChatMsg{}) }
func (a *Adapter) BeginHistoryBlock() { a.emit(historyStartMsg{}) }
func (a *Adapter) EndHistoryBlock()   { a.emit(historyEndMsg{}) }

func (a *Adapter) AppendChatMessage(username, content string) {
	a.emit(chatLineMsg{username: username, content: content})
}

func (a *Adapter) AppendAnnouncement(content string) {
	a.emit(announcementMsg{content: content})
}

func (a *Adapter) RenderRoster(members []string, otherRooms map[string]int) {
	a.emit(rosterMsg{members: members, otherRooms: otherRooms})
}

func (a *Adapter) ShowError(message string) {
	a.emit(errorMsg{message: message})
}
