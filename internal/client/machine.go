// internal/client/machine.go
package client

import (
	"context"
	"errors"
	"strings"

	"github.com/erilali/neonchat/internal/protocol"
	"github.com/erilali/neonchat/internal/session"
)

// handle applies one event to the session. It is the only code that
// mutates m.state.
func (m *Manager) handle(ev event) {
	switch ev := ev.(type) {
	case loginIntent:
		m.onLogin(ev)
	case messageIntent:
		m.onMessage(ev)
	case logoutIntent:
		m.onLogout()
	case opened:
		m.onOpened(ev)
	case frameReceived:
		m.onFrame(ev)
	case closed:
		m.onClosed(ev)
	}
	m.publish()
}

func (m *Manager) onLogin(ev loginIntent) {
	if ev.username == "" || ev.room == "" {
		m.logger.Debug("Ignoring login with empty username or room")
		return
	}
	if m.state.Phase() != session.Disconnected {
		m.logger.Debugf("Ignoring login while %s", m.state.Phase())
		return
	}
	if err := m.state.BeginConnecting(ev.username, ev.room); err != nil {
		m.logger.Warnf("Login rejected: %v", err)
		return
	}

	m.gen++
	m.closing = false
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancelDial = cancel
	m.logger.WithFields(map[string]interface{}{
		"username": ev.username,
		"room":     ev.room,
	}).Info("Connecting")
	go m.connect(ctx, m.gen)
}

func (m *Manager) onOpened(ev opened) {
	if ev.gen != m.gen || m.state.Phase() != session.Connecting {
		ev.conn.Close()
		return
	}
	if m.closing {
		// Logout arrived while dialing; the close event finishes the reset.
		ev.conn.Close()
		return
	}
	if err := m.state.Activate(ev.conn); err != nil {
		m.logger.Errorf("Activate session: %v", err)
		ev.conn.Close()
		return
	}

	snap := m.state.Snapshot()
	m.logger.Info("Connected to chat server")
	m.sendFrame(protocol.Login{Username: snap.Username, Room: snap.Room})
	m.view.ShowChat()
}

func (m *Manager) onMessage(ev messageIntent) {
	content := strings.TrimSpace(ev.content)
	if content == "" {
		return
	}
	if m.state.Phase() != session.Active || m.closing {
		m.logger.Debugf("Dropping message while %s", m.state.Phase())
		return
	}
	m.sendFrame(protocol.OutgoingMessage{Content: content})
}

func (m *Manager) onLogout() {
	switch m.state.Phase() {
	case session.Connecting:
		m.closing = true
		if m.cancelDial != nil {
			m.cancelDial()
		}
	case session.Active:
		m.closing = true
		if err := m.state.Conn().Close(); err != nil {
			m.logger.Debugf("Close on logout: %v", err)
		}
	default:
		m.logger.Debug("Logout with no connection")
	}
}

func (m *Manager) onClosed(ev closed) {
	if ev.gen != m.gen || m.state.Phase() == session.Disconnected {
		return
	}
	if isExpectedClose(ev.err) {
		m.logger.Info("Disconnected from chat server")
	} else {
		m.logger.Errorf("Connection lost: %v", ev.err)
	}

	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if conn := m.state.Reset(); conn != nil {
		conn.Close()
	}
	m.closing = false
	m.view.ClearChatView()
	m.view.ShowLogin()
}

func (m *Manager) onFrame(ev frameReceived) {
	if ev.gen != m.gen || m.state.Phase() != session.Active {
		return
	}
	frame, err := protocol.DecodeServerFrame(ev.data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownKind) {
			m.logger.Warnf("Ignoring frame: %v", err)
		} else {
			m.logger.Warnf("Discarding frame: %v", err)
		}
		return
	}

	switch f := frame.(type) {
	case protocol.StateUpdate:
		members, others := splitRoster(f.Rooms, m.state.Room())
		m.view.RenderRoster(members, others)
	case protocol.History:
		m.view.BeginHistoryBlock()
		for _, msg := range f.Messages {
			m.view.AppendChatMessage(msg.Username, msg.Content)
		}
		m.view.EndHistoryBlock()
	case protocol.IncomingMessage:
		m.view.AppendChatMessage(f.Username, f.Content)
	case protocol.Announcement:
		m.view.AppendAnnouncement(f.Content)
	case protocol.Error:
		m.logger.Warnf("Server error: %s", f.Message)
		m.view.ShowError(f.Message)
	}
}

func (m *Manager) sendFrame(f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		m.logger.Errorf("Encode %s frame: %v", f.Kind(), err)
		return
	}
	conn := m.state.Conn()
	if conn == nil {
		return
	}
	if err := conn.Send(data); err != nil {
		m.logger.Warnf("Dropped %s frame: %v", f.Kind(), err)
	}
}

// splitRoster separates the current room's members from the counts of
// every other room.
func splitRoster(rooms protocol.Roster, current string) ([]string, map[string]int) {
	members := []string{}
	others := make(map[string]int, len(rooms))
	for name, users := range rooms {
		if name == current {
			members = append(members, users...)
			continue
		}
		others[name] = len(users)
	}
	return members, others
}
