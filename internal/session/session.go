// internal/session/session.go
// Client-local record of the connection phase and the joined room.
package session

import (
	"fmt"

	"github.com/erilali/neonchat/internal/transport"
)

// Phase is the connection lifecycle phase of a client session.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Active
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is owned by exactly one connection manager. Nothing else gets a
// pointer to it; readers receive a Snapshot.
type State struct {
	phase    Phase
	room     string
	username string
	conn     transport.Conn
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	Phase    Phase
	Room     string // empty unless a login is in progress or active
	Username string
}

func (s *State) Phase() Phase { return s.phase }

// Room returns the room of the pending or active login.
func (s *State) Room() string { return s.room }

// Conn returns the open transport, or nil before the open event.
func (s *State) Conn() transport.Conn { return s.conn }

func (s *State) Snapshot() Snapshot {
	return Snapshot{Phase: s.phase, Room: s.room, Username: s.username}
}

// BeginConnecting records an accepted login intent. The room is kept
// while connecting so the view can label it as soon as the chat opens.
func (s *State) BeginConnecting(username, room string) error {
	if s.phase != Disconnected {
		return fmt.Errorf("begin connecting: session is %s", s.phase)
	}
	s.phase = Connecting
	s.username = username
	s.room = room
	return nil
}

// Activate stores the opened transport.
func (s *State) Activate(conn transport.Conn) error {
	if s.phase != Connecting {
		return fmt.Errorf("activate: session is %s", s.phase)
	}
	if conn == nil {
		return fmt.Errorf("activate: nil transport")
	}
	s.phase = Active
	s.conn = conn
	return nil
}

// Reset returns the session to Disconnected and hands back the transport
// it held, if any, so the caller can release it.
func (s *State) Reset() transport.Conn {
	conn := s.conn
	*s = State{}
	return conn
}
