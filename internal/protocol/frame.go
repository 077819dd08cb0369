// internal/protocol/frame.go
// Defines the JSON frames exchanged between the chat client and server.
package protocol

// Kind is the value of the "type" discriminant carried by every frame.
type Kind string

const (
	KindLogin        Kind = "login"
	KindMessage      Kind = "message"
	KindHistory      Kind = "history"
	KindAnnouncement Kind = "announcement"
	KindStateUpdate  Kind = "state_update"
	KindError        Kind = "error"
)

// Frame is the closed set of protocol messages. Only types in this
// package implement it.
type Frame interface {
	Kind() Kind
	isFrame()
}

// ChatMessage is a single attributed chat line.
type ChatMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Roster maps a room name to its members in server order.
type Roster map[string][]string

// Login is the first frame a client sends after the transport opens.
type Login struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// OutgoingMessage is chat content sent by a logged in client.
type OutgoingMessage struct {
	Content string `json:"content"`
}

// History replays prior room messages, oldest first.
type History struct {
	Messages []ChatMessage `json:"messages"`
}

// IncomingMessage is a live chat message relayed by the server.
type IncomingMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Announcement is a system notice such as a join or leave.
type Announcement struct {
	Content string `json:"content"`
}

// StateUpdate is a full snapshot of room membership.
type StateUpdate struct {
	Rooms Roster `json:"rooms"`
}

// Error is a non-fatal error reported by the server.
type Error struct {
	Message string `json:"message"`
}

func (Login) Kind() Kind           { return KindLogin }
func (OutgoingMessage) Kind() Kind { return KindMessage }
func (History) Kind() Kind         { return KindHistory }
func (IncomingMessage) Kind() Kind { return KindMessage }
func (Announcement) Kind() Kind    { return KindAnnouncement }
func (StateUpdate) Kind() Kind     { return KindStateUpdate }
func (Error) Kind() Kind           { return KindError }

func (Login) isFrame()           {}
func (OutgoingMessage) isFrame() {}
func (History) isFrame()         {}
func (IncomingMessage) isFrame() {}
func (Announcement) isFrame()    {}
func (StateUpdate) isFrame()     {}
func (Error) isFrame()           {}
