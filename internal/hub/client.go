// internal/hub/client.go
package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client represents one connected socket. Username and Room are set by
// the read pump before the client is registered with the hub and never
// change afterwards.
type Client struct {
	ID         string
	Username   string
	Room       string
	Conn       *websocket.Conn
	Send       chan []byte
	LastActive time.Time

	joined bool // only touched by the read pump
}
