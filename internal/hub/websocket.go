// internal/hub/websocket.go
package hub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // Must be less than readDeadline
	maxFrameSize           = 8 * 1024
	sendBufferSize         = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The client is a local terminal app or a page opened from disk.
		return true
	},
}

// ServeWs upgrades the HTTP connection. The client joins a room only
// after sending a login frame.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:         uuid.NewString(),
		Conn:       conn,
		Send:       make(chan []byte, sendBufferSize),
		LastActive: time.Now(),
	}
	h.Logger.WithField("conn_id", client.ID).Debugf("Connection opened from %s", r.RemoteAddr)
	go h.WritePump(client)
	go h.ReadPump(client)
}

// ReadPump reads frames from the WebSocket connection.
func (h *Hub) ReadPump(client *Client) {
	defer func() {
		if client.joined {
			select {
			case h.Unregister <- client:
			case <-h.quit:
			}
		} else {
			// Never registered, so the hub will not close Send for us.
			close(client.Send)
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxFrameSize)
	client.Conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		return nil
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Errorf("WebSocket error for %s: %v", client.ID, err)
			}
			break
		}

		client.LastActive = time.Now()
		client.Conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		h.HandleClientFrame(client, data)
	}
}

// WritePump writes queued frames to the WebSocket connection, one frame
// per WebSocket message.
func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The hub closed the channel.
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Client connection is likely broken
			}
		}
	}
}
