// internal/hub/hub.go
// Provides the Hub that tracks rooms and fans frames out to clients.
package hub

import (
	"sync"
	"time"

	"github.com/erilali/neonchat/internal/history"
	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/protocol"
)

// roomBroadcast is a frame destined for every member of one room.
type roomBroadcast struct {
	room string
	data []byte
}

// directFrame is a reply to a single registered client.
type directFrame struct {
	client *Client
	data   []byte
}

// Hub owns room membership. Register, Unregister and Broadcast are
// served by Run in a single goroutine.
type Hub struct {
	Clients    map[*Client]bool
	Rooms      map[string][]*Client // members in join order
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan roomBroadcast
	Direct     chan directFrame
	Mu         sync.Mutex

	quit     chan struct{}
	quitOnce sync.Once

	History      history.Store
	HistoryLines int
	StartTime    time.Time
	Logger       *logger.Logger
}

// NewHub creates a Hub. store may be nil, in which case no history is kept.
func NewHub(store history.Store, historyLines int, logger *logger.Logger) *Hub {
	return &Hub{
		Clients:      make(map[*Client]bool),
		Rooms:        make(map[string][]*Client),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		Broadcast:    make(chan roomBroadcast, 64),
		Direct:       make(chan directFrame, 64),
		quit:         make(chan struct{}),
		History:      store,
		HistoryLines: historyLines,
		StartTime:    time.Now(),
		Logger:       logger,
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.Register:
			h.join(client)

		case client := <-h.Unregister:
			h.leave(client)

		case b := <-h.Broadcast:
			h.fanOut(b.room, b.data, nil)

		case d := <-h.Direct:
			h.deliver(d.client, d.data)
		}
	}
}

// Stop ends Run. Pumps blocked on the hub's channels give up.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

func (h *Hub) join(client *Client) {
	h.Mu.Lock()
	h.Clients[client] = true
	h.Rooms[client.Room] = append(h.Rooms[client.Room], client)
	h.Mu.Unlock()

	h.Logger.WithFields(map[string]interface{}{
		"conn_id":  client.ID,
		"username": client.Username,
		"room":     client.Room,
	}).Info("User joined room")

	h.announce(client.Room, "'"+client.Username+"' has joined the room!", client)
	h.broadcastState()
}

func (h *Hub) leave(client *Client) {
	if !h.drop(client) {
		return
	}
	h.Logger.WithFields(map[string]interface{}{
		"conn_id":  client.ID,
		"username": client.Username,
		"room":     client.Room,
	}).Info("User left room")

	h.announce(client.Room, "'"+client.Username+"' has left the room.", nil)
	h.broadcastState()
}

// drop removes client from the hub and closes its send channel. It
// reports false if the client was already gone.
func (h *Hub) drop(client *Client) bool {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	if _, ok := h.Clients[client]; !ok {
		return false
	}
	delete(h.Clients, client)
	members := h.Rooms[client.Room]
	for i, c := range members {
		if c == client {
			members = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(h.Rooms, client.Room)
	} else {
		h.Rooms[client.Room] = members
	}
	close(client.Send)
	return true
}

// deliver queues data for client. A client whose buffer is full is
// considered dead and removed. Clients dropped earlier in the same fan-out
// are skipped.
func (h *Hub) deliver(client *Client, data []byte) {
	h.Mu.Lock()
	_, ok := h.Clients[client]
	h.Mu.Unlock()
	if !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		h.Logger.Warnf("Send buffer full for %s, dropping client", client.Username)
		h.leave(client)
	}
}

func (h *Hub) announce(room, content string, exclude *Client) {
	data, err := protocol.Encode(protocol.Announcement{Content: content})
	if err != nil {
		h.Logger.Errorf("Encode announcement: %v", err)
		return
	}
	h.fanOut(room, data, exclude)
}

func (h *Hub) fanOut(room string, data []byte, exclude *Client) {
	h.Mu.Lock()
	members := append([]*Client(nil), h.Rooms[room]...)
	h.Mu.Unlock()
	for _, client := range members {
		if client != exclude {
			h.deliver(client, data)
		}
	}
}

// Roster returns every room's members in join order.
func (h *Hub) Roster() protocol.Roster {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	roster := make(protocol.Roster, len(h.Rooms))
	for room, members := range h.Rooms {
		names := make([]string, len(members))
		for i, c := range members {
			names[i] = c.Username
		}
		roster[room] = names
	}
	return roster
}

func (h *Hub) broadcastState() {
	data, err := protocol.Encode(protocol.StateUpdate{Rooms: h.Roster()})
	if err != nil {
		h.Logger.Errorf("Encode state update: %v", err)
		return
	}
	h.Mu.Lock()
	clients := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		clients = append(clients, client)
	}
	h.Mu.Unlock()

	for _, client := range clients {
		h.deliver(client, data)
	}
	h.Logger.Debugf("Broadcasted state update to %d clients", len(clients))
}

// Stats is a point-in-time view for health reporting.
type Stats struct {
	Clients int
	Rooms   int
	Uptime  time.Duration
}

func (h *Hub) Stats() Stats {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return Stats{Clients: len(h.Clients), Rooms: len(h.Rooms), Uptime: time.Since(h.StartTime)}
}
