// internal/hub/messaging.go
package hub

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/erilali/neonchat/internal/protocol"
)

const (
	maxNameLength    = 32
	maxContentLength = 2000
	historyTimeout   = 5 * time.Second
)

// validateName checks a username or room name: 1-32 characters with no
// control characters.
func validateName(name string) bool {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// validateMessageContent trims whitespace and checks length constraints
// (1-2000 characters).
func validateMessageContent(content string) (string, bool) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	return content, n >= 1 && n <= maxContentLength
}

// HandleClientFrame processes one frame read from client. It runs on the
// client's read pump goroutine.
func (h *Hub) HandleClientFrame(client *Client, data []byte) {
	frame, err := protocol.DecodeClientFrame(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownKind) {
			h.Logger.Debugf("Ignoring frame from %s: %v", client.ID, err)
			return
		}
		h.Logger.Warnf("Bad frame from %s: %v", client.ID, err)
		h.SendErrorMessage(client, "invalid frame")
		return
	}

	switch f := frame.(type) {
	case protocol.Login:
		h.handleLogin(client, f)
	case protocol.OutgoingMessage:
		h.handleMessage(client, f)
	}
}

func (h *Hub) handleLogin(client *Client, login protocol.Login) {
	if client.joined {
		h.SendErrorMessage(client, "already logged in")
		return
	}
	if login.Username == "" || login.Room == "" {
		h.Logger.Debugf("Ignoring incomplete login from %s", client.ID)
		return
	}
	if !validateName(login.Username) || !validateName(login.Room) {
		h.SendErrorMessage(client, "username and room must be 1-32 printable characters")
		return
	}

	client.Username = login.Username
	client.Room = login.Room

	if h.History != nil && h.HistoryLines > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		messages, err := h.History.Recent(ctx, client.Room, h.HistoryLines)
		cancel()
		if err != nil {
			h.Logger.Errorf("Load history for room %s: %v", client.Room, err)
		} else if len(messages) > 0 {
			if data, err := protocol.Encode(protocol.History{Messages: messages}); err == nil {
				h.sendTo(client, data)
			}
		}
	}

	client.joined = true
	select {
	case h.Register <- client:
	case <-h.quit:
	}
}

func (h *Hub) handleMessage(client *Client, msg protocol.OutgoingMessage) {
	if !client.joined {
		h.Logger.Debugf("Ignoring message from %s before login", client.ID)
		return
	}
	content, ok := validateMessageContent(msg.Content)
	if !ok {
		h.SendErrorMessage(client, "Invalid message content: must be 1-2000 characters")
		return
	}

	chat := protocol.ChatMessage{Username: client.Username, Content: content}
	if h.History != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		if err := h.History.Append(ctx, client.Room, chat); err != nil {
			h.Logger.Errorf("Append history for room %s: %v", client.Room, err)
		}
		cancel()
	}

	data, err := protocol.Encode(protocol.IncomingMessage{Username: chat.Username, Content: chat.Content})
	if err != nil {
		h.Logger.Errorf("Encode message: %v", err)
		return
	}
	select {
	case h.Broadcast <- roomBroadcast{room: client.Room, data: data}:
	case <-h.quit:
	}
	h.Logger.Debugf("Message from %s in room %s", client.Username, client.Room)
}

// SendErrorMessage sends an error frame to client. The connection stays open.
func (h *Hub) SendErrorMessage(client *Client, message string) {
	data, err := protocol.Encode(protocol.Error{Message: message})
	if err != nil {
		return
	}
	h.sendTo(client, data)
}

// sendTo replies to the client whose read pump is running. Before the
// client is registered the pump owns Send; afterwards only the hub may
// write to it.
func (h *Hub) sendTo(client *Client, data []byte) {
	if !client.joined {
		select {
		case client.Send <- data:
		default:
			h.Logger.Warnf("Send buffer full for %s, dropping reply", client.ID)
		}
		return
	}
	select {
	case h.Direct <- directFrame{client: client, data: data}:
	case <-h.quit:
	}
}
