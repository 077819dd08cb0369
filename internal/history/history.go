// internal/history/history.go
// Per-room message history used to replay recent chat to joining users.
package history

import (
	"context"

	"github.com/erilali/neonchat/internal/protocol"
)

// DefaultLines is how many messages are replayed on join.
const DefaultLines = 5

// Store appends chat messages per room and returns the most recent ones.
type Store interface {
	Append(ctx context.Context, room string, msg protocol.ChatMessage) error
	// Recent returns up to limit messages of room, oldest first.
	Recent(ctx context.Context, room string, limit int) ([]protocol.ChatMessage, error)
	Close() error
}

// tail keeps the last n items pushed into it.
type tail struct {
	n     int
	items []protocol.ChatMessage
}

func newTail(n int) *tail {
	if n < 0 {
		n = 0
	}
	return &tail{n: n, items: make([]protocol.ChatMessage, 0, n)}
}

func (t *tail) push(msg protocol.ChatMessage) {
	if t.n <= 0 {
		return
	}
	if len(t.items) == t.n {
		copy(t.items, t.items[1:])
		t.items = t.items[:t.n-1]
	}
	t.items = append(t.items, msg)
}
