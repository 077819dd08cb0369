// internal/transport/transport.go
// Abstractions over the message-oriented connection used by the chat client.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Send and Receive once the connection is closed.
var ErrClosed = errors.New("transport closed")

// Conn is one open, message-oriented connection. Each Send writes one
// text frame and each Receive returns one text frame, in delivery order.
// Send and Close may be called concurrently with a blocked Receive.
type Conn interface {
	Send(data []byte) error
	Receive() ([]byte, error)
	Close() error
}

// Dialer opens connections to a fixed server address. Dial blocks until
// the connection is open or ctx is done.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
