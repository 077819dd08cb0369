// internal/transport/ws/conn.go
// gorilla/websocket implementation of the client transport.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/transport"
	"github.com/gorilla/websocket"
)

const (
	readDeadline   = 60 * time.Second
	writeDeadline  = 10 * time.Second
	maxMessageSize = 64 * 1024
	dialTimeout    = 10 * time.Second
)

// Dialer connects to a single WebSocket URL.
type Dialer struct {
	URL    string
	Header http.Header
	Logger *logger.Logger

	dialer websocket.Dialer
}

func NewDialer(url string, log *logger.Logger) *Dialer {
	return &Dialer{
		URL:    url,
		Logger: log,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: dialTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Dial opens the WebSocket. It returns once the handshake completes.
func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	c, resp, err := d.dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", d.URL, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	log.Infof("Connected to %s", d.URL)
	return newConn(c, log), nil
}

// Conn wraps a gorilla connection. gorilla allows one concurrent reader
// and one concurrent writer, so writes are serialised with a mutex.
type Conn struct {
	conn   *websocket.Conn
	logger *logger.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(c *websocket.Conn, log *logger.Logger) *Conn {
	conn := &Conn{conn: c, logger: log, closed: make(chan struct{})}

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(readDeadline))
	// The server pings periodically; every ping extends the read deadline.
	c.SetPingHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(readDeadline))
		conn.writeMu.Lock()
		defer conn.writeMu.Unlock()
		err := c.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeDeadline))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	return conn
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Send writes data as one text frame.
func (c *Conn) Send(data []byte) error {
	if c.isClosed() {
		return transport.ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive blocks for the next text frame. Binary frames are skipped.
func (c *Conn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return nil, transport.ErrClosed
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, fmt.Errorf("%w: %v", transport.ErrClosed, err)
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		if messageType != websocket.TextMessage {
			c.logger.Debugf("Skipping non-text frame of type %d", messageType)
			continue
		}
		return data, nil
	}
}

// Close sends a normal close frame and releases the socket. A Receive
// blocked in another goroutine returns transport.ErrClosed.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline)); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			c.logger.Debugf("Close frame not sent: %v", werr)
		}
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
