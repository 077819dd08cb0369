// internal/client/fakes_test.go
package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/erilali/neonchat/internal/transport"
)

// fakeConn is an in-memory transport. Frames pushed with deliver are
// returned by Receive in order.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, b := range c.sent {
		out[i] = string(b)
	}
	return out
}

func (c *fakeConn) deliver(frame string) {
	c.inbound <- []byte(frame)
}

// fakeDialer hands out conns (or errors) queued on its channel. Dial
// blocks until one is available or ctx is cancelled.
type fakeDialer struct {
	results chan dialResult
	mu      sync.Mutex
	dials   int
}

type dialResult struct {
	conn transport.Conn
	err  error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult, 4)}
}

func (d *fakeDialer) Dial(ctx context.Context) (transport.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	select {
	case r := <-d.results:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recordingView logs every render call as a short string.
type recordingView struct {
	mu    sync.Mutex
	calls []string
}

func (v *recordingView) record(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, fmt.Sprintf(format, args...))
}

func (v *recordingView) ShowLogin()                  { v.record("showLogin") }
func (v *recordingView) ShowChat()                   { v.record("showChat") }
func (v *recordingView) ClearChatView()              { v.record("clear") }
func (v *recordingView) BeginHistoryBlock()          { v.record("historyStart") }
func (v *recordingView) EndHistoryBlock()            { v.record("historyEnd") }
func (v *recordingView) ShowError(message string)    { v.record("error:%s", message) }
func (v *recordingView) AppendAnnouncement(c string) { v.record("announce:%s", c) }
func (v *recordingView) AppendChatMessage(username, content string) {
	v.record("msg:%s:%s", username, content)
}

func (v *recordingView) RenderRoster(members []string, otherRooms map[string]int) {
	names := make([]string, 0, len(otherRooms))
	for name := range otherRooms {
		names = append(names, name)
	}
	sort.Strings(names)
	others := make([]string, len(names))
	for i, name := range names {
		others[i] = fmt.Sprintf("%s=%d", name, otherRooms[name])
	}
	v.record("roster:[%s]:[%s]", strings.Join(members, ","), strings.Join(others, ","))
}

func (v *recordingView) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

func (v *recordingView) count(call string) int {
	n := 0
	for _, c := range v.Calls() {
		if c == call {
			n++
		}
	}
	return n
}
