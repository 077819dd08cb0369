// internal/client/manager.go
// Provides the connection manager that drives a single chat session.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/session"
	"github.com/erilali/neonchat/internal/transport"
)

const eventQueueSize = 64

// Manager owns the session and its transport. Intents and transport
// events are queued and handled one at a time by Run.
//
// View calls may block until the renderer takes them, and the renderer
// submits intents from its own loop, so intents never wait on Run: they
// go to an unbounded queue and Run is woken through intentReady.
type Manager struct {
	dialer transport.Dialer
	view   View
	logger *logger.Logger

	events chan event
	done   chan struct{}

	intentMu    sync.Mutex
	intents     []event
	intentReady chan struct{}
	stopped     bool

	// Fields below are only touched by the event loop.
	state      session.State
	gen        uint64
	baseCtx    context.Context
	cancelDial context.CancelFunc
	closing    bool

	snapMu   sync.RWMutex
	snapshot session.Snapshot
}

// New creates a Manager in the Disconnected phase.
func New(dialer transport.Dialer, view View, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		dialer:  dialer,
		view:    view,
		logger:  log,
		events:      make(chan event, eventQueueSize),
		done:        make(chan struct{}),
		intentReady: make(chan struct{}, 1),
		baseCtx:     context.Background(),
	}
}

// Run processes events until ctx is done. On return any open transport
// is closed and the session is reset.
func (m *Manager) Run(ctx context.Context) error {
	m.baseCtx = ctx
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.stopIntents()
			m.shutdown()
			return ctx.Err()
		case ev := <-m.events:
			m.handle(ev)
		case <-m.intentReady:
			if ev, ok := m.nextIntent(); ok {
				m.handle(ev)
			}
		}
	}
}

// Session returns a copy of the current session state.
func (m *Manager) Session() session.Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snapshot
}

// SubmitLogin asks to connect as username in room. It is ignored unless
// the session is Disconnected and both values are non-empty.
func (m *Manager) SubmitLogin(username, room string) {
	m.submit(loginIntent{username: strings.TrimSpace(username), room: strings.TrimSpace(room)})
}

// SubmitMessage sends content to the current room. Blank content and
// messages sent while not Active are dropped.
func (m *Manager) SubmitMessage(content string) {
	m.submit(messageIntent{content: content})
}

// RequestLogout closes the transport if one exists. The session is reset
// by the resulting close event, exactly as for a server-side disconnect.
func (m *Manager) RequestLogout() {
	m.submit(logoutIntent{})
}

// submit queues an intent without blocking. Intents after Run has
// returned are dropped.
func (m *Manager) submit(ev event) {
	m.intentMu.Lock()
	if m.stopped {
		m.intentMu.Unlock()
		m.logger.Debugf("Dropping %T after shutdown", ev)
		return
	}
	m.intents = append(m.intents, ev)
	m.intentMu.Unlock()
	m.signalIntent()
}

func (m *Manager) signalIntent() {
	select {
	case m.intentReady <- struct{}{}:
	default:
	}
}

// nextIntent pops the oldest queued intent. Run handles one intent per
// wake-up so transport events interleave with a long intent backlog.
func (m *Manager) nextIntent() (event, bool) {
	m.intentMu.Lock()
	defer m.intentMu.Unlock()
	if len(m.intents) == 0 {
		return nil, false
	}
	ev := m.intents[0]
	m.intents[0] = nil
	m.intents = m.intents[1:]
	if len(m.intents) > 0 {
		m.signalIntent()
	}
	return ev, true
}

func (m *Manager) stopIntents() {
	m.intentMu.Lock()
	defer m.intentMu.Unlock()
	m.stopped = true
	m.intents = nil
}

// post enqueues a transport event. It reports false once the loop has
// stopped.
func (m *Manager) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// connect dials and then pumps inbound frames into the event queue until
// the transport fails or is closed.
func (m *Manager) connect(ctx context.Context, gen uint64) {
	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		m.post(closed{gen: gen, err: err})
		return
	}
	if !m.post(opened{gen: gen, conn: conn}) {
		conn.Close()
		return
	}
	for {
		data, err := conn.Receive()
		if err != nil {
			m.post(closed{gen: gen, err: err})
			return
		}
		if !m.post(frameReceived{gen: gen, data: data}) {
			return
		}
	}
}

func (m *Manager) shutdown() {
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if conn := m.state.Reset(); conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Debugf("Close on shutdown: %v", err)
		}
	}
	m.publish()
}

func (m *Manager) publish() {
	snap := m.state.Snapshot()
	m.snapMu.Lock()
	m.snapshot = snap
	m.snapMu.Unlock()
}

func isExpectedClose(err error) bool {
	return err == nil || errors.Is(err, transport.ErrClosed) || errors.Is(err, context.Canceled)
}
