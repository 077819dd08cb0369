// internal/client/manager_test.go
package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stepTimeout = 2 * time.Second

// step plays the role of Run for a single event so tests control
// exactly when each transition happens.
func step(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case ev := <-m.events:
		m.handle(ev)
	case <-m.intentReady:
		ev, ok := m.nextIntent()
		require.True(t, ok, "woken without a queued intent")
		m.handle(ev)
	case <-time.After(stepTimeout):
		t.Fatal("timed out waiting for manager event")
	}
}

func assertNoEvent(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case ev := <-m.events:
		t.Fatalf("unexpected event %T", ev)
	case <-m.intentReady:
		t.Fatal("unexpected intent")
	case <-time.After(20 * time.Millisecond):
	}
}

type harness struct {
	m      *Manager
	view   *recordingView
	dialer *fakeDialer
}

func newHarness() *harness {
	view := &recordingView{}
	dialer := newFakeDialer()
	return &harness{m: New(dialer, view, logger.Nop()), view: view, dialer: dialer}
}

// login drives the manager from Disconnected to Active and returns the conn.
func (h *harness) login(t *testing.T, username, room string) *fakeConn {
	t.Helper()
	h.m.SubmitLogin(username, room)
	step(t, h.m)
	conn := newFakeConn()
	h.dialer.results <- dialResult{conn: conn}
	step(t, h.m)
	require.Equal(t, session.Active, h.m.Session().Phase)
	return conn
}

func TestLoginSendsFrameAfterOpen(t *testing.T) {
	h := newHarness()

	h.m.SubmitLogin("bob", "dev")
	step(t, h.m)

	snap := h.m.Session()
	assert.Equal(t, session.Connecting, snap.Phase)
	assert.Equal(t, "dev", snap.Room, "room is stored as soon as the login is accepted")
	assert.Empty(t, h.view.Calls(), "nothing renders before the open event")

	conn := newFakeConn()
	h.dialer.results <- dialResult{conn: conn}
	step(t, h.m)

	require.Len(t, conn.sentFrames(), 1)
	assert.JSONEq(t, `{"type":"login","username":"bob","room":"dev"}`, conn.sentFrames()[0])
	assert.Equal(t, []string{"showChat"}, h.view.Calls())
	assert.Equal(t, session.Active, h.m.Session().Phase)
	assert.Equal(t, "bob", h.m.Session().Username)
}

func TestLoginTrimsAndValidates(t *testing.T) {
	h := newHarness()

	h.m.SubmitLogin("   ", "dev")
	step(t, h.m)
	h.m.SubmitLogin("bob", "")
	step(t, h.m)
	assert.Equal(t, session.Disconnected, h.m.Session().Phase)

	h.m.SubmitLogin("  bob ", " dev  ")
	step(t, h.m)
	assert.Equal(t, "dev", h.m.Session().Room)
	assert.Equal(t, "bob", h.m.Session().Username)
}

func TestLoginIgnoredUnlessDisconnected(t *testing.T) {
	h := newHarness()
	h.login(t, "bob", "dev")

	h.m.SubmitLogin("eve", "ops")
	step(t, h.m)

	snap := h.m.Session()
	assert.Equal(t, session.Active, snap.Phase)
	assert.Equal(t, "dev", snap.Room)
	assert.Equal(t, "bob", snap.Username)
	assert.Equal(t, 1, h.dialer.dialCount())
}

func TestSendMessage(t *testing.T) {
	h := newHarness()

	h.m.SubmitMessage("too early")
	step(t, h.m)

	conn := h.login(t, "bob", "dev")

	h.m.SubmitMessage("   \t ")
	step(t, h.m)
	h.m.SubmitMessage("  hello world \n")
	step(t, h.m)

	frames := conn.sentFrames()
	require.Len(t, frames, 2, "login plus one message")
	assert.JSONEq(t, `{"type":"message","content":"hello world"}`, frames[1])
}

func TestSendDroppedWhileConnecting(t *testing.T) {
	h := newHarness()
	h.m.SubmitLogin("bob", "dev")
	step(t, h.m)

	h.m.SubmitMessage("queued?")
	step(t, h.m)

	conn := newFakeConn()
	h.dialer.results <- dialResult{conn: conn}
	step(t, h.m)
	assert.Len(t, conn.sentFrames(), 1, "only the login frame is sent")
}

func TestHistoryRenderedBetweenMarkers(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	conn.deliver(`{"type":"history","messages":[{"username":"a","content":"1"},{"username":"b","content":"2"},{"username":"a","content":"3"}]}`)
	step(t, h.m)

	assert.Equal(t, []string{
		"showChat",
		"historyStart",
		"msg:a:1",
		"msg:b:2",
		"msg:a:3",
		"historyEnd",
	}, h.view.Calls())
}

func TestLiveFrames(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	conn.deliver(`{"type":"announcement","content":"'carol' has joined the room!"}`)
	conn.deliver(`{"type":"message","username":"carol","content":"hi bob"}`)
	step(t, h.m)
	step(t, h.m)

	assert.Equal(t, []string{
		"showChat",
		"announce:'carol' has joined the room!",
		"msg:carol:hi bob",
	}, h.view.Calls())
}

func TestStateUpdateSplitsCurrentRoom(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	conn.deliver(`{"type":"state_update","rooms":{"dev":["carol","bob"],"lobby":["alice","dan"],"ops":["eve"]}}`)
	step(t, h.m)
	conn.deliver(`{"type":"state_update","rooms":{"lobby":["alice"]}}`)
	step(t, h.m)

	calls := h.view.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "roster:[carol,bob]:[lobby=2,ops=1]", calls[1])
	assert.Equal(t, "roster:[]:[lobby=1]", calls[2], "missing room renders no members")
}

func TestErrorFrameKeepsSession(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	conn.deliver(`{"type":"error","message":"room full"}`)
	step(t, h.m)

	assert.Equal(t, 1, h.view.count("error:room full"))
	assert.Equal(t, session.Active, h.m.Session().Phase)
	assert.False(t, conn.isClosed())
}

func TestBadFramesIgnored(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	conn.deliver(`{"type":"typing","username":"carol"}`)
	conn.deliver(`not json at all`)
	conn.deliver(`{"content":"no type"}`)
	step(t, h.m)
	step(t, h.m)
	step(t, h.m)

	assert.Equal(t, []string{"showChat"}, h.view.Calls())
	assert.Equal(t, session.Active, h.m.Session().Phase)
	assert.False(t, conn.isClosed())
}

func TestServerCloseResetsSession(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")
	conn.deliver(`{"type":"message","username":"carol","content":"hi"}`)
	step(t, h.m)

	conn.Close()
	step(t, h.m)

	snap := h.m.Session()
	assert.Equal(t, session.Disconnected, snap.Phase)
	assert.Empty(t, snap.Room)
	assert.Empty(t, snap.Username)
	assert.Equal(t, []string{"showChat", "msg:carol:hi", "clear", "showLogin"}, h.view.Calls())

	// A fresh login is accepted afterwards.
	h.login(t, "bob", "ops")
	assert.Equal(t, "ops", h.m.Session().Room)
}

func TestDialFailureResetsSession(t *testing.T) {
	h := newHarness()
	h.m.SubmitLogin("bob", "dev")
	step(t, h.m)

	h.dialer.results <- dialResult{err: errors.New("connection refused")}
	step(t, h.m)

	snap := h.m.Session()
	assert.Equal(t, session.Disconnected, snap.Phase)
	assert.Empty(t, snap.Room)
	assert.Equal(t, []string{"clear", "showLogin"}, h.view.Calls())
}

func TestLogoutUsesClosePath(t *testing.T) {
	h := newHarness()
	conn := h.login(t, "bob", "dev")

	h.m.RequestLogout()
	step(t, h.m)
	assert.True(t, conn.isClosed())
	assert.Equal(t, session.Active, h.m.Session().Phase, "reset waits for the close event")

	h.m.SubmitMessage("after logout")
	step(t, h.m)

	step(t, h.m)
	assert.Equal(t, session.Disconnected, h.m.Session().Phase)
	assert.Equal(t, []string{"showChat", "clear", "showLogin"}, h.view.Calls())
	assert.Len(t, conn.sentFrames(), 1)
}

func TestLogoutWhileConnecting(t *testing.T) {
	h := newHarness()
	h.m.SubmitLogin("bob", "dev")
	step(t, h.m)

	h.m.RequestLogout()
	step(t, h.m)
	step(t, h.m) // close event from the cancelled dial

	assert.Equal(t, session.Disconnected, h.m.Session().Phase)
	assert.Equal(t, []string{"clear", "showLogin"}, h.view.Calls())
	assert.Equal(t, 0, h.view.count("showChat"))
}

func TestLogoutWhenDisconnected(t *testing.T) {
	h := newHarness()
	h.m.RequestLogout()
	step(t, h.m)
	assertNoEvent(t, h.m)
	assert.Empty(t, h.view.Calls())
}

func TestStaleEventsIgnored(t *testing.T) {
	h := newHarness()
	first := h.login(t, "bob", "dev")
	first.Close()
	step(t, h.m)

	second := h.login(t, "bob", "ops")
	before := h.view.Calls()

	h.m.handle(closed{gen: 1, err: errors.New("late")})
	h.m.handle(frameReceived{gen: 1, data: []byte(`{"type":"error","message":"old"}`)})

	late := newFakeConn()
	h.m.handle(opened{gen: 1, conn: late})

	assert.Equal(t, before, h.view.Calls())
	assert.Equal(t, session.Active, h.m.Session().Phase)
	assert.False(t, second.isClosed())
	assert.True(t, late.isClosed(), "stale connections are released")
}

func TestSplitRoster(t *testing.T) {
	members, others := splitRoster(nil, "dev")
	assert.Equal(t, []string{}, members)
	assert.Empty(t, others)

	members, others = splitRoster(map[string][]string{"dev": {"b", "a"}, "x": {}}, "dev")
	assert.Equal(t, []string{"b", "a"}, members)
	assert.Equal(t, map[string]int{"x": 0}, others)
}

func TestRunLifecycle(t *testing.T) {
	view := &recordingView{}
	dialer := newFakeDialer()
	m := New(dialer, view, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- m.Run(ctx) }()

	conn := newFakeConn()
	dialer.results <- dialResult{conn: conn}
	m.SubmitLogin("bob", "dev")

	require.Eventually(t, func() bool {
		return view.count("showChat") == 1
	}, stepTimeout, 5*time.Millisecond)

	conn.deliver(`{"type":"message","username":"carol","content":"hi"}`)
	require.Eventually(t, func() bool {
		return view.count("msg:carol:hi") == 1
	}, stepTimeout, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(stepTimeout):
		t.Fatal("Run did not return")
	}
	assert.True(t, conn.isClosed())
	assert.Equal(t, session.Disconnected, m.Session().Phase)

	// Intents after shutdown do not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < eventQueueSize+1; i++ {
			m.SubmitMessage("x")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stepTimeout):
		t.Fatal("SubmitMessage blocked after Run returned")
	}
}
