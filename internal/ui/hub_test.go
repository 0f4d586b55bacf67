package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/console"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	c *console.Console
}

func (s staticSource) Current() *console.Console { return s.c }

func newSession(t *testing.T, hub *Hub) *console.Console {
	t.Helper()
	c := console.Start(context.Background(), console.Deps{
		Bridge:    bridge.NewFacade(nil, nil, time.Second, logger.Nop()),
		Navigator: hub,
		Logger:    logger.Nop(),
		OnChange:  hub.Notify,
	}, console.Options{})
	t.Cleanup(c.Close)
	return c
}

func startHub(t *testing.T) (*Hub, *console.Console, *httptest.Server) {
	t.Helper()
	hub := NewHub(logger.Nop())
	session := newSession(t, hub)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx, staticSource{c: session})

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, session, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readType reads until a message of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestConnectedCarriesSnapshot(t *testing.T) {
	hub, session, srv := startHub(t)
	conn := dial(t, srv)

	msg := readType(t, conn, MessageTypeConnected)
	assert.Equal(t, session.ID(), msg.SessionID)
	require.NotNil(t, msg.State)
	assert.Equal(t, console.ModeWeb, msg.State.Mode)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestStateBroadcastOnChange(t *testing.T) {
	_, session, srv := startHub(t)
	conn := dial(t, srv)
	readType(t, conn, MessageTypeConnected)

	require.NoError(t, session.Simulate(context.Background()))

	msg := readType(t, conn, MessageTypeState)
	for msg.State.Toast == nil {
		msg = readType(t, conn, MessageTypeState)
	}
	assert.Equal(t, "Test Notification", msg.State.Toast.Title)
}

func TestConfirmAnsweredOverSocket(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, srv)
	readType(t, conn, MessageTypeConnected)

	result := make(chan bool, 1)
	go func() {
		ok, err := hub.Confirm(context.Background(), "Navigate to: /x?")
		assert.NoError(t, err)
		result <- ok
	}()

	prompt := readType(t, conn, MessageTypeConfirm)
	assert.Equal(t, "Navigate to: /x?", prompt.Prompt)

	accepted := true
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeConfirmResponse, ID: prompt.ID, Accepted: &accepted}))

	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("confirmation not resolved")
	}
	readType(t, conn, MessageTypeConfirmClosed)
}

func TestConfirmResolvedDirectly(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, srv)
	readType(t, conn, MessageTypeConnected)

	result := make(chan bool, 1)
	go func() {
		ok, _ := hub.Confirm(context.Background(), "Navigate to: /y?")
		result <- ok
	}()

	prompt := readType(t, conn, MessageTypeConfirm)
	require.NoError(t, hub.Resolve(prompt.ID, false))
	assert.ErrorIs(t, hub.Resolve(prompt.ID, true), ErrUnknownConfirmation)

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("confirmation not resolved")
	}
}

func TestConfirmWithoutViewer(t *testing.T) {
	hub := NewHub(logger.Nop())

	ok, err := hub.Confirm(context.Background(), "Navigate to: /z?")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoViewer)
	assert.ErrorIs(t, hub.Navigate(context.Background(), "/z"), ErrNoViewer)
}

func TestConfirmCancelled(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, srv)
	readType(t, conn, MessageTypeConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ok, err := hub.Confirm(ctx, "Navigate to: /slow?")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNavigate(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, srv)
	readType(t, conn, MessageTypeConnected)

	require.NoError(t, hub.Navigate(context.Background(), "/orders/7"))

	msg := readType(t, conn, MessageTypeNavigate)
	assert.Equal(t, "/orders/7", msg.URL)
}

func TestNotifyNeverBlocks(t *testing.T) {
	hub := NewHub(logger.Nop())
	for i := 0; i < 100; i++ {
		hub.Notify()
	}
	assert.Len(t, hub.changes, 1)
}
