package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samaelod/aileron/input"
	"github.com/samaelod/aileron/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// backend is a fake simulator: it records every frame it receives and hands
// out the server side of each connection.
type backend struct {
	srv   *httptest.Server
	conns chan *websocket.Conn

	mu       sync.Mutex
	received []map[string]any
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{conns: make(chan *websocket.Conn, 4)}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			b.mu.Lock()
			b.received = append(b.received, msg)
			b.mu.Unlock()
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) url(path string) string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + path
}

func (b *backend) messages() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.received...)
}

func (b *backend) count(kind types.MessageKind) int {
	n := 0
	for _, m := range b.messages() {
		if m["type"] == string(kind) {
			n++
		}
	}
	return n
}

func (b *backend) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-b.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection reached the backend")
		return nil
	}
}

func startControl(t *testing.T, b *backend, period time.Duration, sink StateSink) *Control {
	t.Helper()
	c := NewControl(ControlConfig{
		URL:         b.url("/ws"),
		StatePeriod: period,
		Logger:      quietLogger(),
		Sink:        sink,
	})
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Start(context.Background(), types.DefaultSessionConfig()))
	return c
}

func TestControlSendsInitFirst(t *testing.T) {
	b := newBackend(t)
	c := NewControl(ControlConfig{URL: b.url("/ws"), StatePeriod: time.Hour, Logger: quietLogger()})
	defer c.Close()

	assert.Equal(t, Configuring, c.State())

	cfg := types.SessionConfig{Altitude: 1000, Speed: 60, Heading: 90, Throttle: 40, Engine: true}
	require.NoError(t, c.Start(context.Background(), cfg))
	assert.Equal(t, Active, c.State())
	assert.Equal(t, types.Neutral(40), c.Command())

	c.Arm()
	c.SetCommand(types.ControlCommand{Roll: 60, Pitch: 50, Yaw: 50, Throttle: 40})

	require.Eventually(t, func() bool { return len(b.messages()) == 3 }, 2*time.Second, 5*time.Millisecond)
	msgs := b.messages()
	assert.Equal(t, "init", msgs[0]["type"])
	assert.Equal(t, map[string]any{
		"altitude": 1000.0, "speed": 60.0, "roll": 0.0, "pitch": 0.0,
		"heading": 90.0, "throttle": 40.0, "engine": true,
	}, msgs[0]["config"])
	assert.Equal(t, "arm", msgs[1]["type"])
	assert.Equal(t, "control", msgs[2]["type"])
	assert.Equal(t, 60.0, msgs[2]["roll"])

	assert.Error(t, c.Start(context.Background(), cfg))
}

func TestControlArmIsRequestOnly(t *testing.T) {
	b := newBackend(t)
	var mu sync.Mutex
	var seen []types.VehicleState
	c := startControl(t, b, time.Hour, func(st types.VehicleState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	})
	server := b.conn(t)

	c.Arm()
	require.Eventually(t, func() bool { return b.count(types.KindArm) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]any{"type": "arm"}, b.messages()[1])

	// Nothing is known about arming until the simulator says so.
	select {
	case st := <-c.States():
		t.Fatalf("unexpected state %+v", st)
	default:
	}

	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"armed":true,"airspeed":61.5}`)))
	select {
	case st := <-c.States():
		assert.True(t, st.Armed)
		assert.Equal(t, 61.5, st.Airspeed)
	case <-time.After(2 * time.Second):
		t.Fatal("vehicle state never published")
	}

	mu.Lock()
	assert.Len(t, seen, 1)
	mu.Unlock()
	assert.Equal(t, 1, b.count(types.KindArm))
}

func TestControlStateCadence(t *testing.T) {
	b := newBackend(t)
	c := startControl(t, b, DefaultStatePeriod, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
loop:
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			c.SetCommand(types.ControlCommand{Roll: i % 100, Pitch: 50, Yaw: 50, Throttle: 40})
		}
	}

	requested := c.Stats().StateRequests
	assert.InDelta(t, 10, float64(requested), 2)
	require.Eventually(t, func() bool {
		return uint64(b.count(types.KindState)) >= requested-1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Greater(t, b.count(types.KindControl), 50)
}

func TestControlAdjust(t *testing.T) {
	b := newBackend(t)
	c := startControl(t, b, time.Hour, nil)

	cmd := c.Adjust(input.Throttle, 5)
	assert.Equal(t, 45, cmd.Throttle)
	cmd = c.Adjust(input.Roll, 80)
	assert.Equal(t, 100, cmd.Roll)
	assert.Equal(t, 45, cmd.Throttle)

	require.Eventually(t, func() bool { return b.count(types.KindControl) == 2 }, 2*time.Second, 5*time.Millisecond)
	last := b.messages()[2]
	assert.Equal(t, 100.0, last["roll"])
	assert.Equal(t, 45.0, last["throttle"])
}

func TestControlDropsSendsWhileClosed(t *testing.T) {
	idle := NewControl(ControlConfig{URL: "ws://127.0.0.1:1/ws", Logger: quietLogger()})
	idle.Arm()
	idle.SetCommand(types.Neutral(10))
	assert.Equal(t, uint64(2), idle.Stats().Dropped)
	assert.Zero(t, idle.Stats().Sent)

	b := newBackend(t)
	c := startControl(t, b, time.Hour, nil)
	server := b.conn(t)
	require.True(t, c.IsOpen())

	require.NoError(t, server.Close())
	require.Eventually(t, func() bool { return !c.IsOpen() }, 2*time.Second, 5*time.Millisecond)

	before := c.Stats()
	c.Arm()
	after := c.Stats()
	assert.Equal(t, before.Dropped+1, after.Dropped)
	assert.Equal(t, before.Sent, after.Sent)
	assert.Equal(t, Active, c.State())
}

func TestControlQuarantinesMalformed(t *testing.T) {
	b := newBackend(t)
	c := startControl(t, b, time.Hour, nil)
	server := b.conn(t)

	for _, frame := range []string{`garbage`, `[1,2]`, `null`, `{"altitude":1200}`} {
		require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	select {
	case st := <-c.States():
		assert.Equal(t, 1200.0, st.Altitude)
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop stopped after malformed frames")
	}
	assert.Equal(t, uint64(3), c.Stats().Malformed)
	assert.Equal(t, uint64(1), c.Stats().Received)
}

func TestControlStatesCoalesce(t *testing.T) {
	c := NewControl(ControlConfig{Logger: quietLogger()})
	c.handle([]byte(`{"altitude":1}`))
	c.handle([]byte(`{"altitude":2}`))
	c.handle([]byte(`{"altitude":3}`))

	st := <-c.States()
	assert.Equal(t, 3.0, st.Altitude)
	select {
	case <-c.States():
		t.Fatal("stale state left behind")
	default:
	}
}

func TestControlDialRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	srv.Close()

	c := NewControl(ControlConfig{URL: url, StatePeriod: time.Hour, Logger: quietLogger()})
	defer c.Close()

	err := c.Start(context.Background(), types.DefaultSessionConfig())
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "control", terr.Channel)
	assert.Equal(t, "dial", terr.Op)
	assert.Equal(t, Connecting, c.State())

	select {
	case published := <-c.Errors():
		assert.ErrorAs(t, published, &terr)
	default:
		t.Fatal("transport error not published")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "configuring", Configuring.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "unknown", State(9).String())
}
