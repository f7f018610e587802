package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samaelod/aileron/mavlink"
	"github.com/samaelod/aileron/types"
)

func telemetryFrame(t *testing.T, dir int, typ string, decoded *string, raw string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"direction": dir,
		"type":      typ,
		"decoded":   decoded,
		"raw":       raw,
	})
	require.NoError(t, err)
	return data
}

func newTestTelemetry(capture FrameRecorder) *Telemetry {
	tel := NewTelemetry(TelemetryConfig{Logger: quietLogger(), Capture: capture})
	tel.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tel
}

func TestTelemetryBoundedMostRecentFirst(t *testing.T) {
	tel := newTestTelemetry(nil)

	for i := 0; i < 1500; i++ {
		tel.handle(telemetryFrame(t, 1, "X", nil, fmt.Sprint(i)))
	}

	out := tel.Log(types.Outbound)
	require.Equal(t, DefaultLogCapacity, out.Len())
	entries := out.Entries()
	assert.Equal(t, "1499", entries[0].Body)
	assert.Equal(t, "500", entries[len(entries)-1].Body)
	for i := 1; i < len(entries); i++ {
		require.Greater(t, entries[i-1].Seq, entries[i].Seq)
	}

	assert.Zero(t, tel.Log(types.Inbound).Len())
	assert.Equal(t, uint64(500), tel.Stats().Evicted)
}

func TestTelemetryDirectionIsolation(t *testing.T) {
	tel := newTestTelemetry(nil)

	tel.handle(telemetryFrame(t, 0, "A", nil, "in-1"))
	tel.handle(telemetryFrame(t, 1, "B", nil, "out-1"))
	tel.handle(telemetryFrame(t, 5, "C", nil, "in-2"))

	in := tel.Log(types.Inbound).Entries()
	out := tel.Log(types.Outbound).Entries()
	require.Len(t, in, 2)
	require.Len(t, out, 1)
	assert.Equal(t, "in-2", in[0].Body)
	assert.Equal(t, "in-1", in[1].Body)
	assert.Equal(t, "out-1", out[0].Body)
	assert.Equal(t, types.Outbound, out[0].Direction)
}

func TestTelemetryEntryRendering(t *testing.T) {
	tel := newTestTelemetry(nil)

	decoded := "HEARTBEAT\n  type: 1\n  autopilot: 3"
	tel.handle(telemetryFrame(t, 1, "HEARTBEAT", &decoded, "FE 09"))
	tel.handle(telemetryFrame(t, 0, "UNKNOWN", nil, "01 02 03"))

	out := tel.Log(types.Outbound).Entries()[0]
	assert.True(t, out.Decoded)
	assert.Equal(t, "HEARTBEAT\n"+decoded, out.Text())

	in := tel.Log(types.Inbound).Entries()[0]
	assert.False(t, in.Decoded)
	assert.Equal(t, "01 02 03", in.Text())
	assert.Empty(t, in.Detail)
}

func TestTelemetryEmptyDecodedFallsBackToRaw(t *testing.T) {
	tel := newTestTelemetry(nil)

	empty := ""
	tel.handle(telemetryFrame(t, 1, "HEARTBEAT", &empty, "FE 01"))

	e := tel.Log(types.Outbound).Entries()[0]
	assert.False(t, e.Decoded)
	assert.Equal(t, "FE 01", e.Text())
}

func TestTelemetryDecodesRawMAVLink(t *testing.T) {
	tel := newTestTelemetry(nil)

	// HEARTBEAT v1, seq 0, sysid 1, compid 1, CRC over CRC_EXTRA 50.
	raw := "FE 09 00 01 01 00 00 00 00 00 01 03 51 04 03 " + heartbeatCRC(t)
	tel.handle(telemetryFrame(t, 0, "HEARTBEAT", nil, raw))

	e := tel.Log(types.Inbound).Entries()[0]
	assert.Equal(t, raw, e.Text())
	assert.True(t, strings.HasPrefix(e.Detail, "HEARTBEAT\n"))
	assert.Contains(t, e.Detail, "ok")
}

func TestTelemetrySanitizesBackendText(t *testing.T) {
	tel := newTestTelemetry(nil)

	decoded := "\x1b]0;pwned\x07\x1b[31mred"
	tel.handle(telemetryFrame(t, 1, "\x1b[2J", &decoded, "00"))
	tel.handle(telemetryFrame(t, 0, "X", nil, "\x1b[H\u009bB"))

	for _, dir := range []types.Direction{types.Inbound, types.Outbound} {
		text := tel.Log(dir).Entries()[0].Text()
		assert.NotContains(t, text, "\x1b")
		assert.NotContains(t, text, "\x07")
		assert.NotContains(t, text, "\u009b")
	}
	assert.Contains(t, tel.Log(types.Outbound).Entries()[0].Text(), `\x1b[31mred`)
}

func TestTelemetryQuarantinesMalformed(t *testing.T) {
	tel := newTestTelemetry(nil)

	tel.handle([]byte(`not json`))
	tel.handle([]byte(`{"type":"X","raw":"AA"}`))
	tel.handle([]byte(`{"direction":"1","raw":"AA"}`))
	tel.handle([]byte(`{"direction":0,"raw":"AA"}`))
	tel.handle(telemetryFrame(t, 0, "ok", nil, "AA"))

	assert.Equal(t, uint64(4), tel.Stats().Malformed)
	assert.Equal(t, uint64(1), tel.Stats().Received)
	assert.Equal(t, 1, tel.Log(types.Inbound).Len())
}

type captured struct {
	dir   types.Direction
	frame []byte
}

type fakeRecorder struct {
	mu     sync.Mutex
	frames []captured
}

func (r *fakeRecorder) WriteFrame(_ time.Time, dir types.Direction, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, captured{dir, frame})
}

func TestTelemetryCapturesRawBytes(t *testing.T) {
	rec := &fakeRecorder{}
	tel := newTestTelemetry(rec)

	tel.handle(telemetryFrame(t, 1, "X", nil, "FE 01 02"))
	tel.handle(telemetryFrame(t, 0, "Y", nil, "not hex"))

	require.Len(t, rec.frames, 1)
	assert.Equal(t, types.Outbound, rec.frames[0].dir)
	assert.Equal(t, []byte{0xFE, 0x01, 0x02}, rec.frames[0].frame)
}

func TestTelemetryOverWebsocket(t *testing.T) {
	b := newBackend(t)
	tel := NewTelemetry(TelemetryConfig{URL: b.url("/telem"), Logger: quietLogger()})
	defer tel.Close()

	require.NoError(t, tel.Connect(context.Background()))
	server := b.conn(t)
	require.True(t, tel.IsOpen())

	require.NoError(t, server.WriteMessage(websocket.TextMessage, telemetryFrame(t, 1, "PING", nil, "AA BB")))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	require.NoError(t, server.WriteMessage(websocket.TextMessage, telemetryFrame(t, 0, "PONG", nil, "CC")))

	select {
	case <-tel.Updates():
	case <-time.After(2 * time.Second):
		t.Fatal("no update signalled")
	}
	require.Eventually(t, func() bool {
		return tel.Log(types.Inbound).Len() == 1 && tel.Log(types.Outbound).Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), tel.Stats().Malformed)

	require.NoError(t, tel.Close())
	assert.False(t, tel.IsOpen())
}

func heartbeatCRC(t *testing.T) string {
	t.Helper()
	body := []byte{0x09, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x03, 0x51, 0x04, 0x03}
	crc := mavlink.Checksum(body, 50)
	return fmt.Sprintf("%02X %02X", byte(crc), byte(crc>>8))
}
