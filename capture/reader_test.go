package capture

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samaelod/aileron/mavlink"
	"github.com/samaelod/aileron/types"
)

func heartbeat(seq uint8) []byte {
	frame := []byte{mavlink.MagicV1, 9, seq, 1, 1, 0, 0, 0, 0, 0, 1, 3, 0x51, 4, 3}
	return binary.LittleEndian.AppendUint16(frame, mavlink.Checksum(frame[1:], 50))
}

func TestReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telem.pcap")
	w, err := Create(path, quietLogger())
	require.NoError(t, err)

	start := time.Unix(1700000000, 0)
	w.WriteFrame(start, types.Outbound, heartbeat(1))
	w.WriteFrame(start.Add(250*time.Millisecond), types.Inbound, []byte("not mavlink"))
	require.NoError(t, w.Close())

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, types.Outbound, records[0].Direction)
	assert.True(t, records[0].At.Equal(start))
	assert.Zero(t, records[0].Delta)
	require.NotNil(t, records[0].Frame)
	assert.Equal(t, "HEARTBEAT", records[0].Frame.Name())
	assert.Equal(t, uint8(1), records[0].Frame.Sequence)

	assert.Equal(t, types.Inbound, records[1].Direction)
	assert.Equal(t, 250*time.Millisecond, records[1].Delta)
	assert.Equal(t, []byte("not mavlink"), records[1].Data)
	assert.Nil(t, records[1].Frame)
}

func TestReadRejectsOtherLinkTypes(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet))
	require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: 1, Length: 1}, []byte{0}))

	_, err := ReadFrom(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported link type")
}

func TestReadGarbage(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("no"))
	assert.Error(t, err)

	_, err = ReadFrom(strings.NewReader(strings.Repeat("x", 64)))
	assert.Error(t, err)

	_, err = Read(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}
