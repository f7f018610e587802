package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/samaelod/aileron/mavlink"
	"github.com/samaelod/aileron/types"
)

const pcapngMagic = 0x0A0D0D0A

// Record is one captured telemetry frame.
type Record struct {
	At        time.Time
	Delta     time.Duration // since the previous record
	Direction types.Direction
	Data      []byte
	// Frame is nil when Data is not a MAVLink frame.
	Frame *mavlink.Frame
}

type packetSource interface {
	LinkType() layers.LinkType
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// openSource picks the pcap or pcapng reader from the file magic.
func openSource(r io.Reader) (packetSource, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}

	if binary.LittleEndian.Uint32(head) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// Read loads every record of a capture written by Writer. Either pcap or
// pcapng files are accepted as long as the link type is LinkTypeUser0.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadFrom(f)
}

func ReadFrom(r io.Reader) ([]Record, error) {
	src, err := openSource(r)
	if err != nil {
		return nil, err
	}
	if src.LinkType() != LinkTypeUser0 {
		return nil, fmt.Errorf("unsupported link type %v", src.LinkType())
	}

	var (
		records []Record
		prev    time.Time
	)
	for {
		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		if len(data) == 0 {
			continue
		}

		rec := Record{
			At:        ci.Timestamp,
			Direction: types.Inbound,
			Data:      data[1:],
		}
		if data[0] == byte(types.Outbound) {
			rec.Direction = types.Outbound
		}
		if !prev.IsZero() {
			rec.Delta = ci.Timestamp.Sub(prev)
		}
		prev = ci.Timestamp

		if frame, err := mavlink.Decode(rec.Data); err == nil {
			rec.Frame = frame
		}
		records = append(records, rec)
	}
}
