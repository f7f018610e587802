package mavlink

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	MagicV1 = 0xFE
	MagicV2 = 0xFD

	headerLenV1    = 6
	headerLenV2    = 10
	checksumLen    = 2
	signatureLen   = 13
	incompatSigned = 0x01
)

// LayerTypeMAVLink identifies MAVLink v1/v2 frames to gopacket.
var LayerTypeMAVLink = gopacket.RegisterLayerType(2170, gopacket.LayerTypeMetadata{
	Name:    "MAVLink",
	Decoder: gopacket.DecodeFunc(decodeMAVLink),
})

var (
	ErrNotMAVLink = errors.New("not a MAVLink frame")
	ErrTruncated  = errors.New("truncated MAVLink frame")
)

// Frame is a decoded MAVLink frame header. The message payload is left
// undecoded in Payload.
type Frame struct {
	layers.BaseLayer

	Version       uint8
	Length        uint8
	IncompatFlags uint8
	CompatFlags   uint8
	Sequence      uint8
	SystemID      uint8
	ComponentID   uint8
	MessageID     uint32
	Checksum      uint16
	Signature     []byte

	// ChecksumKnown is set when the message has a known CRC_EXTRA, in which
	// case ChecksumOK reports whether the frame verified.
	ChecksumKnown bool
	ChecksumOK    bool
}

func (f *Frame) LayerType() gopacket.LayerType     { return LayerTypeMAVLink }
func (f *Frame) CanDecode() gopacket.LayerClass    { return LayerTypeMAVLink }
func (f *Frame) NextLayerType() gopacket.LayerType { return gopacket.LayerTypePayload }

// Name is the message name, or MSG_<id> for ids outside the known set.
func (f *Frame) Name() string {
	if info, ok := messages[f.MessageID]; ok {
		return info.name
	}
	return fmt.Sprintf("MSG_%d", f.MessageID)
}

func (f *Frame) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 1 {
		df.SetTruncated()
		return ErrTruncated
	}

	var hdr int
	switch data[0] {
	case MagicV1:
		hdr = headerLenV1
		f.Version = 1
	case MagicV2:
		hdr = headerLenV2
		f.Version = 2
	default:
		return ErrNotMAVLink
	}
	if len(data) < hdr {
		df.SetTruncated()
		return ErrTruncated
	}

	f.Length = data[1]
	if f.Version == 1 {
		f.IncompatFlags, f.CompatFlags = 0, 0
		f.Sequence = data[2]
		f.SystemID = data[3]
		f.ComponentID = data[4]
		f.MessageID = uint32(data[5])
	} else {
		f.IncompatFlags = data[2]
		f.CompatFlags = data[3]
		f.Sequence = data[4]
		f.SystemID = data[5]
		f.ComponentID = data[6]
		f.MessageID = uint32(data[7]) | uint32(data[8])<<8 | uint32(data[9])<<16
	}

	end := hdr + int(f.Length) + checksumLen
	if len(data) < end {
		df.SetTruncated()
		return ErrTruncated
	}
	f.Checksum = binary.LittleEndian.Uint16(data[end-checksumLen : end])

	f.Signature = nil
	if f.Version == 2 && f.IncompatFlags&incompatSigned != 0 {
		if len(data) < end+signatureLen {
			df.SetTruncated()
			return ErrTruncated
		}
		f.Signature = data[end : end+signatureLen]
		end += signatureLen
	}

	f.Contents = data[:hdr]
	f.Payload = data[hdr : hdr+int(f.Length)]

	info, ok := messages[f.MessageID]
	f.ChecksumKnown = ok
	f.ChecksumOK = ok && Checksum(data[1:hdr+int(f.Length)], info.crcExtra) == f.Checksum
	return nil
}

func decodeMAVLink(data []byte, p gopacket.PacketBuilder) error {
	f := &Frame{}
	if err := f.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(f)
	return p.NextDecoder(gopacket.LayerTypePayload)
}

// Decode parses one frame from data.
func Decode(data []byte) (*Frame, error) {
	packet := gopacket.NewPacket(data, LayerTypeMAVLink, gopacket.NoCopy)
	if layer := packet.Layer(LayerTypeMAVLink); layer != nil {
		return layer.(*Frame), nil
	}
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	return nil, ErrNotMAVLink
}

// Checksum is the X.25 CRC MAVLink uses, seeded over the frame (minus magic)
// and finished with the message's CRC_EXTRA byte.
func Checksum(data []byte, extra uint8) uint16 {
	crc := uint16(0xFFFF)
	accumulate := func(b byte) {
		tmp := b ^ byte(crc&0xFF)
		tmp ^= tmp << 4
		crc = (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
	}
	for _, b := range data {
		accumulate(b)
	}
	accumulate(extra)
	return crc
}
