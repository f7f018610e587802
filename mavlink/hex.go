package mavlink

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseHex parses the space separated ASCII hex the autopilot link traces
// ("FE 09 00 01 ..."). A single unseparated hex run is accepted as well.
func ParseHex(s string) ([]byte, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty hex string")
	}
	if len(fields) == 1 && len(fields[0]) > 2 {
		return hex.DecodeString(fields[0])
	}

	data := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("hex byte %q: %w", f, err)
		}
		data = append(data, byte(b))
	}
	return data, nil
}

// DecodeHex parses a hex trace string into a frame.
func DecodeHex(s string) (*Frame, error) {
	data, err := ParseHex(s)
	if err != nil {
		return nil, err
	}
	if len(data) < 3 || (data[0] != MagicV1 && data[0] != MagicV2) {
		return nil, ErrNotMAVLink
	}
	return Decode(data)
}

// Describe renders a frame as a "NAME" line followed by indented fields.
func Describe(f *Frame) string {
	var sb strings.Builder
	sb.WriteString(f.Name())

	field := func(k string, v any) {
		fmt.Fprintf(&sb, "\n  %s: %v", k, v)
	}
	field("version", f.Version)
	field("seq", f.Sequence)
	field("sysid", f.SystemID)
	field("compid", f.ComponentID)
	field("msgid", f.MessageID)
	field("len", f.Length)
	if f.Version == 2 {
		field("incompat_flags", fmt.Sprintf("0x%02x", f.IncompatFlags))
		field("compat_flags", fmt.Sprintf("0x%02x", f.CompatFlags))
	}
	switch {
	case !f.ChecksumKnown:
		field("crc", fmt.Sprintf("0x%04x", f.Checksum))
	case f.ChecksumOK:
		field("crc", fmt.Sprintf("0x%04x ok", f.Checksum))
	default:
		field("crc", fmt.Sprintf("0x%04x bad", f.Checksum))
	}
	if f.Signature != nil {
		field("signed", true)
	}
	if len(f.Payload) > 0 {
		field("payload", strings.ToUpper(hex.EncodeToString(f.Payload)))
	}
	return sb.String()
}
