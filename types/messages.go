package types

import (
	"encoding/json"
	"fmt"
)

type MessageKind string

const (
	KindInit    MessageKind = "init"
	KindArm     MessageKind = "arm"
	KindControl MessageKind = "control"
	KindState   MessageKind = "state"
)

// OutboundMessage is a message the console sends on the control channel.
type OutboundMessage interface {
	Kind() MessageKind
}

type InitMessage struct {
	Config SessionConfig
}

func (InitMessage) Kind() MessageKind { return KindInit }

type ArmMessage struct{}

func (ArmMessage) Kind() MessageKind { return KindArm }

type ControlMessage struct {
	ControlCommand
}

func (ControlMessage) Kind() MessageKind { return KindControl }

type StateMessage struct{}

func (StateMessage) Kind() MessageKind { return KindState }

// Encode renders an outbound message in its wire form, always carrying the
// type tag.
func Encode(msg OutboundMessage) ([]byte, error) {
	switch m := msg.(type) {
	case InitMessage:
		return json.Marshal(struct {
			Type   MessageKind   `json:"type"`
			Config SessionConfig `json:"config"`
		}{KindInit, m.Config})
	case ControlMessage:
		return json.Marshal(struct {
			Type MessageKind `json:"type"`
			ControlCommand
		}{KindControl, m.ControlCommand})
	case ArmMessage, StateMessage:
		return json.Marshal(struct {
			Type MessageKind `json:"type"`
		}{msg.Kind()})
	default:
		return nil, fmt.Errorf("unknown outbound message %T", msg)
	}
}
