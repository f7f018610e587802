package session

import (
	"errors"
	"fmt"
)

// ErrNotOpen is returned by sends attempted while the channel is not open.
var ErrNotOpen = errors.New("channel not open")

// TransportError is a channel-level failure: refused dial, reset, write
// failure. It never changes session state.
type TransportError struct {
	Channel string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Channel, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
