package bxcan

import (
	"errors"

	"github.com/samsamfire/gobxcan/pkg/can"
)

var (
	ErrInvalidLength = errors.New("invalid data length")
	ErrInvalidFormat = errors.New("invalid frame format")
	ErrShortBuffer   = errors.New("buffer too short")
	ErrErrorFrame    = errors.New("error frames are not supported")
)

// OverrunError is returned by receive operations when the receive FIFO
// overflowed and at least one frame was lost.
type OverrunError struct{}

var _ can.Error = OverrunError{}

func (OverrunError) Error() string {
	return "receive FIFO overrun, frames were lost"
}

func (OverrunError) Kind() can.ErrorKind {
	return can.ErrorKindOverrun
}
