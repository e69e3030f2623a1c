package bxcan

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// Can is a handle on a CAN controller.
// It gives access to the mailbox details that the generic adapters hide.
type Can struct {
	peripheral Peripheral
}

func New(peripheral Peripheral) *Can {
	return &Can{peripheral: peripheral}
}

// Transmit puts frame in a transmit mailbox. It returns false if it would
// have to wait for a mailbox.
// If a pending frame was replaced, it is available in the returned status.
func (c *Can) Transmit(frame Frame) (TransmitStatus, bool) {
	status, ok := c.peripheral.Submit(frame)
	if !ok {
		return TransmitStatus{}, false
	}
	if dequeued, ok := status.DequeuedFrame(); ok {
		log.Debugf("[CAN][TX] %v replaced pending frame %v in %v", frame, dequeued, status.Mailbox())
	}
	return status, true
}

// Receive returns the next frame from the receive FIFO.
// The error is nb.ErrWouldBlock or OverrunError.
func (c *Can) Receive() (Frame, error) {
	frame, err := c.peripheral.PollReceive()
	if errors.Is(err, OverrunError{}) {
		log.Warnf("[CAN][RX] %v", err)
	}
	return frame, err
}

// IsTransmitterIdle reports whether a transmit mailbox is free.
func (c *Can) IsTransmitterIdle() bool {
	return c.peripheral.IsTransmitterIdle()
}

// NonBlocking returns the can.NonBlocking adapter of this controller.
func (c *Can) NonBlocking() *NonBlocking {
	return &NonBlocking{can: c}
}

// Blocking returns the can.Blocking adapter of this controller.
func (c *Can) Blocking() *Blocking {
	return &Blocking{nb: c.NonBlocking()}
}
