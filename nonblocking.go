package bxcan

import (
	"github.com/samsamfire/gobxcan/pkg/can"
	"github.com/samsamfire/gobxcan/pkg/nb"
)

var _ can.NonBlocking[GenericFrame] = (*NonBlocking)(nil)

// NonBlocking implements can.NonBlocking. Every call is a single attempt.
type NonBlocking struct {
	can *Can
}

// Transmit queues frame or returns nb.ErrWouldBlock.
// The returned frame, if not nil, was pending and has been removed from
// its mailbox to make room for frame. It was not sent.
func (n *NonBlocking) Transmit(frame GenericFrame) (*GenericFrame, error) {
	dequeued, ok := n.transmit(frame)
	if !ok {
		return nil, nb.ErrWouldBlock
	}
	return dequeued, nil
}

// transmit is the single submission attempt shared with the blocking adapter.
func (n *NonBlocking) transmit(frame GenericFrame) (*GenericFrame, bool) {
	status, ok := n.can.Transmit(frame.Frame())
	if !ok {
		return nil, false
	}
	dequeued, ok := status.DequeuedFrame()
	if !ok {
		return nil, true
	}
	g := dequeued.Generic()
	return &g, true
}

// Receive returns the next frame, nb.ErrWouldBlock or OverrunError.
func (n *NonBlocking) Receive() (GenericFrame, error) {
	frame, err := n.can.Receive()
	if err != nil {
		return GenericFrame{}, err
	}
	return frame.Generic(), nil
}
