package bxcan

import "fmt"

// Mailbox identifies a transmit mailbox of the controller.
type Mailbox uint8

const (
	Mailbox0 Mailbox = iota
	Mailbox1
	Mailbox2
)

func (m Mailbox) String() string {
	return fmt.Sprintf("mailbox%d", uint8(m))
}

// TransmitStatus is the outcome of a successful submission.
type TransmitStatus struct {
	dequeued *Frame
	mailbox  Mailbox
}

// NewTransmitStatus is used by peripherals to report a submission.
// dequeued is the pending frame that was removed from mailbox to make room,
// or nil.
func NewTransmitStatus(mailbox Mailbox, dequeued *Frame) TransmitStatus {
	status := TransmitStatus{mailbox: mailbox}
	if dequeued != nil {
		frame := *dequeued
		status.dequeued = &frame
	}
	return status
}

// DequeuedFrame returns the lower priority frame that was replaced by the
// submitted one. That frame was not transmitted.
func (s TransmitStatus) DequeuedFrame() (Frame, bool) {
	if s.dequeued == nil {
		return Frame{}, false
	}
	return *s.dequeued, true
}

// Mailbox the submitted frame was placed in.
func (s TransmitStatus) Mailbox() Mailbox {
	return s.mailbox
}
