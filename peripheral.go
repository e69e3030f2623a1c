package bxcan

// Peripheral is the controller driver the adapters run on.
//
// A Peripheral is owned by a single Can handle, calls are not synchronized
// by this package.
type Peripheral interface {
	// Submit places frame in a transmit mailbox. It returns false when no
	// mailbox can take the frame right now; submission has no other failure.
	// When all mailboxes are pending the lowest priority frame may be removed
	// and reported in the status.
	Submit(frame Frame) (TransmitStatus, bool)
	// PollReceive returns the next received frame, nb.ErrWouldBlock when the
	// receive FIFO is empty, or OverrunError when frames were lost.
	PollReceive() (Frame, error)
	// IsTransmitterIdle reports whether at least one mailbox is free.
	IsTransmitterIdle() bool
}
