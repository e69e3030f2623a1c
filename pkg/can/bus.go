package can

// Raw identifier flags, same layout as Linux SocketCAN
const (
	EffFlag uint32 = 0x80000000
	RtrFlag uint32 = 0x40000000
	ErrFlag uint32 = 0x20000000
	SffMask uint32 = 0x000007FF
	EffMask uint32 = 0x1FFFFFFF
)

// NonBlocking exchanges frames with a controller, one attempt per call.
// Both methods return nb.ErrWouldBlock when the attempt cannot complete now.
type NonBlocking[F Frame] interface {
	// Transmit queues frame for transmission.
	// If a lower priority frame had to leave the transmit queue to make room,
	// it is returned so that the caller can queue it again.
	Transmit(frame F) (*F, error)
	// Receive returns the next received frame.
	Receive() (F, error)
}

// Blocking exchanges frames with a controller and waits for completion.
type Blocking[F Frame] interface {
	// Transmit waits until frame has been queued for transmission.
	Transmit(frame F) error
	// Receive waits for the next received frame.
	Receive() (F, error)
}
