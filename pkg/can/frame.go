package can

// Frame is the controller independent view of a classical CAN frame.
//
// Remote frames carry no payload, Data returns an empty slice for them
// while DLC reports the requested length.
type Frame interface {
	IsExtended() bool
	IsRemoteFrame() bool
	ID() ID
	// Data length code, 0..8
	DLC() int
	Data() []byte
}

// Builder creates frames of a concrete driver type F.
// Both constructors return false instead of truncating oversized input.
type Builder[F Frame] interface {
	// New creates a data frame, fails if len(data) > 8
	New(id ID, data []byte) (F, bool)
	// NewRemote creates a remote frame, fails if dlc > 8
	NewRemote(id ID, dlc int) (F, bool)
}
