package bxcan

import (
	"fmt"
	"strings"
)

// FrameKind tells data frames and remote frames apart.
type FrameKind uint8

const (
	DataFrame FrameKind = iota
	RemoteFrame
)

func (k FrameKind) String() string {
	switch k {
	case DataFrame:
		return "data"
	case RemoteFrame:
		return "remote"
	}
	return "unknown"
}

// Frame is a classical CAN frame as exchanged with the controller.
//
// A data frame carries a payload and its DLC is the payload length.
// A remote frame carries no payload, its DLC is the length requested from
// the responder. Frames are immutable values, the zero Frame is an empty
// data frame with standard identifier 0.
type Frame struct {
	kind FrameKind
	id   ID
	dlc  uint8
	data Data
}

// NewDataFrame creates a data frame, the DLC is the length of data.
func NewDataFrame(id ID, data Data) Frame {
	if id == nil {
		id = StandardID{}
	}
	return Frame{kind: DataFrame, id: id, dlc: data.len, data: data}
}

// NewRemoteFrame creates a remote frame requesting dlc bytes.
// It returns false if dlc is larger than 8.
func NewRemoteFrame(id ID, dlc uint8) (Frame, bool) {
	if dlc > MaxDataLength {
		return Frame{}, false
	}
	if id == nil {
		id = StandardID{}
	}
	return Frame{kind: RemoteFrame, id: id, dlc: dlc}, true
}

func (f Frame) Kind() FrameKind {
	return f.kind
}

func (f Frame) ID() ID {
	if f.id == nil {
		return StandardID{}
	}
	return f.id
}

func (f Frame) IsExtended() bool {
	return f.ID().IsExtended()
}

func (f Frame) IsRemoteFrame() bool {
	return f.kind == RemoteFrame
}

func (f Frame) IsDataFrame() bool {
	return f.kind == DataFrame
}

// DLC is the payload length of a data frame or the requested length of a remote frame.
func (f Frame) DLC() uint8 {
	return f.dlc
}

// Data returns a copy of the payload. Remote frames return an empty slice.
func (f Frame) Data() []byte {
	switch f.kind {
	case RemoteFrame:
		return []byte{}
	default:
		return f.data.Bytes()
	}
}

// Priority returns the arbitration field of the frame.
//
// The layout follows the order in which the bits are sent on the bus:
// base ID, RTR (or SRR), IDE, identifier extension and RTR of extended frames.
// Standard frames win against extended frames with the same base ID,
// data frames win against remote frames with the same ID.
func (f Frame) Priority() Priority {
	var rtr uint32
	if f.kind == RemoteFrame {
		rtr = 1
	}
	switch id := f.ID().(type) {
	case ExtendedID:
		base := id.raw >> 18
		ext := id.raw & 0x3FFFF
		return Priority(base<<21 | 1<<20 | 1<<19 | ext<<1 | rtr)
	default:
		return Priority(f.ID().Raw()<<21 | rtr<<20)
	}
}

// String formats the frame like candump, e.g. "123 [2] DE AD" or "1ABCDEFF [4] RTR".
func (f Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v [%d]", f.ID(), f.dlc)
	switch f.kind {
	case RemoteFrame:
		sb.WriteString(" RTR")
	default:
		for _, b := range f.data.bytes[:f.data.len] {
			fmt.Fprintf(&sb, " %02X", b)
		}
	}
	return sb.String()
}

// Priority orders frames by bus arbitration, a smaller value wins.
type Priority uint32

// Higher reports whether p wins arbitration against other.
func (p Priority) Higher(other Priority) bool {
	return p < other
}
