package bxcan

import (
	"encoding/binary"
	"fmt"

	"github.com/samsamfire/gobxcan/pkg/can"
)

// Size of a Linux SocketCAN struct can_frame
const RawFrameSize = 16

// Raw returns the SocketCAN representation of the frame:
// the identifier with EFF/RTR flags, the DLC and the padded payload.
func (f Frame) Raw() (canID uint32, dlc uint8, data [8]byte) {
	canID = f.ID().Raw()
	if f.IsExtended() {
		canID |= can.EffFlag
	}
	if f.kind == RemoteFrame {
		canID |= can.RtrFlag
	}
	if f.kind == DataFrame {
		data = f.data.bytes
	}
	return canID, f.dlc, data
}

// FrameFromRaw builds a frame from its SocketCAN representation.
// It returns false for error frames, for an identifier that does not fit its
// format and for a DLC larger than 8.
func FrameFromRaw(canID uint32, dlc uint8, data [8]byte) (Frame, bool) {
	if canID&can.ErrFlag != 0 {
		return Frame{}, false
	}
	kind := Standard
	if canID&can.EffFlag != 0 {
		kind = Extended
	}
	// Only the flags are stripped, IDFromRaw rejects a standard identifier wider than 11 bits
	id, ok := IDFromRaw(kind, canID&can.EffMask)
	if !ok {
		return Frame{}, false
	}
	if canID&can.RtrFlag != 0 {
		return NewRemoteFrame(id, dlc)
	}
	if dlc > MaxDataLength {
		return Frame{}, false
	}
	payload, ok := NewData(data[:dlc])
	if !ok {
		return Frame{}, false
	}
	return NewDataFrame(id, payload), true
}

// MarshalBinary encodes the frame as a SocketCAN struct can_frame (little endian).
//
//	0..3  can_id with EFF/RTR flags
//	4     can_dlc
//	5..7  padding
//	8..15 data
func (f Frame) MarshalBinary() ([]byte, error) {
	canID, dlc, data := f.Raw()
	buf := make([]byte, RawFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], canID)
	buf[4] = dlc
	copy(buf[8:], data[:])
	return buf, nil
}

// UnmarshalBinary decodes a SocketCAN struct can_frame.
func (f *Frame) UnmarshalBinary(buf []byte) error {
	if len(buf) < RawFrameSize {
		return fmt.Errorf("%w : need %v bytes, got %v", ErrShortBuffer, RawFrameSize, len(buf))
	}
	canID := binary.LittleEndian.Uint32(buf[0:4])
	if canID&can.ErrFlag != 0 {
		return ErrErrorFrame
	}
	if buf[4] > MaxDataLength {
		return fmt.Errorf("%w : %v", ErrInvalidLength, buf[4])
	}
	var data [8]byte
	copy(data[:], buf[8:16])
	frame, ok := FrameFromRaw(canID, buf[4], data)
	if !ok {
		return fmt.Errorf("%w : identifier %x", ErrInvalidFormat, canID)
	}
	*f = frame
	return nil
}
