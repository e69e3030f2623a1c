package bxcan

import "github.com/samsamfire/gobxcan/pkg/can"

// GenericFrame exposes a Frame through the controller independent can.Frame contract.
type GenericFrame struct {
	frame Frame
}

var _ can.Frame = GenericFrame{}
var _ can.Builder[GenericFrame] = Builder{}

// Generic returns the can.Frame view of f.
func (f Frame) Generic() GenericFrame {
	return GenericFrame{frame: f}
}

// Frame returns the underlying controller frame.
func (g GenericFrame) Frame() Frame {
	return g.frame
}

func (g GenericFrame) IsExtended() bool {
	return g.frame.IsExtended()
}

func (g GenericFrame) IsRemoteFrame() bool {
	return g.frame.IsRemoteFrame()
}

func (g GenericFrame) ID() can.ID {
	return ToGenericID(g.frame.ID())
}

func (g GenericFrame) DLC() int {
	return int(g.frame.DLC())
}

// Data is empty for remote frames.
func (g GenericFrame) Data() []byte {
	return g.frame.Data()
}

func (g GenericFrame) String() string {
	return g.frame.String()
}

// Builder implements can.Builder for this controller.
type Builder struct{}

func (Builder) New(id can.ID, data []byte) (GenericFrame, bool) {
	internal, ok := IDFromGeneric(id)
	if !ok {
		return GenericFrame{}, false
	}
	payload, ok := NewData(data)
	if !ok {
		return GenericFrame{}, false
	}
	return NewDataFrame(internal, payload).Generic(), true
}

func (Builder) NewRemote(id can.ID, dlc int) (GenericFrame, bool) {
	if dlc < 0 || dlc > MaxDataLength {
		return GenericFrame{}, false
	}
	internal, ok := IDFromGeneric(id)
	if !ok {
		return GenericFrame{}, false
	}
	frame, ok := NewRemoteFrame(internal, uint8(dlc))
	if !ok {
		return GenericFrame{}, false
	}
	return frame.Generic(), true
}

// FrameFromGeneric rebuilds a controller frame from any can.Frame,
// e.g. one produced by another driver.
func FrameFromGeneric(f can.Frame) (Frame, bool) {
	if g, ok := f.(GenericFrame); ok {
		return g.frame, true
	}
	var g GenericFrame
	var ok bool
	if f.IsRemoteFrame() {
		g, ok = Builder{}.NewRemote(f.ID(), f.DLC())
	} else {
		g, ok = Builder{}.New(f.ID(), f.Data())
	}
	return g.frame, ok
}
