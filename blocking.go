package bxcan

import (
	"runtime"

	"github.com/samsamfire/gobxcan/pkg/can"
	"github.com/samsamfire/gobxcan/pkg/nb"
)

var _ can.Blocking[GenericFrame] = (*Blocking)(nil)

// Blocking implements can.Blocking on top of NonBlocking by polling.
// There is no timeout, wrap calls if a deadline is needed.
//
// Transmit cannot report frames replaced in a mailbox, they are dropped.
// Use NonBlocking to requeue them.
type Blocking struct {
	nb *NonBlocking
}

// Transmit waits for a free mailbox then polls until frame is accepted.
// It never fails.
func (b *Blocking) Transmit(frame GenericFrame) error {
	for !b.nb.can.IsTransmitterIdle() {
		runtime.Gosched()
	}
	for {
		if _, ok := b.nb.transmit(frame); ok {
			return nil
		}
		runtime.Gosched()
	}
}

// Receive polls until a frame arrives. An overrun is returned immediately.
func (b *Blocking) Receive() (GenericFrame, error) {
	return nb.Block(b.nb.Receive)
}
