// Package controller models the transmit mailboxes and the receive FIFO of a
// bxCAN like controller. Peripheral backends embed a Controller and move
// frames between it and their transport.
package controller

import (
	"sync"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/internal/fifo"
	"github.com/samsamfire/gobxcan/pkg/nb"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMailboxes   = 3
	DefaultRxFifoDepth = 3
	MaxMailboxes       = 255
)

type Controller struct {
	mu        sync.Mutex
	mailboxes []*bxcan.Frame // nil when free
	inflight  int            // mailbox claimed by the transport, -1 if none
	rx        *fifo.Fifo[bxcan.Frame]
	overrun   bool
	lost      uint64
}

// New creates a controller, values lower than 1 select the defaults.
func New(mailboxes int, rxFifoDepth int) *Controller {
	if mailboxes < 1 {
		mailboxes = DefaultMailboxes
	}
	if mailboxes > MaxMailboxes {
		mailboxes = MaxMailboxes
	}
	if rxFifoDepth < 1 {
		rxFifoDepth = DefaultRxFifoDepth
	}
	return &Controller{
		mailboxes: make([]*bxcan.Frame, mailboxes),
		inflight:  -1,
		rx:        fifo.NewFifo[bxcan.Frame](rxFifoDepth),
	}
}

// Submit implements bxcan.Peripheral.
//
// The mailboxes send the highest priority frame first but do not keep the
// submission order of frames with the same identifier. A frame is therefore
// only accepted if its priority is strictly higher than every pending frame.
// When no mailbox is free the lowest priority pending frame is replaced and
// returned in the status. A frame claimed by the transport cannot be aborted
// anymore, if it is the one to replace Submit would block.
func (c *Controller) Submit(frame bxcan.Frame) (bxcan.TransmitStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	priority := frame.Priority()
	free := -1
	lowest := -1
	for i, pending := range c.mailboxes {
		if pending == nil {
			if free < 0 {
				free = i
			}
			continue
		}
		if !priority.Higher(pending.Priority()) {
			return bxcan.TransmitStatus{}, false
		}
		if lowest < 0 || c.mailboxes[lowest].Priority().Higher(pending.Priority()) {
			lowest = i
		}
	}
	if free >= 0 {
		c.mailboxes[free] = &frame
		return bxcan.NewTransmitStatus(bxcan.Mailbox(free), nil), true
	}
	if lowest == c.inflight {
		return bxcan.TransmitStatus{}, false
	}
	dequeued := c.mailboxes[lowest]
	c.mailboxes[lowest] = &frame
	return bxcan.NewTransmitStatus(bxcan.Mailbox(lowest), dequeued), true
}

// IsTransmitterIdle implements bxcan.Peripheral.
func (c *Controller) IsTransmitterIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pending := range c.mailboxes {
		if pending == nil {
			return true
		}
	}
	return false
}

// PollReceive implements bxcan.Peripheral.
// A pending overrun is reported (and cleared) before the buffered frames.
func (c *Controller) PollReceive() (bxcan.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overrun {
		c.overrun = false
		return bxcan.Frame{}, bxcan.OverrunError{}
	}
	frame, ok := c.rx.Read()
	if !ok {
		return bxcan.Frame{}, nb.ErrWouldBlock
	}
	return frame, nil
}

// Pending returns the number of occupied mailboxes.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, pending := range c.mailboxes {
		if pending != nil {
			count++
		}
	}
	return count
}

// NextPending returns the frame that wins arbitration among pending mailboxes.
// The frame stays in its mailbox until Complete is called and may still be
// replaced by Submit.
func (c *Controller) NextPending() (bxcan.Frame, bxcan.Mailbox, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	best := c.highestPending()
	if best < 0 {
		return bxcan.Frame{}, 0, false
	}
	return *c.mailboxes[best], bxcan.Mailbox(best), true
}

// Claim is NextPending for a transport that is about to put the frame on the
// wire. Until Complete, or the next Claim, Submit will not replace it.
func (c *Controller) Claim() (bxcan.Frame, bxcan.Mailbox, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	best := c.highestPending()
	c.inflight = best
	if best < 0 {
		return bxcan.Frame{}, 0, false
	}
	return *c.mailboxes[best], bxcan.Mailbox(best), true
}

// Complete frees mailbox after frame went out on the bus.
// Nothing happens if frame was replaced in the meantime.
func (c *Controller) Complete(mailbox bxcan.Mailbox, frame bxcan.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(mailbox) >= len(c.mailboxes) {
		return false
	}
	pending := c.mailboxes[mailbox]
	if pending == nil || *pending != frame {
		return false
	}
	c.mailboxes[mailbox] = nil
	if int(mailbox) == c.inflight {
		c.inflight = -1
	}
	return true
}

// must be called with mu held
func (c *Controller) highestPending() int {
	best := -1
	for i, pending := range c.mailboxes {
		if pending == nil {
			continue
		}
		if best < 0 || pending.Priority().Higher(c.mailboxes[best].Priority()) {
			best = i
		}
	}
	return best
}

// Deliver stores a frame received from the bus.
// If the receive FIFO is full the frame is discarded and an overrun is flagged.
func (c *Controller) Deliver(frame bxcan.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rx.Write(frame) {
		c.overrun = true
		c.lost++
		log.Debugf("[CAN][RX] fifo full, discarding %v", frame)
		return false
	}
	return true
}

// Lost returns the number of frames discarded because of overruns.
func (c *Controller) Lost() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// Reset aborts all pending transmissions and flushes the receive FIFO.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.mailboxes {
		c.mailboxes[i] = nil
	}
	c.inflight = -1
	c.rx.Reset()
	c.overrun = false
}
