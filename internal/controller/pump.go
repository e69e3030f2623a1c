package controller

import (
	"context"
	"time"

	"github.com/samsamfire/gobxcan"
	log "github.com/sirupsen/logrus"
)

// Default polling period of Pump when no frame is pending
const DefaultPumpPeriod = time.Millisecond

// Pump hands pending frames to send, highest priority first, until ctx is done.
// A frame leaves its mailbox only once send succeeded, failed sends are
// retried after period like an automatic retransmission. Only the first
// failure of a series is logged as an error.
func (c *Controller) Pump(ctx context.Context, period time.Duration, send func(bxcan.Frame) error) {
	if period <= 0 {
		period = DefaultPumpPeriod
	}
	failing := false
	for {
		frame, mailbox, ok := c.Claim()
		if ok {
			err := send(frame)
			if err == nil {
				c.Complete(mailbox, frame)
				failing = false
				continue
			}
			if !failing {
				log.Errorf("[CAN][TX] failed to send %v : %v", frame, err)
				failing = true
			} else {
				log.Debugf("[CAN][TX] retrying %v : %v", frame, err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(period):
		}
	}
}
