package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/nb"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func dataFrame(raw uint16, payload ...byte) bxcan.Frame {
	id, _ := bxcan.NewStandardID(raw)
	data, _ := bxcan.NewData(payload)
	return bxcan.NewDataFrame(id, data)
}

func TestSubmitFreeMailbox(t *testing.T) {
	c := New(0, 0)
	assert.True(t, c.IsTransmitterIdle())

	status, ok := c.Submit(dataFrame(0x300))
	assert.True(t, ok)
	assert.Equal(t, bxcan.Mailbox0, status.Mailbox())
	_, dequeued := status.DequeuedFrame()
	assert.False(t, dequeued)

	status, ok = c.Submit(dataFrame(0x200))
	assert.True(t, ok)
	assert.Equal(t, bxcan.Mailbox1, status.Mailbox())

	status, ok = c.Submit(dataFrame(0x100))
	assert.True(t, ok)
	assert.Equal(t, bxcan.Mailbox2, status.Mailbox())
	assert.False(t, c.IsTransmitterIdle())
	assert.Equal(t, 3, c.Pending())
}

func TestSubmitEvictsLowestPriority(t *testing.T) {
	c := New(3, 3)
	low := dataFrame(0x300, 1)
	for _, f := range []bxcan.Frame{low, dataFrame(0x200, 2), dataFrame(0x100, 3)} {
		_, ok := c.Submit(f)
		assert.True(t, ok)
	}
	urgent := dataFrame(0x050, 4)
	status, ok := c.Submit(urgent)
	assert.True(t, ok)
	evicted, ok := status.DequeuedFrame()
	assert.True(t, ok)
	assert.Equal(t, low, evicted)
	assert.Equal(t, bxcan.Mailbox0, status.Mailbox())
	assert.Equal(t, 3, c.Pending())

	// Highest priority leaves first
	frame, mailbox, ok := c.NextPending()
	assert.True(t, ok)
	assert.Equal(t, urgent, frame)
	assert.Equal(t, bxcan.Mailbox0, mailbox)
}

func TestSubmitWouldBlock(t *testing.T) {
	c := New(3, 3)
	_, ok := c.Submit(dataFrame(0x100))
	assert.True(t, ok)

	// Lower priority than pending
	_, ok = c.Submit(dataFrame(0x200))
	assert.False(t, ok)
	// Same identifier, must keep order
	_, ok = c.Submit(dataFrame(0x100, 1))
	assert.False(t, ok)
	assert.Equal(t, 1, c.Pending())

	// Remote frame loses against data frame with same id
	id, _ := bxcan.NewStandardID(0x100)
	remote, _ := bxcan.NewRemoteFrame(id, 0)
	_, ok = c.Submit(remote)
	assert.False(t, ok)

	remote, _ = bxcan.NewRemoteFrame(bxcan.StandardID{}, 0)
	_, ok = c.Submit(remote)
	assert.True(t, ok)
}

func TestSubmitStandardBeforeExtended(t *testing.T) {
	c := New(1, 1)
	ext, _ := bxcan.NewExtendedID(0x100 << 18)
	extFrame := bxcan.NewDataFrame(ext, bxcan.Data{})
	_, ok := c.Submit(extFrame)
	assert.True(t, ok)

	status, ok := c.Submit(dataFrame(0x100))
	assert.True(t, ok)
	evicted, ok := status.DequeuedFrame()
	assert.True(t, ok)
	assert.Equal(t, extFrame, evicted)
}

func TestComplete(t *testing.T) {
	c := New(2, 1)
	a := dataFrame(0x200)
	b := dataFrame(0x100)
	c.Submit(a)
	c.Submit(b)

	frame, mailbox, ok := c.NextPending()
	assert.True(t, ok)
	assert.Equal(t, b, frame)
	// Wrong frame does not free the mailbox
	assert.False(t, c.Complete(mailbox, a))
	assert.False(t, c.Complete(bxcan.Mailbox(10), b))
	assert.True(t, c.Complete(mailbox, b))
	assert.Equal(t, 1, c.Pending())

	frame, mailbox, ok = c.NextPending()
	assert.True(t, ok)
	assert.Equal(t, a, frame)
	assert.True(t, c.Complete(mailbox, a))
	_, _, ok = c.NextPending()
	assert.False(t, ok)
}

func TestClaimedFrameIsNotDequeued(t *testing.T) {
	c := New(1, 1)
	sending := dataFrame(0x200, 1)
	_, ok := c.Submit(sending)
	assert.True(t, ok)

	frame, mailbox, ok := c.Claim()
	assert.True(t, ok)
	assert.Equal(t, sending, frame)

	// The only candidate for replacement is on the wire
	urgent := dataFrame(0x100, 2)
	_, ok = c.Submit(urgent)
	assert.False(t, ok)
	assert.True(t, c.Complete(mailbox, sending))

	status, ok := c.Submit(urgent)
	assert.True(t, ok)
	_, dequeued := status.DequeuedFrame()
	assert.False(t, dequeued)
}

func TestClaimLeavesOtherMailboxesReplaceable(t *testing.T) {
	c := New(2, 1)
	high := dataFrame(0x100)
	low := dataFrame(0x200)
	c.Submit(low)
	c.Submit(high)
	_, mailbox, ok := c.Claim()
	assert.True(t, ok)
	assert.Equal(t, bxcan.Mailbox1, mailbox)

	status, ok := c.Submit(dataFrame(0x050))
	assert.True(t, ok)
	evicted, ok := status.DequeuedFrame()
	assert.True(t, ok)
	assert.Equal(t, low, evicted)
	assert.True(t, c.Complete(mailbox, high))
}

func TestResetReleasesClaim(t *testing.T) {
	c := New(1, 1)
	c.Submit(dataFrame(0x200))
	c.Claim()
	c.Reset()
	c.Submit(dataFrame(0x200))
	status, ok := c.Submit(dataFrame(0x100))
	assert.True(t, ok)
	_, dequeued := status.DequeuedFrame()
	assert.True(t, dequeued)
}

func TestReceiveOverrun(t *testing.T) {
	c := New(1, 2)
	_, err := c.PollReceive()
	assert.Equal(t, nb.ErrWouldBlock, err)

	assert.True(t, c.Deliver(dataFrame(1)))
	assert.True(t, c.Deliver(dataFrame(2)))
	assert.False(t, c.Deliver(dataFrame(3)))
	assert.EqualValues(t, 1, c.Lost())

	_, err = c.PollReceive()
	assert.Equal(t, bxcan.OverrunError{}, err)
	frame, err := c.PollReceive()
	assert.Nil(t, err)
	assert.Equal(t, dataFrame(1), frame)
	frame, err = c.PollReceive()
	assert.Nil(t, err)
	assert.Equal(t, dataFrame(2), frame)
	_, err = c.PollReceive()
	assert.Equal(t, nb.ErrWouldBlock, err)
}

func TestReset(t *testing.T) {
	c := New(1, 1)
	c.Submit(dataFrame(1))
	c.Deliver(dataFrame(2))
	c.Deliver(dataFrame(3))
	c.Reset()
	assert.True(t, c.IsTransmitterIdle())
	_, err := c.PollReceive()
	assert.Equal(t, nb.ErrWouldBlock, err)
}

func TestPump(t *testing.T) {
	c := New(3, 3)
	c.Submit(dataFrame(0x300))
	c.Submit(dataFrame(0x200))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sent := make(chan bxcan.Frame, 4)
	failures := 1
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Pump(ctx, time.Millisecond, func(frame bxcan.Frame) error {
			if failures > 0 {
				failures--
				return errors.New("bus busy")
			}
			sent <- frame
			return nil
		})
	}()

	for _, want := range []bxcan.Frame{dataFrame(0x200), dataFrame(0x300)} {
		select {
		case got := <-sent:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatal("frame not pumped")
		}
	}
	cancel()
	<-done
	assert.Equal(t, 0, c.Pending())
}

func TestPumpLogsFirstFailureOnly(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	level := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(level)

	c := New(1, 1)
	c.Submit(dataFrame(0x100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sent := make(chan bxcan.Frame, 1)
	attempts := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Pump(ctx, time.Millisecond, func(frame bxcan.Frame) error {
			attempts++
			if attempts <= 5 {
				return errors.New("network is down")
			}
			sent <- frame
			return nil
		})
	}()
	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("frame not pumped")
	}
	cancel()
	<-done

	errorCount, debugCount := 0, 0
	for _, entry := range hook.AllEntries() {
		switch entry.Level {
		case log.ErrorLevel:
			errorCount++
		case log.DebugLevel:
			debugCount++
		}
	}
	assert.Equal(t, 1, errorCount)
	assert.Equal(t, 4, debugCount)
}
