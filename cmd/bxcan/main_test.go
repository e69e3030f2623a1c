package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/config"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	"github.com/samsamfire/gobxcan/pkg/peripheral/sim"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndDump(t *testing.T) {
	bus := sim.NewBus()
	tx := bus.Open(peripheral.Options{Mailboxes: 3, RxFifoDepth: 8})
	rx := bus.Open(peripheral.Options{Mailboxes: 3, RxFifoDepth: 8})
	assert.Nil(t, tx.Connect())
	assert.Nil(t, rx.Connect())
	defer tx.Disconnect()
	defer rx.Disconnect()

	frames, err := parseFrames([]string{"1ABCDEFF#R2", "100#01", "080#0203"})
	require.Nil(t, err)
	assert.Nil(t, send(bxcan.New(tx), frames))
	assert.Equal(t, 3, bus.Drain())

	var record bytes.Buffer
	assert.Nil(t, dump(rx, &record, 3, 0))
	assert.Equal(t, 3*bxcan.RawFrameSize, record.Len())

	// Replaying the record gives the frames in bus order
	replayed, err := readFrames(record.Bytes())
	assert.Nil(t, err)
	assert.Equal(t, []bxcan.Frame{frames[2], frames[1], frames[0]}, replayed)
}

func TestReadFramesTruncated(t *testing.T) {
	frame, _ := bxcan.ParseFrame("123#AA")
	raw, _ := frame.MarshalBinary()
	raw = append(raw, raw[:10]...)
	_, err := readFrames(raw)
	assert.ErrorIs(t, err, bxcan.ErrShortBuffer)
}

func TestParseFramesInvalid(t *testing.T) {
	_, err := parseFrames([]string{"123#01", "12#01"})
	assert.ErrorIs(t, err, bxcan.ErrInvalidFormat)
}

func TestDumpReportsLostFrames(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	bus := sim.NewBus()
	tx := bus.Open(peripheral.Options{})
	rx := bus.Open(peripheral.Options{RxFifoDepth: 1})
	assert.Nil(t, tx.Connect())
	assert.Nil(t, rx.Connect())
	defer tx.Disconnect()
	defer rx.Disconnect()

	frames, _ := parseFrames([]string{"200#01", "100#02"})
	assert.Nil(t, send(bxcan.New(tx), frames))
	assert.Equal(t, 2, bus.Drain())

	// The overrun is reported, then the frame that made it is dumped
	assert.Nil(t, dump(rx, nil, 1, 0))
	assert.EqualValues(t, 1, rx.Lost())
	reported := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && strings.Contains(entry.Message, "1 frames lost") {
			reported = true
		}
	}
	assert.True(t, reported)
}

func TestDumpTimeout(t *testing.T) {
	bus := sim.NewBus()
	rx := bus.Open(peripheral.Options{})
	assert.Nil(t, rx.Connect())
	defer rx.Disconnect()
	start := time.Now()
	assert.Nil(t, dump(rx, nil, 0, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunReplaysRecord(t *testing.T) {
	frame, _ := bxcan.ParseFrame("1ABCDEFF#R4")
	raw, _ := frame.MarshalBinary()
	path := filepath.Join(t.TempDir(), "frames.bin")
	require.Nil(t, os.WriteFile(path, raw, 0o644))

	cfg := config.Default()
	cfg.Channel = "run-test"
	cfg.TickPeriod = 0
	assert.Nil(t, run(cfg, "send", nil, path, "", 0, 0, 0))

	err := run(cfg, "replay", nil, "", "", 0, 0, 0)
	assert.ErrorIs(t, err, errUnknownCommand)
}
