package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/config"
	"github.com/samsamfire/gobxcan/pkg/nb"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	_ "github.com/samsamfire/gobxcan/pkg/peripheral/sim"
	_ "github.com/samsamfire/gobxcan/pkg/peripheral/virtual"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: bxcan [flags] send FRAME...
       bxcan [flags] -f FILE send
       bxcan [flags] [-o FILE] dump

FRAME uses the cansend notation, e.g. 123#DEADBEEF, 1ABCDEFF#R4
FILE holds 16 byte SocketCAN can_frame records, as written by dump -o

flags:
`

var errUnknownCommand = errors.New("unknown command")

func main() {
	configPath := flag.String("c", "", "ini configuration file")
	canInterface := flag.String("i", "", "interface type e.g. socketcan, virtualcan, sim")
	channel := flag.String("ch", "", "channel e.g. can0, vcan0, localhost:18888")
	loopback := flag.Bool("loopback", false, "receive own frames")
	count := flag.Int("n", 0, "dump : stop after n frames (0 = never)")
	timeout := flag.Duration("t", 0, "dump : stop when no frame arrives for this long (0 = never)")
	output := flag.String("o", "", "dump : also record frames to this file")
	input := flag.String("f", "", "send : replay frames recorded in this file")
	wait := flag.Duration("wait", 100*time.Millisecond, "send : time left to flush the mailboxes before disconnecting")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load configuration : %v", err)
		}
	}
	if *canInterface != "" {
		cfg.Interface = *canInterface
	}
	if *channel != "" {
		cfg.Channel = *channel
	}
	if *loopback {
		cfg.Loopback = true
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		log.Fatal(err)
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	err := run(cfg, flag.Arg(0), flag.Args()[1:], *input, *output, *count, *timeout, *wait)
	if errors.Is(err, errUnknownCommand) {
		log.Error(err)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, command string, args []string, input string, output string, count int, timeout time.Duration, wait time.Duration) error {
	var frames []bxcan.Frame
	var record io.Writer
	var err error
	switch command {
	case "send":
		if input != "" {
			var raw []byte
			raw, err = os.ReadFile(input)
			if err != nil {
				return err
			}
			frames, err = readFrames(raw)
		} else {
			frames, err = parseFrames(args)
		}
		if err != nil {
			return err
		}
	case "dump":
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer file.Close()
			record = file
		}
	default:
		return fmt.Errorf("%w : %q", errUnknownCommand, command)
	}

	p, err := peripheral.NewPeripheral(cfg.Interface, cfg.Channel, cfg.Options())
	if err != nil {
		return err
	}
	err = p.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to %v %v : %w", cfg.Interface, cfg.Channel, err)
	}
	defer p.Disconnect()

	if command == "send" {
		err = send(bxcan.New(p), frames)
		time.Sleep(wait)
		return err
	}
	return dump(p, record, count, timeout)
}

func parseFrames(args []string) ([]bxcan.Frame, error) {
	frames := make([]bxcan.Frame, 0, len(args))
	for _, arg := range args {
		frame, err := bxcan.ParseFrame(arg)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// readFrames decodes consecutive can_frame records
func readFrames(raw []byte) ([]bxcan.Frame, error) {
	frames := make([]bxcan.Frame, 0, len(raw)/bxcan.RawFrameSize)
	for offset := 0; offset < len(raw); offset += bxcan.RawFrameSize {
		var frame bxcan.Frame
		if err := frame.UnmarshalBinary(raw[offset:]); err != nil {
			return nil, fmt.Errorf("record %v : %w", offset/bxcan.RawFrameSize, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// send transmits frames in order, frames pushed out of a mailbox are queued again
func send(controller *bxcan.Can, frames []bxcan.Frame) error {
	queue := make([]bxcan.GenericFrame, 0, len(frames))
	for _, frame := range frames {
		queue = append(queue, frame.Generic())
	}
	tx := controller.NonBlocking()
	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]
		dequeued, err := nb.Block(func() (*bxcan.GenericFrame, error) {
			return tx.Transmit(frame)
		})
		if err != nil {
			return err
		}
		fmt.Printf("TX %v\n", frame)
		if dequeued != nil {
			log.Infof("requeueing %v", dequeued)
			queue = append(queue, *dequeued)
		}
	}
	return nil
}

// dump prints received frames and records them to out if not nil.
// Overruns are reported and do not stop the dump.
func dump(p peripheral.Interface, out io.Writer, count int, timeout time.Duration) error {
	rx := bxcan.New(p).NonBlocking()
	for received := 0; count == 0 || received < count; {
		ctx := context.Background()
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		frame, err := nb.BlockContext(ctx, rx.Receive)
		cancel()
		switch {
		case err == nil:
			received++
			fmt.Printf("RX %v\n", frame)
			if out == nil {
				continue
			}
			raw, err := frame.Frame().MarshalBinary()
			if err != nil {
				return err
			}
			if _, err := out.Write(raw); err != nil {
				return err
			}
		case errors.Is(err, bxcan.OverrunError{}):
			log.Warnf("%v, %v frames lost so far", err, p.Lost())
		case errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			return err
		}
	}
	return nil
}
