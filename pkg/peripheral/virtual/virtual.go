package virtual

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/internal/controller"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
)

// Virtual CAN bus implementation with TCP primarily used for testing
// This needs a broker server to send CAN frames to all connected clients
// More information : https://github.com/windelbouwman/virtualcan

func init() {
	peripheral.RegisterInterface("virtual", NewVirtualCanBus)
	peripheral.RegisterInterface("virtualcan", NewVirtualCanBus)
}

const (
	readTimeout  = 200 * time.Millisecond
	writeTimeout = 10 * time.Millisecond
)

var (
	ErrNotConnected = errors.New("no active connection")
	errPartialFrame = errors.New("frame stream out of sync")
)

// Frame layout on the wire, big endian, preceded by its length on 4 bytes
type wireFrame struct {
	ID    uint32 // with EFF/RTR flags
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

type Bus struct {
	*controller.Controller
	mu       sync.Mutex
	channel  string
	conn     net.Conn
	loopback bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewVirtualCanBus(channel string, options peripheral.Options) (peripheral.Interface, error) {
	return &Bus{
		Controller: controller.New(options.Mailboxes, options.RxFifoDepth),
		channel:    channel,
		loopback:   options.Loopback,
	}, nil
}

// Helper function for serializing a CAN frame into the expected binary format
func serializeFrame(frame bxcan.Frame) ([]byte, error) {
	canID, dlc, data := frame.Raw()
	buffer := new(bytes.Buffer)
	err := binary.Write(buffer, binary.BigEndian, wireFrame{ID: canID, DLC: dlc, Data: data})
	if err != nil {
		return nil, err
	}
	dataBytes := buffer.Bytes()
	frameBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(frameBytes, uint32(len(dataBytes)))
	frameBytes = append(frameBytes, dataBytes...)
	return frameBytes, nil
}

// Helper function for deserializing a CAN frame from expected binary format
func deserializeFrame(buffer []byte) (bxcan.Frame, error) {
	var wire wireFrame
	err := binary.Read(bytes.NewReader(buffer), binary.BigEndian, &wire)
	if err != nil {
		return bxcan.Frame{}, err
	}
	if wire.DLC > bxcan.MaxDataLength {
		return bxcan.Frame{}, fmt.Errorf("%w : dlc %v", bxcan.ErrInvalidLength, wire.DLC)
	}
	frame, ok := bxcan.FrameFromRaw(wire.ID, wire.DLC, wire.Data)
	if !ok {
		return bxcan.Frame{}, fmt.Errorf("%w : id %x", bxcan.ErrInvalidFormat, wire.ID)
	}
	return frame, nil
}

// "Connect" to server e.g. localhost:18000
func (b *Bus) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	conn, err := net.Dial("tcp", b.channel)
	if err != nil {
		return err
	}
	b.conn = conn
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		err := tcpConn.SetNoDelay(true)
		if err != nil {
			conn.Close()
			return err
		}
	}
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.handleReception(ctx, conn)
	}()
	go func() {
		defer b.wg.Done()
		b.Pump(ctx, controller.DefaultPumpPeriod, b.send)
	}()
	return nil
}

// "Disconnect" from server
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	if b.cancel == nil {
		b.mu.Unlock()
		return nil
	}
	b.cancel()
	b.cancel = nil
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	// Closing first unblocks a pending read
	err := conn.Close()
	b.wg.Wait()
	b.Reset()
	return err
}

func (b *Bus) send(frame bxcan.Frame) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	frameBytes, err := serializeFrame(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = conn.Write(frameBytes)
	if err != nil {
		return err
	}
	// Local loopback
	if b.loopback {
		b.Deliver(frame)
	}
	return nil
}

// Receive new CAN message
// A timeout is only returned when nothing was read, a frame cut in the
// middle leaves the stream out of sync and is reported as errPartialFrame.
func recv(conn net.Conn) (bxcan.Frame, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	headerBytes := make([]byte, 4)
	n, err := io.ReadFull(conn, headerBytes)
	if err != nil {
		if n == 0 {
			return bxcan.Frame{}, err
		}
		return bxcan.Frame{}, fmt.Errorf("%w : header : %v", errPartialFrame, err)
	}
	length := binary.BigEndian.Uint32(headerBytes)
	if length > 64 {
		return bxcan.Frame{}, fmt.Errorf("%w : unexpected frame length %v", errPartialFrame, length)
	}
	frameBytes := make([]byte, length)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, err = io.ReadFull(conn, frameBytes)
	if err != nil {
		return bxcan.Frame{}, fmt.Errorf("%w : body : %v", errPartialFrame, err)
	}
	return deserializeFrame(frameBytes)
}

// Handle incoming traffic
func (b *Bus) handleReception(ctx context.Context, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		frame, err := recv(conn)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// No message received, this is OK
			continue
		} else if errors.Is(err, bxcan.ErrInvalidLength) || errors.Is(err, bxcan.ErrInvalidFormat) {
			log.Debugf("[VIRTUAL] ignoring frame : %v", err)
			continue
		} else if err != nil {
			if ctx.Err() == nil {
				log.Errorf("[VIRTUAL] listening routine has closed because : %v", err)
			}
			return
		}
		b.Deliver(frame)
	}
}
