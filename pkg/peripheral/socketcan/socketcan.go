//go:build linux

package socketcan

import (
	"context"
	"sync"

	sockcan "github.com/brutella/can"
	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/internal/controller"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
)

// Controller backed by a Linux SocketCAN interface, it uses the implementation
// that can be found here : https://github.com/brutella/can
// Mailboxes and receive FIFO are emulated in software.

func init() {
	peripheral.RegisterInterface("socketcan", NewSocketCanBus)
}

type SocketcanBus struct {
	*controller.Controller
	bus        *sockcan.Bus
	loopback   bool
	subscribed bool
	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Create a new SocketCAN controller. This expects the CAN channel to be up.
// e.g. running "ip a" should show can0 or something similar.
func NewSocketCanBus(name string, options peripheral.Options) (peripheral.Interface, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &SocketcanBus{
		Controller: controller.New(options.Mailboxes, options.RxFifoDepth),
		bus:        bus,
		loopback:   options.Loopback,
	}, nil
}

// "Connect" implementation of peripheral.Interface
func (s *SocketcanBus) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	// brutella/can defines a "Handle" interface for handling received CAN frames
	if !s.subscribed {
		s.bus.Subscribe(s)
		s.subscribed = true
	}
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		err := s.bus.ConnectAndPublish()
		if err != nil && ctx.Err() == nil {
			log.Errorf("[SOCKETCAN] listening routine has closed because : %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.Pump(ctx, controller.DefaultPumpPeriod, s.send)
	}()
	return nil
}

// "Disconnect" implementation of peripheral.Interface
func (s *SocketcanBus) Disconnect() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.cancel = nil
	s.mu.Unlock()
	err := s.bus.Disconnect()
	s.wg.Wait()
	s.Reset()
	return err
}

func (s *SocketcanBus) send(frame bxcan.Frame) error {
	err := s.bus.Publish(toSocketcan(frame))
	if err != nil {
		return err
	}
	if s.loopback {
		s.Deliver(frame)
	}
	return nil
}

// brutella/can specific "Handle" implementation
func (s *SocketcanBus) Handle(frame sockcan.Frame) {
	received, ok := fromSocketcan(frame)
	if !ok {
		log.Debugf("[SOCKETCAN] ignoring frame id %x length %v", frame.ID, frame.Length)
		return
	}
	s.Deliver(received)
}

func toSocketcan(frame bxcan.Frame) sockcan.Frame {
	canID, dlc, data := frame.Raw()
	return sockcan.Frame{
		ID:     canID,
		Length: dlc,
		Flags:  0,
		Res0:   0,
		Res1:   0,
		Data:   data,
	}
}

// Convert brutella frame to controller frame, error frames and invalid lengths are rejected
func fromSocketcan(frame sockcan.Frame) (bxcan.Frame, bool) {
	return bxcan.FrameFromRaw(frame.ID, frame.Length, frame.Data)
}
