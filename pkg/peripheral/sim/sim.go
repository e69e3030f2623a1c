// Package sim simulates bxCAN controllers attached to an in-memory bus.
//
// Frames only move on the bus when it is stepped, either explicitly with
// Bus.Step or periodically with Bus.Run. Each step sends the pending frame
// that wins arbitration among all attached controllers.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/internal/controller"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	log "github.com/sirupsen/logrus"
)

func init() {
	peripheral.RegisterInterface("sim", NewSimBus)
}

var (
	busesMu sync.Mutex
	buses   = make(map[string]*Bus)
)

// Bus is an in-memory CAN bus.
type Bus struct {
	mu    sync.Mutex
	nodes []*Peripheral

	// shared clock started by the peripherals that have a tick period
	runMu   sync.Mutex
	runners int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{}
}

// BusForChannel returns the process wide bus with the given name.
// Peripherals created through the registry on the same channel share it.
func BusForChannel(channel string) *Bus {
	busesMu.Lock()
	defer busesMu.Unlock()
	bus, ok := buses[channel]
	if !ok {
		bus = NewBus()
		buses[channel] = bus
	}
	return bus
}

// NewSimBus is the registry constructor, channel names the shared bus.
func NewSimBus(channel string, options peripheral.Options) (peripheral.Interface, error) {
	return BusForChannel(channel).Open(options), nil
}

// Open creates a controller on this bus. It is attached on Connect.
func (b *Bus) Open(options peripheral.Options) *Peripheral {
	return &Peripheral{
		Controller: controller.New(options.Mailboxes, options.RxFifoDepth),
		bus:        b,
		loopback:   options.Loopback,
		period:     options.TickPeriod,
	}
}

func (b *Bus) attach(p *Peripheral) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, node := range b.nodes {
		if node == p {
			return
		}
	}
	b.nodes = append(b.nodes, p)
}

func (b *Bus) detach(p *Peripheral) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, node := range b.nodes {
		if node == p {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			return
		}
	}
}

// Step transmits one frame: the pending frame with the highest priority
// among all controllers. It returns false if no frame is pending.
func (b *Bus) Step() (bxcan.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var winner *Peripheral
	var frame bxcan.Frame
	for {
		var mailbox bxcan.Mailbox
		winner = nil
		for _, node := range b.nodes {
			candidate, mb, ok := node.NextPending()
			if !ok {
				continue
			}
			if winner == nil || candidate.Priority().Higher(frame.Priority()) {
				winner, frame, mailbox = node, candidate, mb
			}
		}
		if winner == nil {
			return bxcan.Frame{}, false
		}
		// Replaced by Submit since NextPending, it never reached the bus
		if winner.Complete(mailbox, frame) {
			break
		}
	}
	for _, node := range b.nodes {
		if node == winner && !node.loopback {
			continue
		}
		node.Deliver(frame)
	}
	log.Debugf("[SIM] %v", frame)
	return frame, true
}

// Drain steps the bus until no frame is pending and returns the number of frames sent.
func (b *Bus) Drain() int {
	count := 0
	for {
		if _, ok := b.Step(); !ok {
			return count
		}
		count++
	}
}

// Run steps the bus every period until ctx is done.
func (b *Bus) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Step()
		}
	}
}

// start runs the bus clock, only the first caller's period is used.
func (b *Bus) start(period time.Duration) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	b.runners++
	if b.runners > 1 {
		return
	}
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Run(ctx, period)
	}()
}

// stop releases the bus clock, it stops with its last user.
func (b *Bus) stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.runners == 0 {
		return
	}
	b.runners--
	if b.runners > 0 {
		return
	}
	b.cancel()
	b.cancel = nil
	b.wg.Wait()
}

// Peripheral is a simulated controller, it implements peripheral.Interface.
type Peripheral struct {
	*controller.Controller
	bus      *Bus
	loopback bool
	period   time.Duration
	mu       sync.Mutex
	running  bool
}

// Bus this controller is attached to.
func (p *Peripheral) Bus() *Bus {
	return p.bus
}

// Connect attaches the controller to its bus and, if a tick period was
// configured, starts stepping the bus. All the controllers of a bus share
// one clock.
func (p *Peripheral) Connect() error {
	p.bus.attach(p)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.period <= 0 || p.running {
		return nil
	}
	p.bus.start(p.period)
	p.running = true
	return nil
}

// Disconnect detaches the controller and drops pending and received frames.
func (p *Peripheral) Disconnect() error {
	p.mu.Lock()
	if p.running {
		p.bus.stop()
		p.running = false
	}
	p.mu.Unlock()
	p.bus.detach(p)
	p.Reset()
	return nil
}
