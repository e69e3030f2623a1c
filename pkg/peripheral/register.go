// Package peripheral holds the registry of controller backends.
//
// Backends register themselves in an init() function, import them for their
// side effect:
//
//	import _ "github.com/samsamfire/gobxcan/pkg/peripheral/sim"
package peripheral

import (
	"fmt"
	"sort"
	"time"

	"github.com/samsamfire/gobxcan"
)

// Interface is a controller backend that can be attached to a bus.
type Interface interface {
	bxcan.Peripheral
	Connect() error
	Disconnect() error
	// Lost returns the number of received frames discarded on overruns.
	Lost() uint64
}

// Options common to all backends
type Options struct {
	// Number of transmit mailboxes, 0 selects 3
	Mailboxes int
	// Depth of the receive FIFO, 0 selects 3
	RxFifoDepth int
	// Deliver transmitted frames to our own receive FIFO as well
	Loopback bool
	// Period of the simulated bus clock, 0 disables automatic stepping
	TickPeriod time.Duration
}

type NewInterfaceFunc func(channel string, options Options) (Interface, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

// Register a new backend type
// This should be called inside an init() function of the backend
func RegisterInterface(interfaceType string, newInterface NewInterfaceFunc) {
	interfaceRegistry[interfaceType] = newInterface
}

// Registered returns the names of the available backends
func Registered() []string {
	names := make([]string, 0, len(interfaceRegistry))
	for name := range interfaceRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create a new peripheral with the given backend, it still needs to be connected
func NewPeripheral(interfaceType string, channel string, options Options) (Interface, error) {
	createInterface, ok := interfaceRegistry[interfaceType]
	if !ok {
		return nil, fmt.Errorf("unsupported interface : %v (available %v)", interfaceType, Registered())
	}
	return createInterface(channel, options)
}
