package virtual

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/samsamfire/gobxcan"
	"github.com/samsamfire/gobxcan/pkg/peripheral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// broker relays every frame to all the other connected clients, like virtualcan
type broker struct {
	listener net.Listener
	mu       sync.Mutex
	clients  []net.Conn
}

func newBroker(t *testing.T) *broker {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	b := &broker{listener: listener}
	go b.serve()
	t.Cleanup(func() {
		listener.Close()
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range b.clients {
			c.Close()
		}
	})
	return b
}

func (b *broker) addr() string {
	return b.listener.Addr().String()
}

func (b *broker) waitClients(t *testing.T, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		count := len(b.clients)
		b.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("broker has less than %v clients", n)
}

func (b *broker) serve() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		b.mu.Lock()
		b.clients = append(b.clients, conn)
		b.mu.Unlock()
		go b.relay(conn)
	}
}

func (b *broker) relay(from net.Conn) {
	for {
		header := make([]byte, 4)
		if _, err := io.ReadFull(from, header); err != nil {
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(header))
		if _, err := io.ReadFull(from, payload); err != nil {
			return
		}
		b.mu.Lock()
		for _, c := range b.clients {
			if c != from {
				c.Write(append(header, payload...))
			}
		}
		b.mu.Unlock()
	}
}

func TestSerializeFrame(t *testing.T) {
	for _, s := range []string{"111#0001020304050607", "1ABCDEFF#R4", "000#"} {
		frame, err := bxcan.ParseFrame(s)
		require.Nil(t, err)
		raw, err := serializeFrame(frame)
		assert.Nil(t, err)
		assert.EqualValues(t, 14, binary.BigEndian.Uint32(raw[:4]))
		decoded, err := deserializeFrame(raw[4:])
		assert.Nil(t, err)
		assert.Equal(t, frame, decoded)
	}
	_, err := deserializeFrame([]byte{0, 0})
	assert.NotNil(t, err)

	raw := make([]byte, 14)
	raw[5] = 9
	_, err = deserializeFrame(raw)
	assert.ErrorIs(t, err, bxcan.ErrInvalidLength)

	// Standard identifier wider than 11 bits
	raw = make([]byte, 14)
	binary.BigEndian.PutUint32(raw[0:4], 0x1FFFF123)
	_, err = deserializeFrame(raw)
	assert.ErrorIs(t, err, bxcan.ErrInvalidFormat)
}

func TestRecvTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// Nothing read yet, keep listening
	_, err := recv(client)
	var netErr net.Error
	assert.True(t, errors.As(err, &netErr) && netErr.Timeout())

	// Frame cut after two bytes of its header
	go server.Write([]byte{0, 0})
	_, err = recv(client)
	assert.ErrorIs(t, err, errPartialFrame)
	assert.False(t, errors.As(err, &netErr))

	// Frame cut in its body
	frame, _ := bxcan.ParseFrame("123#AA")
	raw, err := serializeFrame(frame)
	require.Nil(t, err)
	go server.Write(raw[:8])
	_, err = recv(client)
	assert.ErrorIs(t, err, errPartialFrame)
	assert.False(t, errors.As(err, &netErr))
}

func TestDisconnectDoesNotWaitForReadTimeout(t *testing.T) {
	b := newBroker(t)
	vcan, err := NewVirtualCanBus(b.addr(), peripheral.Options{})
	require.Nil(t, err)
	require.Nil(t, vcan.Connect())
	b.waitClients(t, 1)

	start := time.Now()
	assert.Nil(t, vcan.Disconnect())
	assert.Less(t, time.Since(start), readTimeout)
}

func TestSendAndRecv(t *testing.T) {
	b := newBroker(t)
	vcan1, err := peripheral.NewPeripheral("virtualcan", b.addr(), peripheral.Options{RxFifoDepth: 16})
	require.Nil(t, err)
	vcan2, err := peripheral.NewPeripheral("virtualcan", b.addr(), peripheral.Options{RxFifoDepth: 16})
	require.Nil(t, err)
	require.Nil(t, vcan1.Connect())
	require.Nil(t, vcan2.Connect())
	defer vcan1.Disconnect()
	defer vcan2.Disconnect()
	b.waitClients(t, 2)

	tx := bxcan.New(vcan1).Blocking()
	frames := make([]bxcan.Frame, 0, 10)
	for i := 0; i < 10; i++ {
		frame, _ := bxcan.ParseFrame("111#0001020304050607")
		data, _ := bxcan.NewData([]byte{byte(i)})
		frame = bxcan.NewDataFrame(frame.ID(), data)
		frames = append(frames, frame)
		assert.Nil(t, tx.Transmit(frame.Generic()))
	}

	received := make(chan bxcan.Frame, 10)
	go func() {
		rx := bxcan.New(vcan2).Blocking()
		for i := 0; i < 10; i++ {
			f, err := rx.Receive()
			if err != nil {
				return
			}
			received <- f.Frame()
		}
	}()
	for _, want := range frames {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatal("frame not received")
		}
	}
}

func TestReceiveOwn(t *testing.T) {
	b := newBroker(t)
	vcan, err := NewVirtualCanBus(b.addr(), peripheral.Options{Loopback: true})
	require.Nil(t, err)
	require.Nil(t, vcan.Connect())
	defer vcan.Disconnect()

	sent, _ := bxcan.ParseFrame("123#AA")
	c := bxcan.New(vcan)
	_, ok := c.Transmit(sent)
	assert.True(t, ok)
	got, err := c.Blocking().Receive()
	assert.Nil(t, err)
	assert.Equal(t, sent, got.Frame())
}

func TestNotConnected(t *testing.T) {
	vcan, err := NewVirtualCanBus("127.0.0.1:1", peripheral.Options{})
	require.Nil(t, err)
	assert.Nil(t, vcan.Disconnect())
	assert.ErrorIs(t, vcan.(*Bus).send(bxcan.Frame{}), ErrNotConnected)
}
