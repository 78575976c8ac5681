package channel

import (
	"sync"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Implements the local channel variant: a named ring region per
// direction with a {readIx, writeIx, size} header over a power-of-two
// data area, paired with dataAvailable/spaceAvailable events.  Producers
// wait on spaceAvailable, consumers on dataAvailable.
//
// Regions are named so both endpoints of a connection resolve the same
// pair; the direction suffix keeps the two rings from colliding.  The
// registry is process-wide global state, which is the price of
// name-based rendezvous.

const ringDataSize = 1 << 16 // power of two

var ringRegistry = struct {
	lock    sync.Mutex
	servers map[string]*RingListener
}{servers: make(map[string]*RingListener)}

func ListenRing(name string) (*RingListener, error) {
	ringRegistry.lock.Lock()
	defer ringRegistry.lock.Unlock()

	if _, ok := ringRegistry.servers[name]; ok {
		return nil, common.NewSystemError("listen ring", errors.Errorf("name '%v' already in use", name))
	}

	listener := &RingListener{
		name:    name,
		backlog: make(chan *Channel, 1),
		closed:  make(chan struct{}),
	}

	ringRegistry.servers[name] = listener
	return listener, nil
}

// Returns (nil, nil) if no server of that name exists or the timeout
// elapses before the server picks the connection up.
func TryConnectRing(name string, timeout time.Duration) (*Channel, error) {
	ringRegistry.lock.Lock()
	listener, ok := ringRegistry.servers[name]
	ringRegistry.lock.Unlock()

	if !ok {
		return nil, nil
	}

	// The connection id disambiguates rings of successive connections
	// with the same endpoint names.
	id := uuid.NewV4().String()
	clientToServer := newRing(name + "." + id + ".c2s")
	serverToClient := newRing(name + "." + id + ".s2c")

	client := NewChannel(&ringConnection{send: clientToServer, recv: serverToClient})
	server := NewChannel(&ringConnection{send: serverToClient, recv: clientToServer})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case listener.backlog <- server:
		return client, nil
	case <-listener.closed:
		return nil, ErrDisconnected
	case <-timer.C:
		return nil, nil
	}
}

type RingListener struct {
	name    string
	backlog chan *Channel
	closed  chan struct{}
	once    sync.Once
}

func (l *RingListener) Close() error {
	l.once.Do(func() {
		close(l.closed)

		ringRegistry.lock.Lock()
		delete(ringRegistry.servers, l.name)
		ringRegistry.lock.Unlock()
	})

	return nil
}

func (l *RingListener) TryAccept(timeout time.Duration) (*Channel, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case channel := <-l.backlog:
		return channel, nil
	case <-l.closed:
		return nil, ErrListenerClosed
	case <-timer.C:
		return nil, nil
	}
}

func (l *RingListener) Accept(control common.Control) (*Channel, error) {
	return acceptLoop(l, control)
}

// One direction of a local connection.
type ringConnection struct {
	send *ring
	recv *ring
}

func (c *ringConnection) Read(p []byte) (int, error) {
	return c.recv.read(p)
}

func (c *ringConnection) Write(p []byte) (int, error) {
	return c.send.write(p)
}

func (c *ringConnection) Close() error {
	c.send.close()
	c.recv.close()
	return nil
}

type ring struct {
	name string

	lock    sync.Mutex
	data    [ringDataSize]byte
	readIx  uint32
	writeIx uint32

	dataAvailable  chan struct{}
	spaceAvailable chan struct{}
	closed         chan struct{}
	once           sync.Once
}

func newRing(name string) *ring {
	return &ring{
		name:           name,
		dataAvailable:  make(chan struct{}, 1),
		spaceAvailable: make(chan struct{}, 1),
		closed:         make(chan struct{}),
	}
}

// size is the number of unread bytes; the indices run free and are
// masked into the data area on access.
func (r *ring) size() uint32 {
	return r.writeIx - r.readIx
}

func (r *ring) write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		r.lock.Lock()
		space := ringDataSize - r.size()
		if space == 0 {
			r.lock.Unlock()

			select {
			case <-r.spaceAvailable:
				continue
			case <-r.closed:
				return total, ErrDisconnected
			}
		}

		n := int(space)
		if n > len(p) {
			n = len(p)
		}

		for i := 0; i < n; i++ {
			r.data[(r.writeIx+uint32(i))&(ringDataSize-1)] = p[i]
		}

		r.writeIx += uint32(n)
		r.lock.Unlock()

		signal(r.dataAvailable)
		p = p[n:]
		total += n
	}

	return total, nil
}

func (r *ring) read(p []byte) (int, error) {
	for {
		r.lock.Lock()
		size := r.size()
		if size == 0 {
			r.lock.Unlock()

			select {
			case <-r.dataAvailable:
				continue
			case <-r.closed:
				return 0, ErrDisconnected
			}
		}

		n := int(size)
		if n > len(p) {
			n = len(p)
		}

		for i := 0; i < n; i++ {
			p[i] = r.data[(r.readIx+uint32(i))&(ringDataSize-1)]
		}

		r.readIx += uint32(n)
		r.lock.Unlock()

		signal(r.spaceAvailable)
		return n, nil
	}
}

func (r *ring) close() {
	r.once.Do(func() {
		close(r.closed)
	})
}

func signal(event chan struct{}) {
	select {
	case event <- struct{}{}:
	default:
	}
}
