package channel

import (
	"errors"
	"io"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/concurrent"
)

var (
	ErrDisconnected   = errors.New("CHANNEL:ERR:DISCONNECTED")
	ErrListenerClosed = errors.New("CHANNEL:ERR:LISTENER:CLOSED")
)

// How often blocking accept loops poll their stop control.
const AcceptPollInterval = 10 * time.Millisecond

// A connection is a full-duplex streaming abstraction.
//
// Implementations are expected to be thread-safe, with
// respect to concurrent reads and writes.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// A simple listener abstraction over the concrete transports.  TryAccept
// returns (nil, nil) when the timeout elapses without a peer showing up.
type Listener interface {
	io.Closer
	TryAccept(timeout time.Duration) (*Channel, error)
}

// A channel pairs one frame reader and one frame writer over a single
// connection.  Each direction is single-producer, single-consumer.
type Channel struct {
	conn   Connection
	reader *Reader
	writer *Writer
	closed concurrent.AtomicBool
}

func NewChannel(conn Connection) *Channel {
	return &Channel{
		conn:   conn,
		reader: NewReader(conn),
		writer: NewWriter(conn),
	}
}

func (c *Channel) Reader() *Reader {
	return c.reader
}

func (c *Channel) Writer() *Writer {
	return c.writer
}

// Disconnect is idempotent and unblocks any in-flight read.
func (c *Channel) Disconnect() error {
	if !c.closed.Swap(false, true) {
		return nil
	}

	return c.conn.Close()
}
