package channel

import (
	"encoding/binary"
	"io"

	"github.com/jsmidtbosch/veos-cosim-client/common"
)

// Frames are length prefixed with 4 bytes, big endian.  Frame payloads
// themselves are little endian; the prefix predates the codec and is kept
// byte compatible with the wire peers.
const (
	frameHeaderLength = 4
	MaxFrameLength    = 1 << 24
)

// Writer coalesces small writes into an in-memory frame and delivers the
// frame atomically on EndWrite.  Not safe for concurrent use; a channel
// direction has exactly one producer.
type Writer struct {
	conn Connection
	buf  []byte
	dead error
}

func NewWriter(conn Connection) *Writer {
	return &Writer{
		conn: conn,
		buf:  make([]byte, frameHeaderLength, 1024),
	}
}

// Write appends src to the current frame.  It never writes partially.
func (w *Writer) Write(src []byte) error {
	if w.dead != nil {
		return w.dead
	}

	w.buf = append(w.buf, src...)
	return nil
}

func (w *Writer) WriteUint8(val uint8) error {
	return w.Write([]byte{val})
}

func (w *Writer) WriteUint16(val uint16) error {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], val)
	return w.Write(tmp[:])
}

func (w *Writer) WriteUint32(val uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], val)
	return w.Write(tmp[:])
}

func (w *Writer) WriteUint64(val uint64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], val)
	return w.Write(tmp[:])
}

func (w *Writer) WriteInt64(val int64) error {
	return w.WriteUint64(uint64(val))
}

// EndWrite finalizes the current frame and flushes it to the transport.
// Must be called exactly once per logical frame.
func (w *Writer) EndWrite() error {
	if w.dead != nil {
		return w.dead
	}

	payload := len(w.buf) - frameHeaderLength
	if payload > MaxFrameLength {
		w.buf = w.buf[:frameHeaderLength]
		return common.NewProtocolError("Frame of %v bytes exceeds the maximum of %v bytes.", payload, MaxFrameLength)
	}

	binary.BigEndian.PutUint32(w.buf[:frameHeaderLength], uint32(payload))

	buf := w.buf
	for len(buf) > 0 {
		n, err := w.conn.Write(buf)
		if err != nil {
			w.dead = ErrDisconnected
			return w.dead
		}

		buf = buf[n:]
	}

	w.buf = w.buf[:frameHeaderLength]
	return nil
}

// Reader mirrors the writer: it reads the next frame header off the
// transport, then serves payload bytes out of an internal region.
type Reader struct {
	conn      Connection
	buf       []byte
	remaining []byte
	dead      error
}

func NewReader(conn Connection) *Reader {
	return &Reader{
		conn: conn,
		buf:  make([]byte, 1024),
	}
}

// Read blocks until len(dst) bytes are delivered.  It fails with
// ErrDisconnected if the peer goes away before enough bytes arrive.
func (r *Reader) Read(dst []byte) error {
	if r.dead != nil {
		return r.dead
	}

	for len(dst) > 0 {
		if len(r.remaining) == 0 {
			if err := r.nextFrame(); err != nil {
				return err
			}
		}

		n := copy(dst, r.remaining)
		r.remaining = r.remaining[n:]
		dst = dst[n:]
	}

	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	var tmp [1]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}

	return tmp[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	var tmp [2]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	var tmp [4]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	var tmp [8]byte
	if err := r.Read(tmp[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	val, err := r.ReadUint64()
	return int64(val), err
}

func (r *Reader) nextFrame() error {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r.conn, header[:]); err != nil {
		r.dead = ErrDisconnected
		return r.dead
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameLength {
		r.dead = common.NewProtocolError("Frame of %v bytes exceeds the maximum of %v bytes.", length, MaxFrameLength)
		return r.dead
	}

	if cap(r.buf) < int(length) {
		r.buf = make([]byte, length)
	}

	r.buf = r.buf[:length]
	if _, err := io.ReadFull(r.conn, r.buf); err != nil {
		r.dead = ErrDisconnected
		return r.dead
	}

	r.remaining = r.buf
	return nil
}
