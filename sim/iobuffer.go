package sim

import (
	"bytes"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/pkg/errors"
)

type ioSignalSlot struct {
	signal  IoSignal
	data    []byte
	length  uint32
	changed bool
}

func newIoSignalSlot(signal IoSignal) *ioSignalSlot {
	slot := &ioSignalSlot{
		signal: signal,
		data:   make([]byte, signal.sizeInBytes()),
	}

	if signal.SizeKind == SizeKindFixed {
		slot.length = signal.Length
	}

	return slot
}

func (s *ioSignalSlot) dataBytes() []byte {
	return s.data[:s.length*s.signal.DataType.Size()]
}

func (s *ioSignalSlot) clearData() {
	for i := range s.data {
		s.data[i] = 0
	}

	if s.signal.SizeKind == SizeKindFixed {
		s.length = s.signal.Length
	} else {
		s.length = 0
	}

	s.changed = false
}

// IoBuffer keeps the latest value of every outgoing signal of the local
// side and every incoming signal of the remote side.  On each step only
// signals whose value changed since the last transmission go on the
// wire.
type IoBuffer struct {
	incoming map[IoSignalId]*ioSignalSlot
	outgoing map[IoSignalId]*ioSignalSlot

	outgoingOrder []IoSignalId
	changedCount  uint32
}

func NewIoBuffer(incomingSignals []IoSignal, outgoingSignals []IoSignal) (*IoBuffer, error) {
	buffer := &IoBuffer{
		incoming: make(map[IoSignalId]*ioSignalSlot, len(incomingSignals)),
		outgoing: make(map[IoSignalId]*ioSignalSlot, len(outgoingSignals)),
	}

	seen := make(map[IoSignalId]string, len(incomingSignals)+len(outgoingSignals))

	register := func(signal IoSignal, slots map[IoSignalId]*ioSignalSlot) error {
		if prior, ok := seen[signal.Id]; ok {
			return errors.Wrapf(ErrDuplicateSignalId, "Signal id %v is used by both '%v' and '%v'", signal.Id, prior, signal.Name)
		}

		if signal.Length < 1 {
			return errors.Wrapf(ErrInvalidLength, "Signal '%v' must have a length of at least 1", signal.Name)
		}

		if signal.DataType.Size() == 0 {
			return errors.Wrapf(ErrInvalidLength, "Signal '%v' has invalid data type %v", signal.Name, uint32(signal.DataType))
		}

		seen[signal.Id] = signal.Name
		slots[signal.Id] = newIoSignalSlot(signal)
		return nil
	}

	for _, signal := range incomingSignals {
		if err := register(signal, buffer.incoming); err != nil {
			return nil, err
		}
	}

	for _, signal := range outgoingSignals {
		if err := register(signal, buffer.outgoing); err != nil {
			return nil, err
		}

		buffer.outgoingOrder = append(buffer.outgoingOrder, signal.Id)
	}

	return buffer, nil
}

// Write updates the outgoing slot for id with length elements.  The slot
// only becomes dirty when the value (or, for variable signals, the
// length) actually changed.
func (b *IoBuffer) Write(id IoSignalId, length uint32, src []byte) error {
	slot, ok := b.outgoing[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSignal, "No outgoing signal with id %v", id)
	}

	switch slot.signal.SizeKind {
	case SizeKindFixed:
		if length != slot.signal.Length {
			return errors.Wrapf(ErrInvalidLength, "Signal '%v' has fixed length %v, got %v", slot.signal.Name, slot.signal.Length, length)
		}
	case SizeKindVariable:
		if length > slot.signal.Length {
			return errors.Wrapf(ErrVariableLengthExceeded, "Signal '%v' allows at most %v elements, got %v", slot.signal.Name, slot.signal.Length, length)
		}
	}

	byteCount := length * slot.signal.DataType.Size()
	if uint32(len(src)) < byteCount {
		return errors.Wrapf(ErrInvalidLength, "Signal '%v' needs %v bytes for %v elements, got %v", slot.signal.Name, byteCount, length, len(src))
	}

	if slot.length == length && bytes.Equal(slot.data[:byteCount], src[:byteCount]) {
		return nil
	}

	copy(slot.data[:byteCount], src)
	slot.length = length

	if !slot.changed {
		slot.changed = true
		b.changedCount++
	}

	return nil
}

// Read returns the stored element count and value bytes for id.  Both
// incoming and outgoing signals are readable on their side.
func (b *IoBuffer) Read(id IoSignalId) (uint32, []byte, error) {
	slot, ok := b.incoming[id]
	if !ok {
		slot, ok = b.outgoing[id]
	}

	if !ok {
		return 0, nil, errors.Wrapf(ErrUnknownSignal, "No signal with id %v", id)
	}

	data := make([]byte, len(slot.dataBytes()))
	copy(data, slot.dataBytes())
	return slot.length, data, nil
}

// Serialize emits all dirty outgoing signals and clears their dirty
// flags.
func (b *IoBuffer) Serialize(w *channel.Writer) error {
	if err := w.WriteUint32(b.changedCount); err != nil {
		return err
	}

	for _, id := range b.outgoingOrder {
		slot := b.outgoing[id]
		if !slot.changed {
			continue
		}

		if err := w.WriteUint32(uint32(id)); err != nil {
			return err
		}

		if slot.signal.SizeKind == SizeKindVariable {
			if err := w.WriteUint32(slot.length); err != nil {
				return err
			}
		}

		if err := w.Write(slot.dataBytes()); err != nil {
			return err
		}

		slot.changed = false
	}

	b.changedCount = 0
	return nil
}

// Deserialize applies the peer's changed signals to the incoming slots
// and fires the change callback per entry, in wire order.
func (b *IoBuffer) Deserialize(r *channel.Reader, simulationTime SimulationTime, callbacks Callbacks) error {
	changedCount, err := r.ReadUint32()
	if err != nil {
		return err
	}

	if changedCount > uint32(len(b.incoming)) {
		return common.NewProtocolError("Changed signal count %v exceeds the incoming signal count %v.", changedCount, len(b.incoming))
	}

	for i := uint32(0); i < changedCount; i++ {
		id, err := r.ReadUint32()
		if err != nil {
			return err
		}

		slot, ok := b.incoming[IoSignalId(id)]
		if !ok {
			return common.NewProtocolError("Received data for unknown signal id %v.", id)
		}

		length := slot.signal.Length
		if slot.signal.SizeKind == SizeKindVariable {
			length, err = r.ReadUint32()
			if err != nil {
				return err
			}

			if length > slot.signal.Length {
				return common.NewProtocolError("Signal '%v' allows at most %v elements, received %v.", slot.signal.Name, slot.signal.Length, length)
			}
		}

		byteCount := length * slot.signal.DataType.Size()
		if err := r.Read(slot.data[:byteCount]); err != nil {
			return err
		}

		slot.length = length

		if callbacks.IncomingSignalChangedCallback != nil {
			callbacks.IncomingSignalChangedCallback(simulationTime, slot.signal, length, slot.data[:byteCount])
		}
	}

	return nil
}

// ClearData zeroes all storage and dirty state.
func (b *IoBuffer) ClearData() {
	for _, slot := range b.incoming {
		slot.clearData()
	}

	for _, slot := range b.outgoing {
		slot.clearData()
	}

	b.changedCount = 0
}
