package sim

import (
	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/pkg/errors"
)

type controllerInfo interface {
	key() BusControllerId
	queue() uint32
	label() string
}

type busMessage interface {
	controller() BusControllerId
}

type busExtension[C controllerInfo, M busMessage] struct {
	info     C
	receive  *RingBuffer[M]
	transmit *RingBuffer[M]

	receiveWarningSent  bool
	transmitWarningSent bool
}

func (e *busExtension[C, M]) clearData() {
	e.receive.ClearData()
	e.transmit.ClearData()
	e.receiveWarningSent = false
	e.transmitWarningSent = false
}

// One bus kind worth of controllers and queues.  The order rings keep
// the cross-controller FIFO: they record which controller's queue holds
// the next message.
type busQueue[C controllerInfo, M busMessage] struct {
	kind          string
	extensions    map[BusControllerId]*busExtension[C, M]
	transmitOrder *RingBuffer[BusControllerId]
	receiveOrder  *RingBuffer[BusControllerId]
	totalCapacity int
}

func newBusQueue[C controllerInfo, M busMessage](kind string, controllers []C) (*busQueue[C, M], error) {
	q := &busQueue[C, M]{
		kind:       kind,
		extensions: make(map[BusControllerId]*busExtension[C, M], len(controllers)),
	}

	for _, controller := range controllers {
		if _, ok := q.extensions[controller.key()]; ok {
			return nil, errors.Wrapf(ErrDuplicateControllerId, "%v controller id %v is used twice", kind, controller.key())
		}

		queueSize := controller.queue()
		if queueSize == 0 {
			queueSize = DefaultQueueSize
		}

		q.extensions[controller.key()] = &busExtension[C, M]{
			info:     controller,
			receive:  NewRingBuffer[M](int(queueSize)),
			transmit: NewRingBuffer[M](int(queueSize)),
		}

		q.totalCapacity += int(queueSize)
	}

	q.transmitOrder = NewRingBuffer[BusControllerId](q.totalCapacity)
	q.receiveOrder = NewRingBuffer[BusControllerId](q.totalCapacity)
	return q, nil
}

// transmit queues the message.  A full queue drops the message and
// warns once per controller per simulation run.
func (q *busQueue[C, M]) transmit(message M) error {
	extension, ok := q.extensions[message.controller()]
	if !ok {
		return errors.Wrapf(ErrUnknownController, "No %v controller with id %v", q.kind, message.controller())
	}

	if extension.transmit.IsFull() {
		if !extension.transmitWarningSent {
			common.LogWarning("Transmit buffer for %v controller '%v' is full. Messages are dropped.", q.kind, extension.info.label())
			extension.transmitWarningSent = true
		}

		return nil
	}

	extension.transmit.Push(message)
	q.transmitOrder.Push(message.controller())
	return nil
}

// receive pops the next pending message across all controllers of this
// bus kind, in insertion order.
func (q *busQueue[C, M]) receive() (M, error) {
	var zero M
	if q.receiveOrder.IsEmpty() {
		return zero, ErrEmpty
	}

	extension := q.extensions[q.receiveOrder.Pop()]
	return extension.receive.Pop(), nil
}

func (q *busQueue[C, M]) serialize(w *channel.Writer, encode func(*channel.Writer, M) error) error {
	if err := w.WriteUint32(uint32(q.transmitOrder.Count())); err != nil {
		return err
	}

	for !q.transmitOrder.IsEmpty() {
		extension := q.extensions[q.transmitOrder.Pop()]
		if err := encode(w, extension.transmit.Pop()); err != nil {
			return err
		}
	}

	return nil
}

// deserialize decodes this bus kind's messages into the receive queues
// and returns the delivered messages in wire order.  Overflowed
// messages are dropped with a one-shot warning per controller.
func (q *busQueue[C, M]) deserialize(r *channel.Reader, decode func(*channel.Reader) (M, error)) ([]M, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	if count > uint32(q.totalCapacity) {
		return nil, common.NewProtocolError("%v message count %v exceeds the total queue capacity %v.", q.kind, count, q.totalCapacity)
	}

	delivered := make([]M, 0, count)
	for i := uint32(0); i < count; i++ {
		message, err := decode(r)
		if err != nil {
			return nil, err
		}

		extension, ok := q.extensions[message.controller()]
		if !ok {
			return nil, common.NewProtocolError("Received %v message for unknown controller id %v.", q.kind, message.controller())
		}

		if extension.receive.IsFull() {
			if !extension.receiveWarningSent {
				common.LogWarning("Receive buffer for %v controller '%v' is full. Messages are dropped.", q.kind, extension.info.label())
				extension.receiveWarningSent = true
			}

			continue
		}

		extension.receive.Push(message)
		q.receiveOrder.Push(message.controller())
		delivered = append(delivered, message)
	}

	return delivered, nil
}

func (q *busQueue[C, M]) clearData() {
	for _, extension := range q.extensions {
		extension.clearData()
	}

	q.transmitOrder.ClearData()
	q.receiveOrder.ClearData()
}

// BusBuffer queues outgoing bus messages per controller and delivers
// received ones, with bounded memory per controller.
type BusBuffer struct {
	can *busQueue[CanController, CanMessage]
	eth *busQueue[EthController, EthMessage]
	lin *busQueue[LinController, LinMessage]
}

func NewBusBuffer(canControllers []CanController, ethControllers []EthController, linControllers []LinController) (*BusBuffer, error) {
	can, err := newBusQueue[CanController, CanMessage]("Can", canControllers)
	if err != nil {
		return nil, err
	}

	eth, err := newBusQueue[EthController, EthMessage]("Eth", ethControllers)
	if err != nil {
		return nil, err
	}

	lin, err := newBusQueue[LinController, LinMessage]("Lin", linControllers)
	if err != nil {
		return nil, err
	}

	return &BusBuffer{can: can, eth: eth, lin: lin}, nil
}

func (b *BusBuffer) TransmitCan(message CanMessage) error {
	return b.can.transmit(message)
}

func (b *BusBuffer) TransmitEth(message EthMessage) error {
	return b.eth.transmit(message)
}

func (b *BusBuffer) TransmitLin(message LinMessage) error {
	return b.lin.transmit(message)
}

func (b *BusBuffer) ReceiveCan() (CanMessage, error) {
	return b.can.receive()
}

func (b *BusBuffer) ReceiveEth() (EthMessage, error) {
	return b.eth.receive()
}

func (b *BusBuffer) ReceiveLin() (LinMessage, error) {
	return b.lin.receive()
}

// Serialize drains every controller's transmit queue, bus kinds in
// fixed order.  All transmit queues are empty afterwards.
func (b *BusBuffer) Serialize(w *channel.Writer) error {
	encodeCan := func(w *channel.Writer, m CanMessage) error { return m.encode(w) }
	encodeEth := func(w *channel.Writer, m EthMessage) error { return m.encode(w) }
	encodeLin := func(w *channel.Writer, m LinMessage) error { return m.encode(w) }

	if err := b.can.serialize(w, encodeCan); err != nil {
		return err
	}

	if err := b.eth.serialize(w, encodeEth); err != nil {
		return err
	}

	return b.lin.serialize(w, encodeLin)
}

// Deserialize mirrors Serialize.  Once all bus kinds are decoded, the
// delivered messages are handed to the callbacks in FIFO order.
func (b *BusBuffer) Deserialize(r *channel.Reader, simulationTime SimulationTime, callbacks Callbacks) error {
	canMessages, err := b.can.deserialize(r, decodeCanMessage)
	if err != nil {
		return err
	}

	ethMessages, err := b.eth.deserialize(r, decodeEthMessage)
	if err != nil {
		return err
	}

	linMessages, err := b.lin.deserialize(r, decodeLinMessage)
	if err != nil {
		return err
	}

	if callbacks.CanMessageReceivedCallback != nil {
		for _, message := range canMessages {
			callbacks.CanMessageReceivedCallback(simulationTime, b.can.extensions[message.ControllerId].info, message)
		}
	}

	if callbacks.EthMessageReceivedCallback != nil {
		for _, message := range ethMessages {
			callbacks.EthMessageReceivedCallback(simulationTime, b.eth.extensions[message.ControllerId].info, message)
		}
	}

	if callbacks.LinMessageReceivedCallback != nil {
		for _, message := range linMessages {
			callbacks.LinMessageReceivedCallback(simulationTime, b.lin.extensions[message.ControllerId].info, message)
		}
	}

	return nil
}

// ClearData empties all queues and resets counters and warning flags.
func (b *BusBuffer) ClearData() {
	b.can.clearData()
	b.eth.clearData()
	b.lin.clearData()
}
