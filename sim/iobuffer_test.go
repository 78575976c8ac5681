package sim_test

import (
	"testing"

	"github.com/jsmidtbosch/veos-cosim-client/cosim"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transfer(t *testing.T, writerBuffer *sim.IoBuffer, readerBuffer *sim.IoBuffer, simulationTime sim.SimulationTime, callbacks sim.Callbacks) {
	sender, receiver := newChannelPair(t)

	require.Nil(t, writerBuffer.Serialize(sender.Writer()))
	require.Nil(t, sender.Writer().EndWrite())
	require.Nil(t, readerBuffer.Deserialize(receiver.Reader(), simulationTime, callbacks))
}

func TestIoBuffer_CreateWithZeroSignals(t *testing.T) {
	buffer, err := sim.NewIoBuffer(nil, nil)
	assert.Nil(t, err)
	assert.NotNil(t, buffer)
}

func TestIoBuffer_DuplicateSignalIdFails(t *testing.T) {
	signal := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindFixed)
	other := cosim.CreateSignal(sim.DataTypeUInt32, sim.SizeKindVariable)
	other.Id = signal.Id

	_, err := sim.NewIoBuffer([]sim.IoSignal{signal}, []sim.IoSignal{other})
	assert.NotNil(t, err)
	assert.ErrorIs(t, err, sim.ErrDuplicateSignalId)
}

func TestIoBuffer_WriteThenReadReturnsTheValue(t *testing.T) {
	signal := cosim.CreateSignal(sim.DataTypeUInt16, sim.SizeKindFixed)
	buffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{signal})
	require.Nil(t, err)

	data := cosim.GenerateIoData(signal)
	require.Nil(t, buffer.Write(signal.Id, signal.Length, data))

	length, stored, err := buffer.Read(signal.Id)
	assert.Nil(t, err)
	assert.Equal(t, signal.Length, length)
	assert.Equal(t, data, stored)
}

func TestIoBuffer_ReadUnknownSignalFails(t *testing.T) {
	buffer, err := sim.NewIoBuffer(nil, nil)
	require.Nil(t, err)

	_, _, err = buffer.Read(42)
	assert.ErrorIs(t, err, sim.ErrUnknownSignal)
}

func TestIoBuffer_FixedSignalRejectsOtherLengths(t *testing.T) {
	signal := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindFixed)
	signal.Length = 4

	buffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{signal})
	require.Nil(t, err)

	err = buffer.Write(signal.Id, 3, make([]byte, 3))
	assert.ErrorIs(t, err, sim.ErrInvalidLength)
}

func TestIoBuffer_VariableSignalRejectsExcessLength(t *testing.T) {
	signal := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindVariable)
	signal.Length = 5

	buffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{signal})
	require.Nil(t, err)

	err = buffer.Write(signal.Id, 6, make([]byte, 6))
	assert.ErrorIs(t, err, sim.ErrVariableLengthExceeded)
}

func TestIoBuffer_VariableSignalKeepsWrittenLength(t *testing.T) {
	signal := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindVariable)
	signal.Length = 5

	writerBuffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{signal})
	require.Nil(t, err)

	readerBuffer, err := sim.NewIoBuffer([]sim.IoSignal{signal}, nil)
	require.Nil(t, err)

	require.Nil(t, writerBuffer.Write(signal.Id, 2, []byte{0xAA, 0xBB}))
	transfer(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), sim.Callbacks{})

	length, data, err := readerBuffer.Read(signal.Id)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), length)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
}

func TestIoBuffer_ChangedSignalFiresCallbackOnce(t *testing.T) {
	signal := sim.IoSignal{
		Id:       7,
		Length:   2,
		DataType: sim.DataTypeUInt16,
		SizeKind: sim.SizeKindFixed,
		Name:     "Signal名前",
	}

	writerBuffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{signal})
	require.Nil(t, err)

	readerBuffer, err := sim.NewIoBuffer([]sim.IoSignal{signal}, nil)
	require.Nil(t, err)

	value := []byte{0x11, 0x22, 0x33, 0x44}
	require.Nil(t, writerBuffer.Write(signal.Id, 2, value))

	simulationTime := sim.SimulationTime(1000)

	calls := 0
	callbacks := sim.Callbacks{
		IncomingSignalChangedCallback: func(simTime sim.SimulationTime, changed sim.IoSignal, length uint32, data []byte) {
			calls++
			assert.Equal(t, simulationTime, simTime)
			assert.Equal(t, signal.Id, changed.Id)
			assert.Equal(t, uint32(2), length)
			assert.Equal(t, value, data)
		},
	}

	transfer(t, writerBuffer, readerBuffer, simulationTime, callbacks)
	assert.Equal(t, 1, calls)

	// The identical bytes again: nothing goes on the wire, no callback.
	require.Nil(t, writerBuffer.Write(signal.Id, 2, value))
	transfer(t, writerBuffer, readerBuffer, simulationTime, callbacks)
	assert.Equal(t, 1, calls)
}

func TestIoBuffer_CallbacksFireInWireOrder(t *testing.T) {
	first := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindFixed)
	second := cosim.CreateSignal(sim.DataTypeUInt32, sim.SizeKindFixed)
	signals := []sim.IoSignal{first, second}

	writerBuffer, err := sim.NewIoBuffer(nil, signals)
	require.Nil(t, err)

	readerBuffer, err := sim.NewIoBuffer(signals, nil)
	require.Nil(t, err)

	require.Nil(t, writerBuffer.Write(first.Id, first.Length, cosim.GenerateIoData(first)))
	require.Nil(t, writerBuffer.Write(second.Id, second.Length, cosim.GenerateIoData(second)))

	var order []sim.IoSignalId
	callbacks := sim.Callbacks{
		IncomingSignalChangedCallback: func(_ sim.SimulationTime, changed sim.IoSignal, _ uint32, _ []byte) {
			order = append(order, changed.Id)
		},
	}

	transfer(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), callbacks)
	assert.Equal(t, []sim.IoSignalId{first.Id, second.Id}, order)
}

func TestIoBuffer_ClearDataResetsSlots(t *testing.T) {
	fixed := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindFixed)
	variable := cosim.CreateSignal(sim.DataTypeUInt8, sim.SizeKindVariable)

	buffer, err := sim.NewIoBuffer(nil, []sim.IoSignal{fixed, variable})
	require.Nil(t, err)

	require.Nil(t, buffer.Write(fixed.Id, fixed.Length, cosim.GenerateIoData(fixed)))
	require.Nil(t, buffer.Write(variable.Id, 1, []byte{0xFF}))

	buffer.ClearData()

	length, data, err := buffer.Read(fixed.Id)
	assert.Nil(t, err)
	assert.Equal(t, fixed.Length, length)
	assert.Equal(t, cosim.CreateZeroedIoData(fixed), data)

	length, data, err = buffer.Read(variable.Id)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0), length)
	assert.Empty(t, data)
}
