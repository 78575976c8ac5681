package sim_test

import (
	"testing"

	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/cosim"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferBus(t *testing.T, writerBuffer *sim.BusBuffer, readerBuffer *sim.BusBuffer, simulationTime sim.SimulationTime, callbacks sim.Callbacks) {
	sender, receiver := newChannelPair(t)

	require.Nil(t, writerBuffer.Serialize(sender.Writer()))
	require.Nil(t, sender.Writer().EndWrite())
	require.Nil(t, readerBuffer.Deserialize(receiver.Reader(), simulationTime, callbacks))
}

func newBusBufferPair(t *testing.T, controllers ...sim.CanController) (*sim.BusBuffer, *sim.BusBuffer) {
	writerBuffer, err := sim.NewBusBuffer(controllers, nil, nil)
	require.Nil(t, err)

	readerBuffer, err := sim.NewBusBuffer(controllers, nil, nil)
	require.Nil(t, err)

	return writerBuffer, readerBuffer
}

func TestBusBuffer_CreateWithZeroControllers(t *testing.T) {
	buffer, err := sim.NewBusBuffer(nil, nil, nil)
	assert.Nil(t, err)
	assert.NotNil(t, buffer)
}

func TestBusBuffer_DuplicateControllerIdFails(t *testing.T) {
	controller := cosim.CreateCanController()
	other := cosim.CreateCanController()
	other.Id = controller.Id

	_, err := sim.NewBusBuffer([]sim.CanController{controller, other}, nil, nil)
	assert.ErrorIs(t, err, sim.ErrDuplicateControllerId)
}

func TestBusBuffer_TransmitToUnknownControllerFails(t *testing.T) {
	buffer, err := sim.NewBusBuffer(nil, nil, nil)
	require.Nil(t, err)

	err = buffer.TransmitCan(cosim.CreateCanMessage(42))
	assert.ErrorIs(t, err, sim.ErrUnknownController)
}

func TestBusBuffer_ReceiveOnEmptyBufferReturnsEmpty(t *testing.T) {
	buffer, err := sim.NewBusBuffer([]sim.CanController{cosim.CreateCanController()}, nil, nil)
	require.Nil(t, err)

	_, err = buffer.ReceiveCan()
	assert.ErrorIs(t, err, sim.ErrEmpty)
}

func TestBusBuffer_MessagesKeepTransmitOrder(t *testing.T) {
	controller := cosim.CreateCanController()
	writerBuffer, readerBuffer := newBusBufferPair(t, controller)

	sent := make([]sim.CanMessage, 5)
	for i := range sent {
		sent[i] = cosim.CreateCanMessage(controller.Id)
		require.Nil(t, writerBuffer.TransmitCan(sent[i]))
	}

	transferBus(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), sim.Callbacks{})

	for i := range sent {
		received, err := readerBuffer.ReceiveCan()
		require.Nil(t, err)
		assert.Equal(t, sent[i], received)
	}

	_, err := readerBuffer.ReceiveCan()
	assert.ErrorIs(t, err, sim.ErrEmpty)
}

func TestBusBuffer_OrderAcrossControllersFollowsTransmitCalls(t *testing.T) {
	first := cosim.CreateCanController()
	second := cosim.CreateCanController()
	writerBuffer, readerBuffer := newBusBufferPair(t, first, second)

	alternating := []sim.BusControllerId{first.Id, second.Id, first.Id, second.Id}
	for _, id := range alternating {
		require.Nil(t, writerBuffer.TransmitCan(cosim.CreateCanMessage(id)))
	}

	transferBus(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), sim.Callbacks{})

	for _, id := range alternating {
		received, err := readerBuffer.ReceiveCan()
		require.Nil(t, err)
		assert.Equal(t, id, received.ControllerId)
	}
}

func TestBusBuffer_TransmitOverflowDropsAndWarnsOnce(t *testing.T) {
	warnings := 0
	common.SetLogCallback(func(severity common.Severity, message string) {
		if severity == common.SeverityWarning {
			warnings++
		}
	})
	defer common.SetLogCallback(nil)

	controller := cosim.CreateCanController()
	controller.QueueSize = 2
	writerBuffer, readerBuffer := newBusBufferPair(t, controller)

	sent := make([]sim.CanMessage, 3)
	for i := range sent {
		sent[i] = cosim.CreateCanMessage(controller.Id)
		sent[i].Id = uint32(i + 1)
		require.Nil(t, writerBuffer.TransmitCan(sent[i]))
	}

	assert.Equal(t, 1, warnings)

	transferBus(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), sim.Callbacks{})

	received, err := readerBuffer.ReceiveCan()
	require.Nil(t, err)
	assert.Equal(t, uint32(1), received.Id)

	received, err = readerBuffer.ReceiveCan()
	require.Nil(t, err)
	assert.Equal(t, uint32(2), received.Id)

	_, err = readerBuffer.ReceiveCan()
	assert.ErrorIs(t, err, sim.ErrEmpty)

	// Overflowing again in the same run stays silent.
	for i := 0; i < 3; i++ {
		require.Nil(t, writerBuffer.TransmitCan(cosim.CreateCanMessage(controller.Id)))
	}

	assert.Equal(t, 1, warnings)
}

func TestBusBuffer_SerializeDrainsTransmitQueues(t *testing.T) {
	controller := cosim.CreateCanController()
	writerBuffer, readerBuffer := newBusBufferPair(t, controller)

	require.Nil(t, writerBuffer.TransmitCan(cosim.CreateCanMessage(controller.Id)))
	transferBus(t, writerBuffer, readerBuffer, cosim.GenerateSimulationTime(), sim.Callbacks{})

	// A second transfer carries nothing.
	emptyReader, err := sim.NewBusBuffer([]sim.CanController{controller}, nil, nil)
	require.Nil(t, err)

	transferBus(t, writerBuffer, emptyReader, cosim.GenerateSimulationTime(), sim.Callbacks{})
	_, err = emptyReader.ReceiveCan()
	assert.ErrorIs(t, err, sim.ErrEmpty)
}

func TestBusBuffer_CallbacksFireForAllBusKinds(t *testing.T) {
	canController := cosim.CreateCanController()
	ethController := cosim.CreateEthController()
	linController := cosim.CreateLinController()

	writerBuffer, err := sim.NewBusBuffer([]sim.CanController{canController}, []sim.EthController{ethController}, []sim.LinController{linController})
	require.Nil(t, err)

	readerBuffer, err := sim.NewBusBuffer([]sim.CanController{canController}, []sim.EthController{ethController}, []sim.LinController{linController})
	require.Nil(t, err)

	canMessage := cosim.CreateCanMessage(canController.Id)
	ethMessage := cosim.CreateEthMessage(ethController.Id)
	linMessage := cosim.CreateLinMessage(linController.Id)

	require.Nil(t, writerBuffer.TransmitCan(canMessage))
	require.Nil(t, writerBuffer.TransmitEth(ethMessage))
	require.Nil(t, writerBuffer.TransmitLin(linMessage))

	simulationTime := cosim.GenerateSimulationTime()

	canCalls := 0
	ethCalls := 0
	linCalls := 0

	callbacks := sim.Callbacks{
		CanMessageReceivedCallback: func(simTime sim.SimulationTime, controller sim.CanController, message sim.CanMessage) {
			canCalls++
			assert.Equal(t, simulationTime, simTime)
			assert.Equal(t, canController, controller)
			assert.Equal(t, canMessage, message)
		},
		EthMessageReceivedCallback: func(_ sim.SimulationTime, controller sim.EthController, message sim.EthMessage) {
			ethCalls++
			assert.Equal(t, ethController, controller)
			assert.Equal(t, ethMessage, message)
		},
		LinMessageReceivedCallback: func(_ sim.SimulationTime, controller sim.LinController, message sim.LinMessage) {
			linCalls++
			assert.Equal(t, linController, controller)
			assert.Equal(t, linMessage, message)
		},
	}

	transferBus(t, writerBuffer, readerBuffer, simulationTime, callbacks)

	assert.Equal(t, 1, canCalls)
	assert.Equal(t, 1, ethCalls)
	assert.Equal(t, 1, linCalls)
}

func TestBusBuffer_ClearDataResetsQueuesAndWarnings(t *testing.T) {
	controller := cosim.CreateCanController()
	controller.QueueSize = 1

	buffer, err := sim.NewBusBuffer([]sim.CanController{controller}, nil, nil)
	require.Nil(t, err)

	require.Nil(t, buffer.TransmitCan(cosim.CreateCanMessage(controller.Id)))
	buffer.ClearData()

	// Nothing survives the clear.
	sender, receiver := newChannelPair(t)
	require.Nil(t, buffer.Serialize(sender.Writer()))
	require.Nil(t, sender.Writer().EndWrite())

	count, err := receiver.Reader().ReadUint32()
	require.Nil(t, err)
	assert.Equal(t, uint32(0), count)
}
