package cosim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/jsmidtbosch/veos-cosim-client/sim"
)

// Deterministic test data generation.  The generator is process-wide
// and seeded on first use, so test runs are reproducible.  It is not
// consulted by the production step loop.

var (
	generatorOnce sync.Once
	generator     *rand.Rand
)

func rng() *rand.Rand {
	generatorOnce.Do(func() {
		generator = rand.New(rand.NewSource(42))
	})

	return generator
}

func Random(min int32, max int32) int32 {
	return min + rng().Int31n(max+1-min)
}

func FillWithRandom(data []byte) {
	for i := range data {
		data[i] = GenerateU8()
	}
}

func GenerateU8() uint8 {
	return uint8(Random(0, 255))
}

func GenerateU16() uint16 {
	return uint16(Random(0, 65535))
}

func GenerateU32() uint32 {
	return uint32(Random(0, 123456789))
}

func GenerateU64() uint64 {
	return uint64(GenerateU32())<<32 + uint64(GenerateU32())
}

func GenerateI64() int64 {
	return int64(GenerateU64())
}

func GenerateString(prefix string) string {
	return fmt.Sprintf("%v%v", prefix, GenerateU32())
}

func GenerateSimulationTime() sim.SimulationTime {
	return sim.SimulationTime(GenerateI64())
}

func GenerateDataType() sim.DataType {
	return sim.DataType(Random(int32(sim.DataTypeBool), int32(sim.DataTypeFloat64)))
}

func GenerateSizeKind() sim.SizeKind {
	return sim.SizeKind(Random(int32(sim.SizeKindFixed), int32(sim.SizeKindVariable)))
}

func CreateSignal(dataType sim.DataType, sizeKind sim.SizeKind) sim.IoSignal {
	return sim.IoSignal{
		Id:       sim.IoSignalId(GenerateU32()),
		Length:   uint32(Random(1, 10)),
		DataType: dataType,
		SizeKind: sizeKind,
		Name:     GenerateString("Signal名前\U0001F600"),
	}
}

func CreateSignals(count int) []sim.IoSignal {
	signals := make([]sim.IoSignal, count)
	for i := range signals {
		signals[i] = CreateSignal(GenerateDataType(), GenerateSizeKind())
	}

	return signals
}

// GenerateIoData returns a random value of the signal's full size.
func GenerateIoData(signal sim.IoSignal) []byte {
	data := CreateZeroedIoData(signal)
	FillWithRandom(data)
	return data
}

func CreateZeroedIoData(signal sim.IoSignal) []byte {
	return make([]byte, signal.Length*signal.DataType.Size())
}

func CreateCanController() sim.CanController {
	return sim.CanController{
		Id:                            sim.BusControllerId(GenerateU32()),
		QueueSize:                     sim.DefaultQueueSize,
		BitsPerSecond:                 GenerateU64(),
		FlexibleDataRateBitsPerSecond: GenerateU64(),
		Name:                          GenerateString("CanController名前\U0001F600"),
		ChannelName:                   GenerateString("CanChannel名前\U0001F600"),
		ClusterName:                   GenerateString("CanCluster名前\U0001F600"),
	}
}

func CreateCanControllers(count int) []sim.CanController {
	controllers := make([]sim.CanController, count)
	for i := range controllers {
		controllers[i] = CreateCanController()
	}

	return controllers
}

func CreateEthController() sim.EthController {
	controller := sim.EthController{
		Id:            sim.BusControllerId(GenerateU32()),
		QueueSize:     sim.DefaultQueueSize,
		BitsPerSecond: GenerateU64(),
		Name:          GenerateString("EthController名前\U0001F600"),
		ChannelName:   GenerateString("EthChannel名前\U0001F600"),
		ClusterName:   GenerateString("EthCluster名前\U0001F600"),
	}

	FillWithRandom(controller.MacAddress[:])
	return controller
}

func CreateEthControllers(count int) []sim.EthController {
	controllers := make([]sim.EthController, count)
	for i := range controllers {
		controllers[i] = CreateEthController()
	}

	return controllers
}

func CreateLinController() sim.LinController {
	return sim.LinController{
		Id:            sim.BusControllerId(GenerateU32()),
		QueueSize:     sim.DefaultQueueSize,
		BitsPerSecond: GenerateU64(),
		Type:          sim.LinControllerType(Random(int32(sim.LinControllerTypeResponder), int32(sim.LinControllerTypeCommander))),
		Name:          GenerateString("LinController名前\U0001F600"),
		ChannelName:   GenerateString("LinChannel名前\U0001F600"),
		ClusterName:   GenerateString("LinCluster名前\U0001F600"),
	}
}

func CreateLinControllers(count int) []sim.LinController {
	controllers := make([]sim.LinController, count)
	for i := range controllers {
		controllers[i] = CreateLinController()
	}

	return controllers
}

func CreateCanMessage(controllerId sim.BusControllerId) sim.CanMessage {
	data := make([]byte, Random(1, sim.CanMessageMaxLength))
	FillWithRandom(data)

	return sim.CanMessage{
		ControllerId: controllerId,
		Id:           GenerateU32(),
		Timestamp:    GenerateSimulationTime(),
		Flags:        sim.CanMessageFlagFlexibleDataRateFormat,
		Data:         data,
	}
}

func CreateEthMessage(controllerId sim.BusControllerId) sim.EthMessage {
	data := make([]byte, Random(1, sim.EthMessageMaxLength))
	FillWithRandom(data)

	return sim.EthMessage{
		ControllerId: controllerId,
		Timestamp:    GenerateSimulationTime(),
		Data:         data,
	}
}

func CreateLinMessage(controllerId sim.BusControllerId) sim.LinMessage {
	data := make([]byte, Random(1, sim.LinMessageMaxLength))
	FillWithRandom(data)

	return sim.LinMessage{
		ControllerId: controllerId,
		Id:           GenerateU32(),
		Timestamp:    GenerateSimulationTime(),
		Data:         data,
	}
}
