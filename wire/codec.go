package wire

import (
	"unicode/utf8"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
)

// Sanity budgets applied before allocation.  A well-formed frame never
// comes close to them.
const (
	maxStringLength = 1 << 16
	maxVectorCount  = 1 << 16
)

func writeString(w *channel.Writer, val string) error {
	if err := w.WriteUint32(uint32(len(val))); err != nil {
		return err
	}

	return w.Write([]byte(val))
}

func readString(r *channel.Reader) (string, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return "", err
	}

	if length > maxStringLength {
		return "", common.NewProtocolError("String of %v bytes exceeds the maximum of %v bytes.", length, maxStringLength)
	}

	buf := make([]byte, length)
	if err := r.Read(buf); err != nil {
		return "", err
	}

	if !utf8.Valid(buf) {
		return "", common.NewProtocolError("String is not valid UTF-8.")
	}

	return string(buf), nil
}

func readVectorCount(r *channel.Reader) (uint32, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}

	if count > maxVectorCount {
		return 0, common.NewProtocolError("Vector of %v elements exceeds the maximum of %v.", count, maxVectorCount)
	}

	return count, nil
}

func writeIoSignal(w *channel.Writer, signal sim.IoSignal) error {
	if err := w.WriteUint32(uint32(signal.Id)); err != nil {
		return err
	}
	if err := w.WriteUint32(signal.Length); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(signal.DataType)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(signal.SizeKind)); err != nil {
		return err
	}
	return writeString(w, signal.Name)
}

func readIoSignal(r *channel.Reader) (sim.IoSignal, error) {
	var signal sim.IoSignal

	id, err := r.ReadUint32()
	if err != nil {
		return signal, err
	}

	length, err := r.ReadUint32()
	if err != nil {
		return signal, err
	}

	dataType, err := r.ReadUint32()
	if err != nil {
		return signal, err
	}

	sizeKind, err := r.ReadUint32()
	if err != nil {
		return signal, err
	}

	name, err := readString(r)
	if err != nil {
		return signal, err
	}

	signal.Id = sim.IoSignalId(id)
	signal.Length = length
	signal.DataType = sim.DataType(dataType)
	signal.SizeKind = sim.SizeKind(sizeKind)
	signal.Name = name
	return signal, nil
}

func writeIoSignals(w *channel.Writer, signals []sim.IoSignal) error {
	if err := w.WriteUint32(uint32(len(signals))); err != nil {
		return err
	}

	for _, signal := range signals {
		if err := writeIoSignal(w, signal); err != nil {
			return err
		}
	}

	return nil
}

func readIoSignals(r *channel.Reader) ([]sim.IoSignal, error) {
	count, err := readVectorCount(r)
	if err != nil {
		return nil, err
	}

	signals := make([]sim.IoSignal, count)
	for i := range signals {
		if signals[i], err = readIoSignal(r); err != nil {
			return nil, err
		}
	}

	return signals, nil
}

func writeCanController(w *channel.Writer, controller sim.CanController) error {
	if err := w.WriteUint32(uint32(controller.Id)); err != nil {
		return err
	}
	if err := w.WriteUint32(controller.QueueSize); err != nil {
		return err
	}
	if err := w.WriteUint64(controller.BitsPerSecond); err != nil {
		return err
	}
	if err := w.WriteUint64(controller.FlexibleDataRateBitsPerSecond); err != nil {
		return err
	}
	if err := writeString(w, controller.Name); err != nil {
		return err
	}
	if err := writeString(w, controller.ChannelName); err != nil {
		return err
	}
	return writeString(w, controller.ClusterName)
}

func readCanController(r *channel.Reader) (sim.CanController, error) {
	var controller sim.CanController

	id, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	queueSize, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	bitsPerSecond, err := r.ReadUint64()
	if err != nil {
		return controller, err
	}

	flexibleDataRateBitsPerSecond, err := r.ReadUint64()
	if err != nil {
		return controller, err
	}

	name, err := readString(r)
	if err != nil {
		return controller, err
	}

	channelName, err := readString(r)
	if err != nil {
		return controller, err
	}

	clusterName, err := readString(r)
	if err != nil {
		return controller, err
	}

	controller.Id = sim.BusControllerId(id)
	controller.QueueSize = queueSize
	controller.BitsPerSecond = bitsPerSecond
	controller.FlexibleDataRateBitsPerSecond = flexibleDataRateBitsPerSecond
	controller.Name = name
	controller.ChannelName = channelName
	controller.ClusterName = clusterName
	return controller, nil
}

func writeEthController(w *channel.Writer, controller sim.EthController) error {
	if err := w.WriteUint32(uint32(controller.Id)); err != nil {
		return err
	}
	if err := w.WriteUint32(controller.QueueSize); err != nil {
		return err
	}
	if err := w.WriteUint64(controller.BitsPerSecond); err != nil {
		return err
	}
	if err := w.Write(controller.MacAddress[:]); err != nil {
		return err
	}
	if err := writeString(w, controller.Name); err != nil {
		return err
	}
	if err := writeString(w, controller.ChannelName); err != nil {
		return err
	}
	return writeString(w, controller.ClusterName)
}

func readEthController(r *channel.Reader) (sim.EthController, error) {
	var controller sim.EthController

	id, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	queueSize, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	bitsPerSecond, err := r.ReadUint64()
	if err != nil {
		return controller, err
	}

	if err := r.Read(controller.MacAddress[:]); err != nil {
		return controller, err
	}

	name, err := readString(r)
	if err != nil {
		return controller, err
	}

	channelName, err := readString(r)
	if err != nil {
		return controller, err
	}

	clusterName, err := readString(r)
	if err != nil {
		return controller, err
	}

	controller.Id = sim.BusControllerId(id)
	controller.QueueSize = queueSize
	controller.BitsPerSecond = bitsPerSecond
	controller.Name = name
	controller.ChannelName = channelName
	controller.ClusterName = clusterName
	return controller, nil
}

func writeLinController(w *channel.Writer, controller sim.LinController) error {
	if err := w.WriteUint32(uint32(controller.Id)); err != nil {
		return err
	}
	if err := w.WriteUint32(controller.QueueSize); err != nil {
		return err
	}
	if err := w.WriteUint64(controller.BitsPerSecond); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(controller.Type)); err != nil {
		return err
	}
	if err := writeString(w, controller.Name); err != nil {
		return err
	}
	if err := writeString(w, controller.ChannelName); err != nil {
		return err
	}
	return writeString(w, controller.ClusterName)
}

func readLinController(r *channel.Reader) (sim.LinController, error) {
	var controller sim.LinController

	id, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	queueSize, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	bitsPerSecond, err := r.ReadUint64()
	if err != nil {
		return controller, err
	}

	linType, err := r.ReadUint32()
	if err != nil {
		return controller, err
	}

	name, err := readString(r)
	if err != nil {
		return controller, err
	}

	channelName, err := readString(r)
	if err != nil {
		return controller, err
	}

	clusterName, err := readString(r)
	if err != nil {
		return controller, err
	}

	controller.Id = sim.BusControllerId(id)
	controller.QueueSize = queueSize
	controller.BitsPerSecond = bitsPerSecond
	controller.Type = sim.LinControllerType(linType)
	controller.Name = name
	controller.ChannelName = channelName
	controller.ClusterName = clusterName
	return controller, nil
}

func writeCanControllers(w *channel.Writer, controllers []sim.CanController) error {
	if err := w.WriteUint32(uint32(len(controllers))); err != nil {
		return err
	}

	for _, controller := range controllers {
		if err := writeCanController(w, controller); err != nil {
			return err
		}
	}

	return nil
}

func readCanControllers(r *channel.Reader) ([]sim.CanController, error) {
	count, err := readVectorCount(r)
	if err != nil {
		return nil, err
	}

	controllers := make([]sim.CanController, count)
	for i := range controllers {
		if controllers[i], err = readCanController(r); err != nil {
			return nil, err
		}
	}

	return controllers, nil
}

func writeEthControllers(w *channel.Writer, controllers []sim.EthController) error {
	if err := w.WriteUint32(uint32(len(controllers))); err != nil {
		return err
	}

	for _, controller := range controllers {
		if err := writeEthController(w, controller); err != nil {
			return err
		}
	}

	return nil
}

func readEthControllers(r *channel.Reader) ([]sim.EthController, error) {
	count, err := readVectorCount(r)
	if err != nil {
		return nil, err
	}

	controllers := make([]sim.EthController, count)
	for i := range controllers {
		if controllers[i], err = readEthController(r); err != nil {
			return nil, err
		}
	}

	return controllers, nil
}

func writeLinControllers(w *channel.Writer, controllers []sim.LinController) error {
	if err := w.WriteUint32(uint32(len(controllers))); err != nil {
		return err
	}

	for _, controller := range controllers {
		if err := writeLinController(w, controller); err != nil {
			return err
		}
	}

	return nil
}

func readLinControllers(r *channel.Reader) ([]sim.LinController, error) {
	count, err := readVectorCount(r)
	if err != nil {
		return nil, err
	}

	controllers := make([]sim.LinController, count)
	for i := range controllers {
		if controllers[i], err = readLinController(r); err != nil {
			return nil, err
		}
	}

	return controllers, nil
}
