package wire

import (
	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
)

// The send side of every frame kind.  Each function writes exactly one
// frame and flushes it.  Readers mirror the senders; ReceiveHeader
// consumes the frame kind first so callers can dispatch.

func ReceiveHeader(r *channel.Reader) (FrameKind, error) {
	kind, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}

	if kind >= uint8(frameKindCount) {
		return 0, common.NewProtocolError("Received unknown frame kind %v.", kind)
	}

	return FrameKind(kind), nil
}

func SendOk(w *channel.Writer) error {
	if err := w.WriteUint8(uint8(FrameKindOk)); err != nil {
		return err
	}

	return w.EndWrite()
}

func SendError(w *channel.Writer, message string) error {
	if err := w.WriteUint8(uint8(FrameKindError)); err != nil {
		return err
	}

	if err := writeString(w, message); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadError(r *channel.Reader) (string, error) {
	return readString(r)
}

func SendPing(w *channel.Writer) error {
	if err := w.WriteUint8(uint8(FrameKindPing)); err != nil {
		return err
	}

	return w.EndWrite()
}

func SendPingOk(w *channel.Writer, command sim.Command) error {
	if err := w.WriteUint8(uint8(FrameKindPingOk)); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(command)); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadPingOk(r *channel.Reader) (sim.Command, error) {
	command, err := r.ReadUint32()
	return sim.Command(command), err
}

type ConnectInfo struct {
	Version    uint32
	Mode       sim.Mode
	ServerName string
	ClientName string
}

func SendConnect(w *channel.Writer, info ConnectInfo) error {
	if err := w.WriteUint8(uint8(FrameKindConnect)); err != nil {
		return err
	}

	if err := w.WriteUint32(info.Version); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(info.Mode)); err != nil {
		return err
	}

	if err := writeString(w, info.ServerName); err != nil {
		return err
	}

	if err := writeString(w, info.ClientName); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadConnect(r *channel.Reader) (ConnectInfo, error) {
	var info ConnectInfo

	version, err := r.ReadUint32()
	if err != nil {
		return info, err
	}

	mode, err := r.ReadUint32()
	if err != nil {
		return info, err
	}

	serverName, err := readString(r)
	if err != nil {
		return info, err
	}

	clientName, err := readString(r)
	if err != nil {
		return info, err
	}

	info.Version = version
	info.Mode = sim.Mode(mode)
	info.ServerName = serverName
	info.ClientName = clientName
	return info, nil
}

type ConnectOkInfo struct {
	ProtocolVersion uint32
	Mode            sim.Mode
	StepSize        sim.SimulationTime
	SimulationState sim.SimulationState
	IncomingSignals []sim.IoSignal
	OutgoingSignals []sim.IoSignal
	CanControllers  []sim.CanController
	EthControllers  []sim.EthController
	LinControllers  []sim.LinController
}

func SendConnectOk(w *channel.Writer, info ConnectOkInfo) error {
	if err := w.WriteUint8(uint8(FrameKindConnectOk)); err != nil {
		return err
	}

	if err := w.WriteUint32(info.ProtocolVersion); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(info.Mode)); err != nil {
		return err
	}

	if err := w.WriteInt64(int64(info.StepSize)); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(info.SimulationState)); err != nil {
		return err
	}

	if err := writeIoSignals(w, info.IncomingSignals); err != nil {
		return err
	}

	if err := writeIoSignals(w, info.OutgoingSignals); err != nil {
		return err
	}

	if err := writeCanControllers(w, info.CanControllers); err != nil {
		return err
	}

	if err := writeEthControllers(w, info.EthControllers); err != nil {
		return err
	}

	if err := writeLinControllers(w, info.LinControllers); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadConnectOk(r *channel.Reader) (ConnectOkInfo, error) {
	var info ConnectOkInfo

	protocolVersion, err := r.ReadUint32()
	if err != nil {
		return info, err
	}

	mode, err := r.ReadUint32()
	if err != nil {
		return info, err
	}

	stepSize, err := r.ReadInt64()
	if err != nil {
		return info, err
	}

	simulationState, err := r.ReadUint32()
	if err != nil {
		return info, err
	}

	incomingSignals, err := readIoSignals(r)
	if err != nil {
		return info, err
	}

	outgoingSignals, err := readIoSignals(r)
	if err != nil {
		return info, err
	}

	canControllers, err := readCanControllers(r)
	if err != nil {
		return info, err
	}

	ethControllers, err := readEthControllers(r)
	if err != nil {
		return info, err
	}

	linControllers, err := readLinControllers(r)
	if err != nil {
		return info, err
	}

	info.ProtocolVersion = protocolVersion
	info.Mode = sim.Mode(mode)
	info.StepSize = sim.SimulationTime(stepSize)
	info.SimulationState = sim.SimulationState(simulationState)
	info.IncomingSignals = incomingSignals
	info.OutgoingSignals = outgoingSignals
	info.CanControllers = canControllers
	info.EthControllers = ethControllers
	info.LinControllers = linControllers
	return info, nil
}

func sendSimulationTime(w *channel.Writer, kind FrameKind, simulationTime sim.SimulationTime) error {
	if err := w.WriteUint8(uint8(kind)); err != nil {
		return err
	}

	if err := w.WriteInt64(int64(simulationTime)); err != nil {
		return err
	}

	return w.EndWrite()
}

func readSimulationTime(r *channel.Reader) (sim.SimulationTime, error) {
	simulationTime, err := r.ReadInt64()
	return sim.SimulationTime(simulationTime), err
}

func SendStart(w *channel.Writer, simulationTime sim.SimulationTime) error {
	return sendSimulationTime(w, FrameKindStart, simulationTime)
}

func ReadStart(r *channel.Reader) (sim.SimulationTime, error) {
	return readSimulationTime(r)
}

func SendStop(w *channel.Writer, simulationTime sim.SimulationTime) error {
	return sendSimulationTime(w, FrameKindStop, simulationTime)
}

func ReadStop(r *channel.Reader) (sim.SimulationTime, error) {
	return readSimulationTime(r)
}

func SendPause(w *channel.Writer, simulationTime sim.SimulationTime) error {
	return sendSimulationTime(w, FrameKindPause, simulationTime)
}

func ReadPause(r *channel.Reader) (sim.SimulationTime, error) {
	return readSimulationTime(r)
}

func SendContinue(w *channel.Writer, simulationTime sim.SimulationTime) error {
	return sendSimulationTime(w, FrameKindContinue, simulationTime)
}

func ReadContinue(r *channel.Reader) (sim.SimulationTime, error) {
	return readSimulationTime(r)
}

func SendTerminate(w *channel.Writer, simulationTime sim.SimulationTime, reason sim.TerminateReason) error {
	if err := w.WriteUint8(uint8(FrameKindTerminate)); err != nil {
		return err
	}

	if err := w.WriteInt64(int64(simulationTime)); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(reason)); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadTerminate(r *channel.Reader) (sim.SimulationTime, sim.TerminateReason, error) {
	simulationTime, err := r.ReadInt64()
	if err != nil {
		return 0, 0, err
	}

	reason, err := r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}

	return sim.SimulationTime(simulationTime), sim.TerminateReason(reason), nil
}

func SendStep(w *channel.Writer, simulationTime sim.SimulationTime, ioBuffer *sim.IoBuffer, busBuffer *sim.BusBuffer) error {
	if err := w.WriteUint8(uint8(FrameKindStep)); err != nil {
		return err
	}

	if err := w.WriteInt64(int64(simulationTime)); err != nil {
		return err
	}

	if err := ioBuffer.Serialize(w); err != nil {
		return err
	}

	if err := busBuffer.Serialize(w); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadStep(r *channel.Reader, ioBuffer *sim.IoBuffer, busBuffer *sim.BusBuffer, callbacks sim.Callbacks) (sim.SimulationTime, error) {
	simulationTime, err := readSimulationTime(r)
	if err != nil {
		return 0, err
	}

	if err := ioBuffer.Deserialize(r, simulationTime, callbacks); err != nil {
		return 0, err
	}

	if err := busBuffer.Deserialize(r, simulationTime, callbacks); err != nil {
		return 0, err
	}

	return simulationTime, nil
}

func SendStepOk(w *channel.Writer, simulationTime sim.SimulationTime, nextCommand sim.Command, ioBuffer *sim.IoBuffer, busBuffer *sim.BusBuffer) error {
	if err := w.WriteUint8(uint8(FrameKindStepOk)); err != nil {
		return err
	}

	if err := w.WriteInt64(int64(simulationTime)); err != nil {
		return err
	}

	if err := w.WriteUint32(uint32(nextCommand)); err != nil {
		return err
	}

	if err := ioBuffer.Serialize(w); err != nil {
		return err
	}

	if err := busBuffer.Serialize(w); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadStepOk(r *channel.Reader, ioBuffer *sim.IoBuffer, busBuffer *sim.BusBuffer, callbacks sim.Callbacks) (sim.SimulationTime, sim.Command, error) {
	simulationTime, err := readSimulationTime(r)
	if err != nil {
		return 0, 0, err
	}

	nextCommand, err := r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}

	if err := ioBuffer.Deserialize(r, simulationTime, callbacks); err != nil {
		return 0, 0, err
	}

	if err := busBuffer.Deserialize(r, simulationTime, callbacks); err != nil {
		return 0, 0, err
	}

	return simulationTime, sim.Command(nextCommand), nil
}

func SendGetPort(w *channel.Writer, name string) error {
	if err := w.WriteUint8(uint8(FrameKindGetPort)); err != nil {
		return err
	}

	if err := writeString(w, name); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadGetPort(r *channel.Reader) (string, error) {
	return readString(r)
}

func SendGetPortOk(w *channel.Writer, port uint16) error {
	if err := w.WriteUint8(uint8(FrameKindGetPortOk)); err != nil {
		return err
	}

	if err := w.WriteUint16(port); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadGetPortOk(r *channel.Reader) (uint16, error) {
	return r.ReadUint16()
}

func SendSetPort(w *channel.Writer, name string, port uint16) error {
	if err := w.WriteUint8(uint8(FrameKindSetPort)); err != nil {
		return err
	}

	if err := writeString(w, name); err != nil {
		return err
	}

	if err := w.WriteUint16(port); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadSetPort(r *channel.Reader) (string, uint16, error) {
	name, err := readString(r)
	if err != nil {
		return "", 0, err
	}

	port, err := r.ReadUint16()
	if err != nil {
		return "", 0, err
	}

	return name, port, nil
}

func SendUnsetPort(w *channel.Writer, name string) error {
	if err := w.WriteUint8(uint8(FrameKindUnsetPort)); err != nil {
		return err
	}

	if err := writeString(w, name); err != nil {
		return err
	}

	return w.EndWrite()
}

func ReadUnsetPort(r *channel.Reader) (string, error) {
	return readString(r)
}
