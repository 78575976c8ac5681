package sim

import (
	"strings"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
)

// Fixed maximum payload lengths per bus kind.
const (
	CanMessageMaxLength = 64
	EthMessageMaxLength = 1500
	LinMessageMaxLength = 8
)

type CanMessageFlags uint32

const (
	CanMessageFlagLoopback CanMessageFlags = 1 << iota
	CanMessageFlagError
	CanMessageFlagDrop
	CanMessageFlagExtendedId
	CanMessageFlagBitRateSwitch
	CanMessageFlagFlexibleDataRateFormat
)

func (f CanMessageFlags) Matches(flag CanMessageFlags) bool {
	return f&flag > 0
}

func (f CanMessageFlags) String() string {
	return joinFlags([]flagName{
		{uint32(CanMessageFlagLoopback), "Loopback"},
		{uint32(CanMessageFlagError), "Error"},
		{uint32(CanMessageFlagDrop), "Drop"},
		{uint32(CanMessageFlagExtendedId), "ExtendedId"},
		{uint32(CanMessageFlagBitRateSwitch), "BitRateSwitch"},
		{uint32(CanMessageFlagFlexibleDataRateFormat), "FlexibleDataRateFormat"},
	}, uint32(f))
}

type EthMessageFlags uint32

const (
	EthMessageFlagLoopback EthMessageFlags = 1 << iota
	EthMessageFlagError
	EthMessageFlagDrop
)

func (f EthMessageFlags) Matches(flag EthMessageFlags) bool {
	return f&flag > 0
}

func (f EthMessageFlags) String() string {
	return joinFlags([]flagName{
		{uint32(EthMessageFlagLoopback), "Loopback"},
		{uint32(EthMessageFlagError), "Error"},
		{uint32(EthMessageFlagDrop), "Drop"},
	}, uint32(f))
}

type LinMessageFlags uint32

const (
	LinMessageFlagLoopback LinMessageFlags = 1 << iota
	LinMessageFlagError
	LinMessageFlagDrop
	LinMessageFlagHeader
	LinMessageFlagResponse
	LinMessageFlagWakeEvent
	LinMessageFlagSleepEvent
	LinMessageFlagEnhancedChecksum
	LinMessageFlagTransferOnce
	LinMessageFlagParityFailure
	LinMessageFlagCollision
	LinMessageFlagNoResponse
)

func (f LinMessageFlags) Matches(flag LinMessageFlags) bool {
	return f&flag > 0
}

func (f LinMessageFlags) String() string {
	return joinFlags([]flagName{
		{uint32(LinMessageFlagLoopback), "Loopback"},
		{uint32(LinMessageFlagError), "Error"},
		{uint32(LinMessageFlagDrop), "Drop"},
		{uint32(LinMessageFlagHeader), "Header"},
		{uint32(LinMessageFlagResponse), "Response"},
		{uint32(LinMessageFlagWakeEvent), "WakeEvent"},
		{uint32(LinMessageFlagSleepEvent), "SleepEvent"},
		{uint32(LinMessageFlagEnhancedChecksum), "EnhancedChecksum"},
		{uint32(LinMessageFlagTransferOnce), "TransferOnce"},
		{uint32(LinMessageFlagParityFailure), "ParityFailure"},
		{uint32(LinMessageFlagCollision), "Collision"},
		{uint32(LinMessageFlagNoResponse), "NoResponse"},
	}, uint32(f))
}

type flagName struct {
	flag uint32
	name string
}

func joinFlags(names []flagName, flags uint32) string {
	parts := make([]string, 0, len(names))
	for _, entry := range names {
		if flags&entry.flag > 0 {
			parts = append(parts, entry.name)
		}
	}

	return strings.Join(parts, ",")
}

type CanMessage struct {
	ControllerId BusControllerId
	Id           uint32
	Timestamp    SimulationTime
	Flags        CanMessageFlags
	Data         []byte
}

func (m CanMessage) controller() BusControllerId { return m.ControllerId }

func (m CanMessage) encode(w *channel.Writer) error {
	if err := w.WriteUint32(uint32(m.ControllerId)); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Id); err != nil {
		return err
	}
	if err := w.WriteInt64(int64(m.Timestamp)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(m.Flags)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Data))); err != nil {
		return err
	}
	return w.Write(m.Data)
}

func decodeCanMessage(r *channel.Reader) (CanMessage, error) {
	var m CanMessage

	controllerId, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	id, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	timestamp, err := r.ReadInt64()
	if err != nil {
		return m, err
	}

	flags, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	length, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	if length > CanMessageMaxLength {
		return m, common.NewProtocolError("Can message of %v bytes exceeds the maximum of %v bytes.", length, CanMessageMaxLength)
	}

	m.ControllerId = BusControllerId(controllerId)
	m.Id = id
	m.Timestamp = SimulationTime(timestamp)
	m.Flags = CanMessageFlags(flags)
	m.Data = make([]byte, length)
	return m, r.Read(m.Data)
}

type EthMessage struct {
	ControllerId BusControllerId
	Timestamp    SimulationTime
	Flags        EthMessageFlags
	Data         []byte
}

func (m EthMessage) controller() BusControllerId { return m.ControllerId }

func (m EthMessage) encode(w *channel.Writer) error {
	if err := w.WriteUint32(uint32(m.ControllerId)); err != nil {
		return err
	}
	if err := w.WriteInt64(int64(m.Timestamp)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(m.Flags)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Data))); err != nil {
		return err
	}
	return w.Write(m.Data)
}

func decodeEthMessage(r *channel.Reader) (EthMessage, error) {
	var m EthMessage

	controllerId, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	timestamp, err := r.ReadInt64()
	if err != nil {
		return m, err
	}

	flags, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	length, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	if length > EthMessageMaxLength {
		return m, common.NewProtocolError("Eth message of %v bytes exceeds the maximum of %v bytes.", length, EthMessageMaxLength)
	}

	m.ControllerId = BusControllerId(controllerId)
	m.Timestamp = SimulationTime(timestamp)
	m.Flags = EthMessageFlags(flags)
	m.Data = make([]byte, length)
	return m, r.Read(m.Data)
}

type LinMessage struct {
	ControllerId BusControllerId
	Id           uint32
	Timestamp    SimulationTime
	Flags        LinMessageFlags
	Data         []byte
}

func (m LinMessage) controller() BusControllerId { return m.ControllerId }

func (m LinMessage) encode(w *channel.Writer) error {
	if err := w.WriteUint32(uint32(m.ControllerId)); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Id); err != nil {
		return err
	}
	if err := w.WriteInt64(int64(m.Timestamp)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(m.Flags)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Data))); err != nil {
		return err
	}
	return w.Write(m.Data)
}

func decodeLinMessage(r *channel.Reader) (LinMessage, error) {
	var m LinMessage

	controllerId, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	id, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	timestamp, err := r.ReadInt64()
	if err != nil {
		return m, err
	}

	flags, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	length, err := r.ReadUint32()
	if err != nil {
		return m, err
	}

	if length > LinMessageMaxLength {
		return m, common.NewProtocolError("Lin message of %v bytes exceeds the maximum of %v bytes.", length, LinMessageMaxLength)
	}

	m.ControllerId = BusControllerId(controllerId)
	m.Id = id
	m.Timestamp = SimulationTime(timestamp)
	m.Flags = LinMessageFlags(flags)
	m.Data = make([]byte, length)
	return m, r.Read(m.Data)
}
