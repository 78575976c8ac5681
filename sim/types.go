package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmpty                  = errors.New("SIM:ERR:EMPTY")
	ErrUnknownSignal          = errors.New("SIM:ERR:UNKNOWN:SIGNAL")
	ErrUnknownController      = errors.New("SIM:ERR:UNKNOWN:CONTROLLER")
	ErrInvalidLength          = errors.New("SIM:ERR:INVALID:LENGTH")
	ErrVariableLengthExceeded = errors.New("SIM:ERR:VARIABLE:LENGTH:EXCEEDED")
	ErrDuplicateSignalId      = errors.New("SIM:ERR:DUPLICATE:SIGNAL:ID")
	ErrDuplicateControllerId  = errors.New("SIM:ERR:DUPLICATE:CONTROLLER:ID")
)

// Simulated time in nanoseconds.
type SimulationTime int64

func (t SimulationTime) Seconds() float64 {
	return float64(t) / 1e9
}

type IoSignalId uint32

type BusControllerId uint32

type Command uint32

const (
	CommandNone Command = iota
	CommandStep
	CommandStart
	CommandStop
	CommandTerminate
	CommandPause
	CommandContinue
	CommandTerminateFinished
	CommandPing
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "None"
	case CommandStep:
		return "Step"
	case CommandStart:
		return "Start"
	case CommandStop:
		return "Stop"
	case CommandTerminate:
		return "Terminate"
	case CommandPause:
		return "Pause"
	case CommandContinue:
		return "Continue"
	case CommandTerminateFinished:
		return "TerminateFinished"
	case CommandPing:
		return "Ping"
	}

	return fmt.Sprintf("Command(%v)", uint32(c))
}

type TerminateReason uint32

const (
	TerminateReasonFinished TerminateReason = iota
	TerminateReasonError
)

func (t TerminateReason) String() string {
	switch t {
	case TerminateReasonFinished:
		return "Finished"
	case TerminateReasonError:
		return "Error"
	}

	return fmt.Sprintf("TerminateReason(%v)", uint32(t))
}

type ConnectionState uint32

const (
	ConnectionStateConnected ConnectionState = iota
	ConnectionStateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateConnected:
		return "Connected"
	case ConnectionStateDisconnected:
		return "Disconnected"
	}

	return fmt.Sprintf("ConnectionState(%v)", uint32(s))
}

// Reserved; the protocol carries them but assigns no semantics yet.
type SimulationState uint32

type Mode uint32

type DataType uint32

const (
	DataTypeBool DataType = iota + 1
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeUInt8
	DataTypeUInt16
	DataTypeUInt32
	DataTypeUInt64
	DataTypeFloat32
	DataTypeFloat64
)

// Size returns the element width in bytes, or 0 for an invalid type.
func (d DataType) Size() uint32 {
	switch d {
	case DataTypeBool, DataTypeInt8, DataTypeUInt8:
		return 1
	case DataTypeInt16, DataTypeUInt16:
		return 2
	case DataTypeInt32, DataTypeUInt32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeUInt64, DataTypeFloat64:
		return 8
	}

	return 0
}

func (d DataType) String() string {
	switch d {
	case DataTypeBool:
		return "Bool"
	case DataTypeInt8:
		return "Int8"
	case DataTypeInt16:
		return "Int16"
	case DataTypeInt32:
		return "Int32"
	case DataTypeInt64:
		return "Int64"
	case DataTypeUInt8:
		return "UInt8"
	case DataTypeUInt16:
		return "UInt16"
	case DataTypeUInt32:
		return "UInt32"
	case DataTypeUInt64:
		return "UInt64"
	case DataTypeFloat32:
		return "Float32"
	case DataTypeFloat64:
		return "Float64"
	}

	return fmt.Sprintf("DataType(%v)", uint32(d))
}

type SizeKind uint32

const (
	SizeKindFixed SizeKind = iota
	SizeKindVariable
)

func (s SizeKind) String() string {
	switch s {
	case SizeKindFixed:
		return "Fixed"
	case SizeKindVariable:
		return "Variable"
	}

	return fmt.Sprintf("SizeKind(%v)", uint32(s))
}

type LinControllerType uint32

const (
	LinControllerTypeResponder LinControllerType = iota + 1
	LinControllerTypeCommander
)

func (t LinControllerType) String() string {
	switch t {
	case LinControllerTypeResponder:
		return "Responder"
	case LinControllerTypeCommander:
		return "Commander"
	}

	return fmt.Sprintf("LinControllerType(%v)", uint32(t))
}

type IoSignal struct {
	Id       IoSignalId
	Length   uint32
	DataType DataType
	SizeKind SizeKind
	Name     string
}

// Buffer size in bytes.
func (s IoSignal) sizeInBytes() uint32 {
	return s.Length * s.DataType.Size()
}

const EthAddressLength = 6

// Queue sizes default to this when a descriptor leaves them unset.
const DefaultQueueSize = 100

type CanController struct {
	Id                            BusControllerId
	QueueSize                     uint32
	BitsPerSecond                 uint64
	FlexibleDataRateBitsPerSecond uint64
	Name                          string
	ChannelName                   string
	ClusterName                   string
}

func (c CanController) key() BusControllerId { return c.Id }
func (c CanController) queue() uint32        { return c.QueueSize }
func (c CanController) label() string        { return c.Name }

type EthController struct {
	Id            BusControllerId
	QueueSize     uint32
	BitsPerSecond uint64
	MacAddress    [EthAddressLength]byte
	Name          string
	ChannelName   string
	ClusterName   string
}

func (c EthController) key() BusControllerId { return c.Id }
func (c EthController) queue() uint32        { return c.QueueSize }
func (c EthController) label() string        { return c.Name }

type LinController struct {
	Id            BusControllerId
	QueueSize     uint32
	BitsPerSecond uint64
	Type          LinControllerType
	Name          string
	ChannelName   string
	ClusterName   string
}

func (c LinController) key() BusControllerId { return c.Id }
func (c LinController) queue() uint32        { return c.QueueSize }
func (c LinController) label() string        { return c.Name }

// All callbacks are optional; unset ones are skipped.
type Callbacks struct {
	SimulationStartedCallback    func(SimulationTime)
	SimulationStoppedCallback    func(SimulationTime)
	SimulationTerminatedCallback func(SimulationTime, TerminateReason)
	SimulationPausedCallback     func(SimulationTime)
	SimulationContinuedCallback  func(SimulationTime)
	SimulationBeginStepCallback  func(SimulationTime)
	SimulationEndStepCallback    func(SimulationTime)

	IncomingSignalChangedCallback func(SimulationTime, IoSignal, uint32, []byte)
	CanMessageReceivedCallback    func(SimulationTime, CanController, CanMessage)
	EthMessageReceivedCallback    func(SimulationTime, EthController, EthMessage)
	LinMessageReceivedCallback    func(SimulationTime, LinController, LinMessage)
}
