package wire

import "fmt"

// The protocol version both sides must agree on during the connect
// handshake.
const ProtocolVersion uint32 = 1

// Frame kinds on the wire.  Values are stable; new kinds append.
type FrameKind uint8

const (
	FrameKindOk FrameKind = iota
	FrameKindError
	FrameKindPing
	FrameKindPingOk
	FrameKindConnect
	FrameKindConnectOk
	FrameKindStart
	FrameKindStop
	FrameKindTerminate
	FrameKindPause
	FrameKindContinue
	FrameKindStep
	FrameKindStepOk
	FrameKindGetPort
	FrameKindGetPortOk
	FrameKindSetPort
	FrameKindUnsetPort

	frameKindCount
)

func (k FrameKind) String() string {
	switch k {
	case FrameKindOk:
		return "Ok"
	case FrameKindError:
		return "Error"
	case FrameKindPing:
		return "Ping"
	case FrameKindPingOk:
		return "PingOk"
	case FrameKindConnect:
		return "Connect"
	case FrameKindConnectOk:
		return "ConnectOk"
	case FrameKindStart:
		return "Start"
	case FrameKindStop:
		return "Stop"
	case FrameKindTerminate:
		return "Terminate"
	case FrameKindPause:
		return "Pause"
	case FrameKindContinue:
		return "Continue"
	case FrameKindStep:
		return "Step"
	case FrameKindStepOk:
		return "StepOk"
	case FrameKindGetPort:
		return "GetPort"
	case FrameKindGetPortOk:
		return "GetPortOk"
	case FrameKindSetPort:
		return "SetPort"
	case FrameKindUnsetPort:
		return "UnsetPort"
	}

	return fmt.Sprintf("FrameKind(%v)", uint8(k))
}
