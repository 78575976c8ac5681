package cosim

import (
	"sync"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/concurrent"
	"github.com/jsmidtbosch/veos-cosim-client/mapper"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
	"github.com/jsmidtbosch/veos-cosim-client/wire"
	"github.com/pkg/errors"
)

const connectTimeout = 1 * time.Second

// The negotiated outcome of a connect handshake.
type ConnectResult struct {
	Mode            sim.Mode
	StepSize        sim.SimulationTime
	SimulationState sim.SimulationState
	IncomingSignals []sim.IoSignal
	OutgoingSignals []sim.IoSignal
	CanControllers  []sim.CanController
	EthControllers  []sim.EthController
	LinControllers  []sim.LinController
}

// Client is the external side of a co-simulation connection.  The
// buffers are used from the simulation stepping thread only; commands
// may be enqueued from any thread.
type Client struct {
	ch        *channel.Channel
	ioBuffer  *sim.IoBuffer
	busBuffer *sim.BusBuffer
	result    ConnectResult

	lock        sync.Mutex
	nextCommand sim.Command

	currentTime sim.SimulationTime
	terminated  bool
}

// Connect dials the server, resolving its port through the port mapper
// when the config leaves it zero, and performs the connect handshake.
func Connect(config ConnectConfig) (*Client, error) {
	port := config.RemotePort
	if port == 0 {
		resolved, err := mapper.GetPort(config.RemoteIpAddress, config.ServerName)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not resolve port for server '%v'", config.ServerName)
		}

		port = resolved
	}

	ch, err := channel.TryConnectTcp(config.RemoteIpAddress, port, config.LocalPort, connectTimeout)
	if err != nil {
		return nil, err
	}

	if ch == nil {
		return nil, concurrent.NewTimeoutError(connectTimeout, "cosim:connect")
	}

	client, err := newClient(ch, config)
	if err != nil {
		_ = ch.Disconnect()
		return nil, err
	}

	common.LogTrace("%v connected to '%v' via %v channel.", CoSimTypeClient, config.ServerName, ConnectionKindRemote)
	return client, nil
}

// ConnectLocal reaches a server on the same host by name, without
// touching the tcp stack.
func ConnectLocal(config ConnectConfig) (*Client, error) {
	ch, err := channel.TryConnectUds(config.ServerName, connectTimeout)
	if err != nil {
		return nil, err
	}

	if ch == nil {
		return nil, concurrent.NewTimeoutError(connectTimeout, "cosim:connect:local")
	}

	client, err := newClient(ch, config)
	if err != nil {
		_ = ch.Disconnect()
		return nil, err
	}

	common.LogTrace("%v connected to '%v' via %v channel.", CoSimTypeClient, config.ServerName, ConnectionKindLocal)
	return client, nil
}

func newClient(ch *channel.Channel, config ConnectConfig) (*Client, error) {
	err := wire.SendConnect(ch.Writer(), wire.ConnectInfo{
		Version:    wire.ProtocolVersion,
		ServerName: config.ServerName,
		ClientName: config.ClientName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Could not send connect frame")
	}

	kind, err := wire.ReceiveHeader(ch.Reader())
	if err != nil {
		return nil, err
	}

	switch kind {
	case wire.FrameKindConnectOk:
	case wire.FrameKindError:
		message, err := wire.ReadError(ch.Reader())
		if err != nil {
			return nil, errors.Wrap(err, "Could not read error frame")
		}

		return nil, errors.New(message)
	default:
		return nil, common.NewProtocolError("Received unexpected frame %v.", kind)
	}

	info, err := wire.ReadConnectOk(ch.Reader())
	if err != nil {
		return nil, errors.Wrap(err, "Could not read connect ok frame")
	}

	ioBuffer, err := sim.NewIoBuffer(info.IncomingSignals, info.OutgoingSignals)
	if err != nil {
		return nil, err
	}

	busBuffer, err := sim.NewBusBuffer(info.CanControllers, info.EthControllers, info.LinControllers)
	if err != nil {
		return nil, err
	}

	return &Client{
		ch:        ch,
		ioBuffer:  ioBuffer,
		busBuffer: busBuffer,
		result: ConnectResult{
			Mode:            info.Mode,
			StepSize:        info.StepSize,
			SimulationState: info.SimulationState,
			IncomingSignals: info.IncomingSignals,
			OutgoingSignals: info.OutgoingSignals,
			CanControllers:  info.CanControllers,
			EthControllers:  info.EthControllers,
			LinControllers:  info.LinControllers,
		},
	}, nil
}

func (c *Client) Result() ConnectResult {
	return c.result
}

func (c *Client) IoBuffer() *sim.IoBuffer {
	return c.ioBuffer
}

func (c *Client) BusBuffer() *sim.BusBuffer {
	return c.busBuffer
}

func (c *Client) Disconnect() error {
	return c.ch.Disconnect()
}

// EnqueueCommand requests a command to ride on the next StepOk or
// PingOk.  The last enqueued command wins.
func (c *Client) EnqueueCommand(command sim.Command) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.nextCommand = command
}

func (c *Client) takeCommand() sim.Command {
	c.lock.Lock()
	defer c.lock.Unlock()

	command := c.nextCommand
	c.nextCommand = sim.CommandNone
	return command
}

// RunCallbackBasedCoSimulation services frames until the server
// terminates the simulation or the connection drops.  A step-loop error
// fires the terminated callback with reason Error exactly once and
// tears the connection down.
func (c *Client) RunCallbackBasedCoSimulation(callbacks sim.Callbacks) error {
	err := c.run(callbacks)
	if err != nil {
		if !c.terminated {
			c.terminated = true
			if callbacks.SimulationTerminatedCallback != nil {
				callbacks.SimulationTerminatedCallback(c.currentTime, sim.TerminateReasonError)
			}
		}

		_ = c.ch.Disconnect()
	}

	return err
}

func (c *Client) run(callbacks sim.Callbacks) error {
	for {
		kind, err := wire.ReceiveHeader(c.ch.Reader())
		if err != nil {
			return err
		}

		switch kind {
		case wire.FrameKindStep:
			if err := c.handleStep(callbacks); err != nil {
				return err
			}

		case wire.FrameKindStart:
			simulationTime, err := wire.ReadStart(c.ch.Reader())
			if err != nil {
				return err
			}

			c.currentTime = simulationTime
			if callbacks.SimulationStartedCallback != nil {
				callbacks.SimulationStartedCallback(simulationTime)
			}

		case wire.FrameKindStop:
			simulationTime, err := wire.ReadStop(c.ch.Reader())
			if err != nil {
				return err
			}

			c.currentTime = simulationTime
			if callbacks.SimulationStoppedCallback != nil {
				callbacks.SimulationStoppedCallback(simulationTime)
			}

			c.ioBuffer.ClearData()
			c.busBuffer.ClearData()

		case wire.FrameKindPause:
			simulationTime, err := wire.ReadPause(c.ch.Reader())
			if err != nil {
				return err
			}

			c.currentTime = simulationTime
			if callbacks.SimulationPausedCallback != nil {
				callbacks.SimulationPausedCallback(simulationTime)
			}

		case wire.FrameKindContinue:
			simulationTime, err := wire.ReadContinue(c.ch.Reader())
			if err != nil {
				return err
			}

			c.currentTime = simulationTime
			if callbacks.SimulationContinuedCallback != nil {
				callbacks.SimulationContinuedCallback(simulationTime)
			}

		case wire.FrameKindTerminate:
			simulationTime, reason, err := wire.ReadTerminate(c.ch.Reader())
			if err != nil {
				return err
			}

			c.currentTime = simulationTime
			c.terminated = true
			if callbacks.SimulationTerminatedCallback != nil {
				callbacks.SimulationTerminatedCallback(simulationTime, reason)
			}

			return nil

		case wire.FrameKindPing:
			if err := wire.SendPingOk(c.ch.Writer(), c.takeCommand()); err != nil {
				return err
			}

		default:
			return common.NewProtocolError("Received unexpected frame %v.", kind)
		}
	}
}

func (c *Client) handleStep(callbacks sim.Callbacks) error {
	simulationTime, err := wire.ReadStep(c.ch.Reader(), c.ioBuffer, c.busBuffer, callbacks)
	if err != nil {
		return err
	}

	c.currentTime = simulationTime

	if callbacks.SimulationBeginStepCallback != nil {
		callbacks.SimulationBeginStepCallback(simulationTime)
	}

	if callbacks.SimulationEndStepCallback != nil {
		callbacks.SimulationEndStepCallback(simulationTime)
	}

	return wire.SendStepOk(c.ch.Writer(), simulationTime, c.takeCommand(), c.ioBuffer, c.busBuffer)
}
