package cosim

import (
	"sync"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/mapper"
	"github.com/jsmidtbosch/veos-cosim-client/sim"
	"github.com/jsmidtbosch/veos-cosim-client/wire"
	"github.com/pkg/errors"
)

// ServerConfig describes the simulation a server offers.  Signal
// directions are given from the client's point of view, matching the
// connect handshake; the server mirrors them internally.
type ServerConfig struct {
	ServerName string
	StepSize   sim.SimulationTime

	IncomingSignals []sim.IoSignal
	OutgoingSignals []sim.IoSignal
	CanControllers  []sim.CanController
	EthControllers  []sim.EthController
	LinControllers  []sim.LinController

	LocalPort            uint16
	EnableRemoteAccess   bool
	RegisterAtPortMapper bool
	EnableLocalChannel   bool
}

// Server is the simulation host side.  It owns the listening endpoints,
// accepts a single client, and initiates every step.
type Server struct {
	config   ServerConfig
	listener *channel.TcpListener
	local    *channel.UdsListener

	ch         *channel.Channel
	clientName string
	ioBuffer   *sim.IoBuffer
	busBuffer  *sim.BusBuffer

	lock        sync.Mutex
	nextCommand sim.Command

	currentTime sim.SimulationTime
}

func NewServer(config ServerConfig) (*Server, error) {
	listener, err := channel.ListenTcp(config.LocalPort, config.EnableRemoteAccess)
	if err != nil {
		return nil, err
	}

	s := &Server{config: config, listener: listener}

	if config.EnableLocalChannel {
		local, err := channel.ListenUds(config.ServerName)
		if err != nil {
			_ = listener.Close()
			return nil, err
		}

		s.local = local
	}

	if config.RegisterAtPortMapper {
		if err := mapper.SetPort(config.ServerName, listener.LocalPort()); err != nil {
			_ = s.closeListeners()
			return nil, errors.Wrapf(err, "Could not register server '%v' at port mapper", config.ServerName)
		}
	}

	return s, nil
}

func (s *Server) LocalPort() uint16 {
	return s.listener.LocalPort()
}

func (s *Server) ClientName() string {
	return s.clientName
}

func (s *Server) IoBuffer() *sim.IoBuffer {
	return s.ioBuffer
}

func (s *Server) BusBuffer() *sim.BusBuffer {
	return s.busBuffer
}

func (s *Server) closeListeners() error {
	err := s.listener.Close()
	if s.local != nil {
		err = common.Or(err, s.local.Close())
	}

	return err
}

func (s *Server) Close() error {
	if s.config.RegisterAtPortMapper {
		if err := mapper.UnsetPort(s.config.ServerName); err != nil {
			common.LogWarning("Could not unregister server '%v' from port mapper: %v", s.config.ServerName, err)
		}
	}

	err := s.closeListeners()
	if s.ch != nil {
		err = common.Or(err, s.ch.Disconnect())
	}

	return err
}

// TryAccept waits for at most the given timeout for a client and runs
// the connect handshake.  Returns false when the timeout elapses
// without a connection attempt.
func (s *Server) TryAccept(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		slice := remaining
		if slice > channel.AcceptPollInterval {
			slice = channel.AcceptPollInterval
		}

		if s.local != nil {
			slice = slice / 2
		}

		ch, err := s.listener.TryAccept(slice)
		if err != nil {
			return false, err
		}

		if ch == nil && s.local != nil {
			ch, err = s.local.TryAccept(slice)
			if err != nil {
				return false, err
			}
		}

		if ch == nil {
			continue
		}

		if err := s.handshake(ch); err != nil {
			_ = ch.Disconnect()
			return false, err
		}

		s.ch = ch
		return true, nil
	}
}

func (s *Server) handshake(ch *channel.Channel) error {
	kind, err := wire.ReceiveHeader(ch.Reader())
	if err != nil {
		return err
	}

	if kind != wire.FrameKindConnect {
		return common.NewProtocolError("Received unexpected frame %v.", kind)
	}

	info, err := wire.ReadConnect(ch.Reader())
	if err != nil {
		return errors.Wrap(err, "Could not read connect frame")
	}

	if info.Version != wire.ProtocolVersion {
		message := errors.Errorf("Protocol version %v is not supported", info.Version)
		_ = wire.SendError(ch.Writer(), message.Error())
		return message
	}

	if info.ServerName != "" && info.ServerName != s.config.ServerName {
		message := errors.Errorf("Client tried to connect to server '%v'", info.ServerName)
		_ = wire.SendError(ch.Writer(), message.Error())
		return message
	}

	// The server reads what the client writes and vice versa.
	ioBuffer, err := sim.NewIoBuffer(s.config.OutgoingSignals, s.config.IncomingSignals)
	if err != nil {
		_ = wire.SendError(ch.Writer(), err.Error())
		return err
	}

	busBuffer, err := sim.NewBusBuffer(s.config.CanControllers, s.config.EthControllers, s.config.LinControllers)
	if err != nil {
		_ = wire.SendError(ch.Writer(), err.Error())
		return err
	}

	err = wire.SendConnectOk(ch.Writer(), wire.ConnectOkInfo{
		ProtocolVersion: wire.ProtocolVersion,
		StepSize:        s.config.StepSize,
		IncomingSignals: s.config.IncomingSignals,
		OutgoingSignals: s.config.OutgoingSignals,
		CanControllers:  s.config.CanControllers,
		EthControllers:  s.config.EthControllers,
		LinControllers:  s.config.LinControllers,
	})
	if err != nil {
		return errors.Wrap(err, "Could not send connect ok frame")
	}

	s.clientName = info.ClientName
	s.ioBuffer = ioBuffer
	s.busBuffer = busBuffer
	s.currentTime = 0

	common.LogTrace("%v accepted connection from '%v'.", CoSimTypeServer, info.ClientName)
	return nil
}

// EnqueueCommand records a pending command.  The last enqueued command
// wins.  No Server method issues or consumes it: Step, Ping and the
// control methods send only the frame they are called for.
func (s *Server) EnqueueCommand(command sim.Command) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nextCommand = command
}

func (s *Server) takeCommand() sim.Command {
	s.lock.Lock()
	defer s.lock.Unlock()

	command := s.nextCommand
	s.nextCommand = sim.CommandNone
	return command
}

func (s *Server) Start(simulationTime sim.SimulationTime) error {
	s.currentTime = simulationTime
	return wire.SendStart(s.ch.Writer(), simulationTime)
}

func (s *Server) Stop(simulationTime sim.SimulationTime) error {
	s.currentTime = simulationTime
	if err := wire.SendStop(s.ch.Writer(), simulationTime); err != nil {
		return err
	}

	s.ioBuffer.ClearData()
	s.busBuffer.ClearData()
	return nil
}

func (s *Server) Pause(simulationTime sim.SimulationTime) error {
	s.currentTime = simulationTime
	return wire.SendPause(s.ch.Writer(), simulationTime)
}

func (s *Server) Continue(simulationTime sim.SimulationTime) error {
	s.currentTime = simulationTime
	return wire.SendContinue(s.ch.Writer(), simulationTime)
}

func (s *Server) Terminate(simulationTime sim.SimulationTime, reason sim.TerminateReason) error {
	s.currentTime = simulationTime
	return wire.SendTerminate(s.ch.Writer(), simulationTime, reason)
}

// Ping checks liveness between steps and picks up a command the client
// may have enqueued.
func (s *Server) Ping() (sim.Command, error) {
	if err := wire.SendPing(s.ch.Writer()); err != nil {
		return sim.CommandNone, err
	}

	kind, err := wire.ReceiveHeader(s.ch.Reader())
	if err != nil {
		return sim.CommandNone, err
	}

	if kind != wire.FrameKindPingOk {
		return sim.CommandNone, common.NewProtocolError("Received unexpected frame %v.", kind)
	}

	return wire.ReadPingOk(s.ch.Reader())
}

// Step advances simulated time by one tick: it ships the outgoing
// snapshot, waits for the client's StepOk, applies the returned data,
// and reports the command the client asked for.
func (s *Server) Step(simulationTime sim.SimulationTime, callbacks sim.Callbacks) (sim.Command, error) {
	s.currentTime = simulationTime

	if err := wire.SendStep(s.ch.Writer(), simulationTime, s.ioBuffer, s.busBuffer); err != nil {
		return sim.CommandNone, err
	}

	kind, err := wire.ReceiveHeader(s.ch.Reader())
	if err != nil {
		return sim.CommandNone, err
	}

	if kind != wire.FrameKindStepOk {
		return sim.CommandNone, common.NewProtocolError("Received unexpected frame %v.", kind)
	}

	_, command, err := wire.ReadStepOk(s.ch.Reader(), s.ioBuffer, s.busBuffer, callbacks)
	if err != nil {
		return sim.CommandNone, err
	}

	return command, nil
}
