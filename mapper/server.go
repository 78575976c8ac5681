package mapper

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/concurrent"
	"github.com/jsmidtbosch/veos-cosim-client/wire"
	"github.com/pkg/errors"
)

// The port mapper serves the name -> port registry on the well known
// port.  Each client connection carries exactly one request.  All state
// is confined to the server routine; external callers interact through
// request frames only.
type Server struct {
	listener *channel.TcpListener
	control  common.Control
	done     concurrent.Wait
	logger   common.Logger

	verbose bool
	ports   *treemap.Map
}

func NewServer(enableRemoteAccess bool) (*Server, error) {
	return NewServerWithConfig(enableRemoteAccess, common.NewEmptyConfig())
}

func NewServerWithConfig(enableRemoteAccess bool, config common.Config) (*Server, error) {
	listener, err := channel.ListenTcp(common.PortMapperPort(), enableRemoteAccess)
	if err != nil {
		return nil, errors.Wrap(err, "Could not start port mapper server")
	}

	s := &Server{
		listener: listener,
		control:  common.NewControl(nil),
		done:     concurrent.NewWait(),
		logger:   common.NewStandardLogger(config),
		verbose:  common.IsPortMapperServerVerbose(),
		ports:    treemap.NewWithStringComparator(),
	}

	s.done.Inc()
	go s.run()
	return s, nil
}

func (s *Server) Close() error {
	err := s.control.Close()
	<-s.done.Wait()
	return common.Or(err, s.listener.Close())
}

func (s *Server) run() {
	defer s.done.Dec()

	for !s.control.IsClosed() {
		ch, err := s.listener.TryAccept(channel.AcceptPollInterval)
		if err != nil {
			if !s.control.IsClosed() {
				s.logger.Error("The following error occurred in port mapper thread: %v", err)
			}

			return
		}

		if ch == nil {
			continue
		}

		if err := s.handleClient(ch); err != nil {
			s.logger.Trace("Port mapper client disconnected unexpectedly: %v", err)
		}

		_ = ch.Disconnect()
	}
}

func (s *Server) handleClient(ch *channel.Channel) error {
	kind, err := wire.ReceiveHeader(ch.Reader())
	if err != nil {
		return err
	}

	switch kind {
	case wire.FrameKindGetPort:
		return s.handleGetPort(ch)
	case wire.FrameKindSetPort:
		return s.handleSetPort(ch)
	case wire.FrameKindUnsetPort:
		return s.handleUnsetPort(ch)
	default:
		return errors.Errorf("Received unexpected frame %v", kind)
	}
}

func (s *Server) handleGetPort(ch *channel.Channel) error {
	name, err := wire.ReadGetPort(ch.Reader())
	if err != nil {
		return errors.Wrap(err, "Could not read get port frame")
	}

	if s.verbose {
		s.logger.Trace("Get '%v'", name)
	}

	port, ok := s.ports.Get(name)
	if !ok {
		return wire.SendError(ch.Writer(), "Could not find port for server '"+name+"'.")
	}

	return wire.SendGetPortOk(ch.Writer(), port.(uint16))
}

func (s *Server) handleSetPort(ch *channel.Channel) error {
	name, port, err := wire.ReadSetPort(ch.Reader())
	if err != nil {
		return errors.Wrap(err, "Could not read set port frame")
	}

	if s.verbose {
		s.logger.Trace("Set '%v':%v", name, port)
	}

	s.ports.Put(name, port)

	if s.verbose {
		s.dumpEntries()
	}

	return wire.SendOk(ch.Writer())
}

func (s *Server) handleUnsetPort(ch *channel.Channel) error {
	name, err := wire.ReadUnsetPort(ch.Reader())
	if err != nil {
		return errors.Wrap(err, "Could not read unset port frame")
	}

	if s.verbose {
		s.logger.Trace("Unset '%v'", name)
	}

	s.ports.Remove(name)

	if s.verbose {
		s.dumpEntries()
	}

	return wire.SendOk(ch.Writer())
}

func (s *Server) dumpEntries() {
	if s.ports.Empty() {
		s.logger.Trace("No port mapper ports.")
		return
	}

	s.logger.Trace("Port mapper ports:")
	s.ports.Each(func(name interface{}, port interface{}) {
		s.logger.Trace("  '%v': %v", name, port)
	})
}
