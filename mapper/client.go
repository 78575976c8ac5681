package mapper

import (
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/channel"
	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/jsmidtbosch/veos-cosim-client/wire"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("MAPPER:ERR:NOT:FOUND")

const clientTimeout = 1 * time.Second

func connect(ip string) (*channel.Channel, error) {
	ch, err := channel.TryConnectTcp(ip, common.PortMapperPort(), 0, clientTimeout)
	if err != nil {
		return nil, err
	}

	if ch == nil {
		return nil, errors.New("Could not connect to port mapper")
	}

	return ch, nil
}

// GetPort resolves the tcp port a server registered under its name on
// the given host.
func GetPort(ip string, serverName string) (uint16, error) {
	if common.IsPortMapperClientVerbose() {
		common.LogTrace("GetPort(ipAddress: '%v', serverName: '%v')", ip, serverName)
	}

	ch, err := connect(ip)
	if err != nil {
		return 0, err
	}
	defer func() { _ = ch.Disconnect() }()

	if err := wire.SendGetPort(ch.Writer(), serverName); err != nil {
		return 0, errors.Wrap(err, "Could not send get port frame")
	}

	kind, err := wire.ReceiveHeader(ch.Reader())
	if err != nil {
		return 0, err
	}

	switch kind {
	case wire.FrameKindGetPortOk:
		return wire.ReadGetPortOk(ch.Reader())
	case wire.FrameKindError:
		message, err := wire.ReadError(ch.Reader())
		if err != nil {
			return 0, errors.Wrap(err, "Could not read error frame")
		}

		return 0, errors.Wrap(ErrNotFound, message)
	default:
		return 0, common.NewProtocolError("Received unexpected frame %v.", kind)
	}
}

// SetPort registers or overwrites a name binding on the local host.
func SetPort(name string, port uint16) error {
	if common.IsPortMapperClientVerbose() {
		common.LogTrace("SetPort(name: '%v', port: %v)", name, port)
	}

	ch, err := connect("")
	if err != nil {
		return err
	}
	defer func() { _ = ch.Disconnect() }()

	if err := wire.SendSetPort(ch.Writer(), name, port); err != nil {
		return errors.Wrap(err, "Could not send set port frame")
	}

	return readOk(ch)
}

// UnsetPort removes a name binding.  Removing an absent binding is not
// an error.
func UnsetPort(name string) error {
	if common.IsPortMapperClientVerbose() {
		common.LogTrace("UnsetPort(name: '%v')", name)
	}

	ch, err := connect("")
	if err != nil {
		return err
	}
	defer func() { _ = ch.Disconnect() }()

	if err := wire.SendUnsetPort(ch.Writer(), name); err != nil {
		return errors.Wrap(err, "Could not send unset port frame")
	}

	return readOk(ch)
}

func readOk(ch *channel.Channel) error {
	kind, err := wire.ReceiveHeader(ch.Reader())
	if err != nil {
		return err
	}

	switch kind {
	case wire.FrameKindOk:
		return nil
	case wire.FrameKindError:
		message, err := wire.ReadError(ch.Reader())
		if err != nil {
			return errors.Wrap(err, "Could not read error frame")
		}

		return errors.New(message)
	default:
		return common.NewProtocolError("Received unexpected frame %v.", kind)
	}
}
