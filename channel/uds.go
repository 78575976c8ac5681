package channel

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/common"
)

const udsNamePrefix = "dSPACE.VEOS.CoSim."

// On Linux the abstract socket namespace is used, so no filesystem entry
// is ever created.  Elsewhere the socket lives in the temp directory and
// is removed when the listener closes.
func udsAddress(name string) string {
	if runtime.GOOS == "linux" {
		return "@" + udsNamePrefix + name
	}

	return filepath.Join(os.TempDir(), udsNamePrefix+name)
}

func ListenUds(name string) (*UdsListener, error) {
	address := udsAddress(name)
	if runtime.GOOS != "linux" {
		_ = os.Remove(address)
	}

	listener, err := net.Listen("unix", address)
	if err != nil {
		return nil, common.NewSystemError("listen uds", err)
	}

	return &UdsListener{listener: listener, address: address}, nil
}

// Returns (nil, nil) if no server is listening yet or the timeout
// elapses first.
func TryConnectUds(name string, timeout time.Duration) (*Channel, error) {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.Dial("unix", udsAddress(name))
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}

		return nil, common.NewSystemError("connect uds", err)
	}

	return NewChannel(conn), nil
}

type UdsListener struct {
	listener net.Listener
	address  string
}

func (l *UdsListener) Close() error {
	err := l.listener.Close()
	if runtime.GOOS != "linux" {
		_ = os.Remove(l.address)
	}

	return err
}

func (l *UdsListener) TryAccept(timeout time.Duration) (*Channel, error) {
	deadline, ok := l.listener.(interface{ SetDeadline(time.Time) error })
	if ok {
		if err := deadline.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, common.NewSystemError("accept uds", err)
		}
	}

	conn, err := l.listener.Accept()
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}

		return nil, ErrListenerClosed
	}

	return NewChannel(conn), nil
}

func (l *UdsListener) Accept(control common.Control) (*Channel, error) {
	return acceptLoop(l, control)
}
