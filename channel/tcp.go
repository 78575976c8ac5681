package channel

import (
	"fmt"
	"net"
	"time"

	"github.com/jsmidtbosch/veos-cosim-client/common"
	"github.com/pkg/errors"
)

// Listens on the given tcp port.  Port 0 picks an ephemeral port.  When
// remote access is disabled the listener binds the loopback interface
// only.
func ListenTcp(port uint16, enableRemoteAccess bool) (*TcpListener, error) {
	host := "127.0.0.1"
	if enableRemoteAccess {
		host = ""
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%v:%v", host, port))
	if err != nil {
		return nil, common.NewSystemError("listen tcp", err)
	}

	return &TcpListener{listener: listener}, nil
}

// Connects to ip:port within the given timeout.  An empty ip means
// loopback.  A non-zero localPort pins the local end of the connection.
// Returns (nil, nil) if the timeout elapses before the peer accepts.
func TryConnectTcp(ip string, port uint16, localPort uint16, timeout time.Duration) (*Channel, error) {
	if ip == "" {
		ip = "127.0.0.1"
	}

	dialer := net.Dialer{Timeout: timeout}
	if localPort != 0 {
		dialer.LocalAddr = &net.TCPAddr{Port: int(localPort)}
	}

	conn, err := dialer.Dial("tcp", net.JoinHostPort(ip, fmt.Sprintf("%v", port)))
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}

		return nil, errors.Wrapf(common.NewSystemError("connect tcp", err), "Could not connect to %v:%v", ip, port)
	}

	enableNoDelay(conn)
	return NewChannel(conn), nil
}

type TcpListener struct {
	listener net.Listener
}

func (l *TcpListener) LocalPort() uint16 {
	return uint16(l.listener.Addr().(*net.TCPAddr).Port)
}

func (l *TcpListener) Close() error {
	return l.listener.Close()
}

// TryAccept waits for at most the given timeout for an inbound
// connection.  Returns (nil, nil) on expiry.
func (l *TcpListener) TryAccept(timeout time.Duration) (*Channel, error) {
	deadline, ok := l.listener.(interface{ SetDeadline(time.Time) error })
	if ok {
		if err := deadline.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, common.NewSystemError("accept tcp", err)
		}
	}

	conn, err := l.listener.Accept()
	if err != nil {
		if isTimeout(err) {
			return nil, nil
		}

		return nil, ErrListenerClosed
	}

	enableNoDelay(conn)
	return NewChannel(conn), nil
}

// Accept blocks until a connection arrives or the control closes,
// polling the control every AcceptPollInterval.
func (l *TcpListener) Accept(control common.Control) (*Channel, error) {
	return acceptLoop(l, control)
}

func acceptLoop(l Listener, control common.Control) (*Channel, error) {
	for {
		if control.IsClosed() {
			return nil, ErrListenerClosed
		}

		channel, err := l.TryAccept(AcceptPollInterval)
		if err != nil {
			return nil, err
		}

		if channel != nil {
			return channel, nil
		}
	}
}

func enableNoDelay(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
}

func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}
