package internal

import (
	"context"
	"errors"
	"fmt"
	"github.com/inconshreveable/log15"
	"golang.org/x/sys/unix"
	"net"
	"os"
	"strconv"
	"sync"
)

type State int

const (
	Unbound State = iota
	Listening
	Accepting
	Connected
	ShuttingDown
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "UNBOUND"
	case Listening:
		return "LISTENING"
	case Accepting:
		return "ACCEPTING"
	case Connected:
		return "CONNECTED"
	case ShuttingDown:
		return "SHUTTING_DOWN"
	case Closed:
		return "CLOSED"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Acceptor keeps a listening socket open and discards every connection made
// to it.
type Acceptor struct {
	Host    string
	Port    int
	Backlog int
	Logger  log15.Logger

	mu       sync.Mutex
	state    State
	listener *net.TCPListener

	closeOnce sync.Once
	closeErr  error
}

func NewAcceptor(host string, port int, logger log15.Logger) *Acceptor {
	return &Acceptor{Host: host, Port: port, Backlog: 1, Logger: logger}
}

func (a *Acceptor) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Acceptor) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Addr is only valid once Listen has succeeded.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Listen binds to Host:Port and starts listening with the configured backlog.
func (a *Acceptor) Listen() error {
	if s := a.State(); s != Unbound {
		return fmt.Errorf("cannot listen in state %s", s)
	}

	backlog := a.Backlog
	if backlog <= 0 {
		backlog = 1
	}

	l, err := listenTCP(a.Host, a.Port, backlog)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.listener = l
	a.state = Listening
	a.mu.Unlock()
	return nil
}

// Serve accepts connections until ctx is cancelled. Each connection is
// closed as soon as it has been logged. A cancelled ctx is a clean shutdown
// and returns nil.
func (a *Acceptor) Serve(ctx context.Context) error {
	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()
	if l == nil {
		return errors.New("acceptor is not listening")
	}

	stop := context.AfterFunc(ctx, func() { a.closeListener() })
	defer stop()

	for {
		a.setState(Accepting)
		a.Logger.Info("waiting for a connection")

		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				a.shutdown()
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				a.Logger.Warn("error accepting connection", "err", err)
				continue
			}
			return fmt.Errorf("error accepting connection: %w", err)
		}

		a.setState(Connected)
		a.Logger.Info("connection established", "remote", conn.RemoteAddr())
		conn.Close()

		if ctx.Err() != nil {
			a.shutdown()
			return nil
		}
	}
}

func (a *Acceptor) shutdown() {
	a.setState(ShuttingDown)
	a.Logger.Info("shutting down server")
}

// Close closes the listening socket. It is safe to call more than once; the
// socket is only closed the first time.
func (a *Acceptor) Close() error {
	err := a.closeListener()
	a.mu.Lock()
	if a.listener != nil {
		a.state = Closed
	}
	a.mu.Unlock()
	return err
}

func (a *Acceptor) closeListener() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		l := a.listener
		a.mu.Unlock()
		if l != nil {
			a.closeErr = l.Close()
		}
	})
	return a.closeErr
}

// listenTCP creates, binds and listens on a socket directly so the listen
// backlog can be chosen.
func listenTCP(host string, port, backlog int) (*net.TCPListener, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("error resolving TCP address: invalid host %q", host)
	}

	var (
		family = unix.AF_INET6
		sa     unix.Sockaddr
	)
	if ipv4 := ip.To4(); ipv4 != nil {
		family = unix.AF_INET
		sa4 := &unix.SockaddrInet4{Port: port}
		copy(sa4.Addr[:], ipv4)
		sa = sa4
	} else {
		sa6 := &unix.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		sa = sa6
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("error creating socket for %s: %w", addr, err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("error setting SO_REUSEADDR on %s: %w", addr, err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("error binding to %s: %w", addr, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("error listening for TCP connections on %s: %w", addr, err)
	}

	// FileListener dups the descriptor, so the file is closed either way.
	f := os.NewFile(uintptr(fd), "tcp:"+addr)
	defer f.Close()

	l, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("error listening for TCP connections on %s: %w", addr, err)
	}
	return l.(*net.TCPListener), nil
}
