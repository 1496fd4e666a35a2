package transport

import (
	"context"
	"errors"
	"io"
	"net"

	"ringkeep/internal/logger"
)

// TCPHandler processes one inbound length-prefixed frame read from a TCP
// connection, along with the remote endpoint it arrived from.
type TCPHandler func(frame []byte, source string)

// TCPListener accepts inbound TCP connections (MemberInit and any bulk
// file-layer payload, §4.4/§6) and feeds each one's frames to a handler.
type TCPListener struct {
	ln  net.Listener
	lgr logger.Logger
}

// ListenTCP binds a TCP listener at bindAddr (host:port).
func ListenTCP(bindAddr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln, lgr: logger.NopLogger{}}, nil
}

// WithLogger attaches a logger for accept-loop diagnostics.
func (l *TCPListener) WithLogger(lgr logger.Logger) *TCPListener {
	l.lgr = lgr.Named("transport.tcp")
	return l
}

// LocalAddr returns the bound local address.
func (l *TCPListener) LocalAddr() string { return l.ln.Addr().String() }

// AcceptLoop accepts connections until ctx is canceled. Each connection is
// read to completion in its own goroutine, one length-prefixed frame after
// another until the peer closes it, since the sender's Pool reuses one
// connection for every frame it sends to the same address.
func (l *TCPListener) AcceptLoop(ctx context.Context, handler TCPHandler) {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				l.lgr.Warn("tcp accept error", logger.F("err", err.Error()))
				return
			}
		}
		go func(c net.Conn) {
			defer c.Close()
			source := c.RemoteAddr().String()
			for {
				frame, err := ReadTCPFrame(c)
				if err != nil {
					if !errors.Is(err, io.EOF) {
						l.lgr.Warn("tcp read error", logger.F("source", source), logger.F("err", err.Error()))
					}
					return
				}
				handler(frame, source)
			}
		}(conn)
	}
}

// Close stops accepting new connections.
func (l *TCPListener) Close() error { return l.ln.Close() }
