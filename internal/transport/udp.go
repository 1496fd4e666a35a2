package transport

import (
	"context"
	"errors"
	"net"

	"ringkeep/internal/logger"
)

// UDPHandler processes one received datagram: the frame bytes and the
// sender's "ip:port" endpoint string.
type UDPHandler func(frame []byte, source string)

// UDPSocket wraps the single shared net.UDPConn used for all membership
// control traffic (§4.5, §6).
type UDPSocket struct {
	conn *net.UDPConn
	lgr  logger.Logger
}

// ListenUDP binds a UDP socket at bindAddr (host:port).
func ListenUDP(bindAddr string) (*UDPSocket, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPSocket{conn: conn, lgr: logger.NopLogger{}}, nil
}

// WithLogger attaches a logger for receive-loop diagnostics.
func (s *UDPSocket) WithLogger(lgr logger.Logger) *UDPSocket {
	s.lgr = lgr.Named("transport.udp")
	return s
}

// LocalAddr returns the bound local address.
func (s *UDPSocket) LocalAddr() string { return s.conn.LocalAddr().String() }

// Send writes frame as a single UDP datagram to addr. UDP is fire-and-
// forget: send failures are returned to the caller, who per §4.5 must
// tolerate them silently (a missed heartbeat just manifests as expiry on
// the peer side).
func (s *UDPSocket) Send(addr string, frame []byte) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteToUDP(frame, raddr)
	return err
}

// ReceiveLoop reads datagrams until ctx is canceled, invoking handler for
// each. Read errors (other than on shutdown) are logged, not fatal.
func (s *UDPSocket) ReceiveLoop(ctx context.Context, handler UDPHandler) {
	buf := make([]byte, 64*1024)
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()
	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.lgr.Warn("udp read error", logger.F("err", err.Error()))
				continue
			}
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		handler(frame, raddr.String())
	}
}

// Close releases the underlying socket.
func (s *UDPSocket) Close() error { return s.conn.Close() }
