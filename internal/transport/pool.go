// Package transport implements the §6 wire transport: a shared UDP socket
// for membership control messages and a pooled set of TCP connections for
// MemberInit and other bulk/reliable payloads (§11.2, §11.3).
package transport

import (
	"fmt"
	"net"
	"sync"

	"ringkeep/internal/logger"
)

// Pool is a double-checked-locking TCP connection cache keyed by remote
// address, the same shape as the teacher's gRPC client pool: a read-locked
// fast path on cache hit, and a write-locked dial-and-store slow path that
// re-checks the cache before dialing in case another goroutine raced it.
type Pool struct {
	lgr   logger.Logger
	mu    sync.RWMutex
	conns map[string]net.Conn
}

// NewPool builds an empty TCP connection pool.
func NewPool(lgr logger.Logger) *Pool {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	return &Pool{lgr: lgr.Named("transport.pool"), conns: make(map[string]net.Conn)}
}

// GetConn returns a cached connection to addr, dialing a new one on miss.
func (p *Pool) GetConn(addr string) (net.Conn, error) {
	p.mu.RLock()
	if c, ok := p.conns[addr]; ok {
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		return c, nil
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	p.conns[addr] = conn
	p.lgr.Debug("opened tcp connection", logger.F("addr", addr))
	return conn, nil
}

// CloseConn closes and evicts the cached connection to addr, if any. The
// caller should do this after a write error so the next GetConn redials.
func (p *Pool) CloseConn(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		_ = c.Close()
		delete(p.conns, addr)
	}
}

// CloseAll tears down every pooled connection, e.g. on shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, c := range p.conns {
		_ = c.Close()
		delete(p.conns, addr)
	}
}
