// Package dispatcher wires inbound wire frames to operation.Execute and
// routes each operation's returned SendableOperations back out over UDP or
// TCP (§4.4, §6).
package dispatcher

import (
	"context"
	"fmt"

	"ringkeep/internal/fileowner"
	"ringkeep/internal/logger"
	"ringkeep/internal/metrics"
	"ringkeep/internal/operation"
	"ringkeep/internal/ring"
	"ringkeep/internal/transport"
)

// PeerLister returns the current join-broadcast peer set used to fan out
// NewMember gossip (§4.4's Join handling).
type PeerLister func() []string

// Dispatcher owns the outbound send queue and the inbound frame handlers
// registered against a UDP socket and TCP listener.
type Dispatcher struct {
	state         *ring.State
	lgr           logger.Logger
	udp           *transport.UDPSocket
	pool          *transport.Pool
	numSuccessors int
	peers         PeerLister
	hook          operation.FailureHook
	outCh         chan operation.SendableOperation
	metrics       *metrics.Metrics
}

// New builds a Dispatcher. queueDepth sizes the outbound channel; sends
// block once it fills, which back-pressures maintainers and operation
// handlers rather than growing memory unboundedly. m may be nil to disable
// metrics recording.
func New(state *ring.State, lgr logger.Logger, udp *transport.UDPSocket, pool *transport.Pool, numSuccessors int, peers PeerLister, hook operation.FailureHook, queueDepth int, m *metrics.Metrics) *Dispatcher {
	if hook == nil {
		hook = fileowner.NopHook{Lgr: lgr}
	}
	return &Dispatcher{
		state:         state,
		lgr:           lgr.Named("dispatcher"),
		udp:           udp,
		pool:          pool,
		numSuccessors: numSuccessors,
		peers:         peers,
		hook:          hook,
		outCh:         make(chan operation.SendableOperation, queueDepth),
		metrics:       m,
	}
}

// Enqueue schedules ops for outbound delivery. Safe to call from any
// goroutine (maintainer ticks, inbound handlers).
func (d *Dispatcher) Enqueue(ops []operation.SendableOperation) {
	for _, op := range ops {
		d.outCh <- op
	}
}

// HandleUDP decodes and executes one inbound UDP datagram.
func (d *Dispatcher) HandleUDP(frame []byte, source string) {
	d.handle(frame, source)
}

// HandleTCP decodes and executes one inbound TCP frame.
func (d *Dispatcher) HandleTCP(frame []byte, source string) {
	d.handle(frame, source)
}

func (d *Dispatcher) handle(frame []byte, source string) {
	op, err := operation.Decode(frame)
	if err != nil {
		d.lgr.Warn("failed to decode inbound frame", logger.F("source", source), logger.F("err", err.Error()))
		return
	}
	if !d.state.IsJoined() {
		d.lgr.Debug("not joined; discarding inbound operation", logger.F("op", op.Describe()), logger.F("source", source))
		return
	}
	now, err := ring.Now()
	if err != nil {
		d.lgr.Error("clock error decoding timestamp; dropping operation", logger.F("err", err.Error()))
		return
	}
	ctx := operation.ExecContext{
		State:         d.state,
		Now:           now,
		NumSuccessors: d.numSuccessors,
		Peers:         d.peers(),
		Hook:          d.hook,
		Lgr:           d.lgr,
	}
	out, err := op.Execute(ctx, source)
	if err != nil {
		d.lgr.Warn("operation execution failed", logger.F("op", op.Describe()), logger.F("source", source), logger.F("err", err.Error()))
		return
	}
	if d.metrics != nil {
		d.metrics.OperationsDispatched.WithLabelValues(string(op.Tag())).Inc()
		d.metrics.MembershipSize.Set(float64(len(d.state.Membership())))
	}
	d.Enqueue(out)
}

// ExecuteSelf runs op as if received from this node's own UDP address, the
// loopback path used for maintainer-synthesized operations such as the
// Leave the expiry scan issues for a stale predecessor.
func (d *Dispatcher) ExecuteSelf(op operation.Operation) {
	d.handle(mustEncode(op), d.state.MyUDPAddr())
}

func mustEncode(op operation.Operation) []byte {
	b, err := op.ToBytes()
	if err != nil {
		panic(fmt.Sprintf("dispatcher: encode self op: %v", err))
	}
	return b
}

// Run drains the outbound queue until ctx is canceled, resolving each
// SendableOperation's Destination to concrete UDP/TCP sends.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sendable, ok := <-d.outCh:
			if !ok {
				return
			}
			if d.metrics != nil {
				d.metrics.SendQueueDepth.Set(float64(len(d.outCh)))
			}
			d.send(sendable)
		}
	}
}

func (d *Dispatcher) send(sendable operation.SendableOperation) {
	frame, err := sendable.Op.ToBytes()
	if err != nil {
		d.lgr.Error("failed to encode outbound operation", logger.F("op", sendable.Op.Describe()), logger.F("err", err.Error()))
		return
	}

	switch sendable.Dest.Kind {
	case operation.DestSelf:
		d.handle(frame, d.state.MyUDPAddr())

	case operation.DestUDP:
		for _, addr := range sendable.Dest.UDPAddrs {
			if err := d.udp.Send(addr, frame); err != nil {
				d.lgr.Warn("udp send failed", logger.F("addr", addr), logger.F("err", err.Error()))
			}
		}

	case operation.DestTCP:
		for _, addr := range sendable.Dest.TCPAddrs {
			d.sendTCP(addr, frame)
		}

	case operation.DestIds:
		for _, id := range sendable.Dest.Ids {
			udpAddr, err := id.UDPAddr()
			if err != nil {
				d.lgr.Warn("malformed destination id", logger.F("id", string(id)), logger.F("err", err.Error()))
				continue
			}
			tcpAddr, ok := d.state.TCPAddr(udpAddr)
			if !ok {
				d.lgr.Warn("no known tcp address for destination id", logger.F("id", string(id)))
				continue
			}
			d.sendTCP(tcpAddr, frame)
		}

	default:
		d.lgr.Error("unknown destination kind", logger.F("kind", int(sendable.Dest.Kind)))
	}
}

func (d *Dispatcher) sendTCP(addr string, frame []byte) {
	conn, err := d.pool.GetConn(addr)
	if err != nil {
		d.lgr.Warn("tcp dial failed", logger.F("addr", addr), logger.F("err", err.Error()))
		return
	}
	if err := transport.WriteTCPFrame(conn, frame); err != nil {
		d.lgr.Warn("tcp write failed, evicting connection", logger.F("addr", addr), logger.F("err", err.Error()))
		d.pool.CloseConn(addr)
	}
}
