// Package node wires ring state, the operation dispatcher, the periodic
// maintainer, transport sockets, and bootstrap discovery into the single
// object the outer CLI and HTTP layers drive (§2, §4.5, §6).
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ringkeep/internal/bootstrap"
	"ringkeep/internal/config"
	"ringkeep/internal/dispatcher"
	"ringkeep/internal/logger"
	"ringkeep/internal/maintainer"
	"ringkeep/internal/metrics"
	"ringkeep/internal/netutil"
	"ringkeep/internal/operation"
	"ringkeep/internal/ring"
	"ringkeep/internal/transport"
)

// Node is one running cluster member: its identity, its shared state, and
// the goroutines that keep it alive.
type Node struct {
	cfg   *config.Config
	lgr   logger.Logger
	state *ring.State

	udp  *transport.UDPSocket
	tcp  *transport.TCPListener
	pool *transport.Pool

	disp  *dispatcher.Dispatcher
	maint *maintainer.Maintainer
	boot  bootstrap.Bootstrap

	metrics *metrics.Metrics

	peersMu sync.RWMutex
	peers   []string

	// pendingID/pendingUDPAddr/pendingTCPAddr hold the identity this node
	// will adopt on Join. The endpoints are computed once at construction
	// time so repeated joins after a leave reuse a stable endpoint;
	// pendingID is regenerated at each Join, so its join timestamp still
	// makes each NodeId unique.
	pendingID      ring.NodeId
	pendingUDPAddr string
	pendingTCPAddr string

	cancel context.CancelFunc
}

// New binds sockets, resolves this node's advertised endpoints, and wires
// the dispatcher and maintainer, without joining the cluster yet.
func New(cfg *config.Config, lgr logger.Logger, boot bootstrap.Bootstrap, m *metrics.Metrics) (*Node, error) {
	udp, err := transport.ListenUDP(netutil.BindAddr(cfg.Node.Bind, cfg.Node.UDP))
	if err != nil {
		return nil, fmt.Errorf("node: bind udp: %w", err)
	}
	udp = udp.WithLogger(lgr)

	tcp, err := transport.ListenTCP(netutil.BindAddr(cfg.Node.Bind, cfg.Node.TCP))
	if err != nil {
		return nil, fmt.Errorf("node: bind tcp: %w", err)
	}
	tcp = tcp.WithLogger(lgr)

	advertiseIP, err := netutil.ResolveAdvertiseIP(cfg.Node.Host, cfg.Node.Mode)
	if err != nil {
		return nil, fmt.Errorf("node: resolve advertise address: %w", err)
	}

	state := ring.New(lgr, cfg.Ring.NumSuccessors)
	pool := transport.NewPool(lgr)

	n := &Node{
		cfg:     cfg,
		lgr:     lgr.Named("node"),
		state:   state,
		udp:     udp,
		tcp:     tcp,
		pool:    pool,
		boot:    boot,
		metrics: m,
	}

	udpAddr := netutil.AdvertiseAddr(advertiseIP, cfg.Node.UDP)
	tcpAddr := netutil.AdvertiseAddr(advertiseIP, cfg.Node.TCP)
	id, err := ring.GenID(udpAddr)
	if err != nil {
		return nil, fmt.Errorf("node: generate identity: %w", err)
	}
	// Not yet joined: SetIdentity/InsertNode/joined flag only flip on Join.
	n.pendingID = id
	n.pendingUDPAddr = udpAddr
	n.pendingTCPAddr = tcpAddr

	n.disp = dispatcher.New(state, lgr, udp, pool, cfg.Ring.NumSuccessors, n.peerList, nil, 256, m)
	n.maint = maintainer.New(
		state, n.disp, lgr,
		cfg.Ring.HeartbeatInterval,
		cfg.Ring.ExpiryScanInterval,
		time.Duration(cfg.Ring.ExpirationSeconds)*time.Second,
	)

	return n, nil
}

func (n *Node) peerList() []string {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()
	return append([]string(nil), n.peers...)
}

// Start begins the dispatcher's outbound loop, the inbound socket
// listeners, and the maintainer's periodic ticks. Call once, after New.
func (n *Node) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	go n.disp.Run(ctx)
	go n.udp.ReceiveLoop(ctx, n.disp.HandleUDP)
	go n.tcp.AcceptLoop(ctx, n.disp.HandleTCP)
	go n.maint.Run(ctx)
}

// Stop tears down background goroutines and releases sockets.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	_ = n.udp.Close()
	_ = n.tcp.Close()
	n.pool.CloseAll()
}

// Join discovers the peer set, adopts this node's identity, inserts self
// into local membership (I2), and broadcasts Join to every discovered peer.
func (n *Node) Join(ctx context.Context) error {
	if n.state.IsJoined() {
		return fmt.Errorf("node: already joined")
	}

	peers, err := n.boot.Discover(ctx)
	if err != nil {
		return fmt.Errorf("node: discover peers: %w", err)
	}
	n.peersMu.Lock()
	n.peers = peers
	n.peersMu.Unlock()

	id, err := ring.GenID(n.pendingUDPAddr)
	if err != nil {
		return fmt.Errorf("node: generate identity: %w", err)
	}
	n.pendingID = id

	n.state.SetIdentity(n.pendingID, n.pendingUDPAddr, n.pendingTCPAddr)
	n.state.InsertNode(n.pendingID)
	n.state.SetTCPAddr(n.pendingUDPAddr, n.pendingTCPAddr)
	now, err := ring.Now()
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if err := n.state.RecalculateNeighbors(now); err != nil {
		return fmt.Errorf("node: %w", err)
	}

	if err := n.boot.Register(ctx, n.pendingID, n.pendingUDPAddr); err != nil {
		n.lgr.Warn("bootstrap registration failed", logger.F("err", err.Error()))
	}

	if len(peers) == 0 {
		n.lgr.Info("joined as the first node in the cluster", logger.F("id", string(n.pendingID)))
		return nil
	}

	join := operation.Join{ID: n.pendingID, TCPAddr: n.pendingTCPAddr}
	n.disp.Enqueue([]operation.SendableOperation{operation.ForEveryone(join, peers)})
	n.lgr.Info("broadcast join", logger.F("id", string(n.pendingID)), logger.F("peers", len(peers)))
	return nil
}

// Leave gossips a voluntary Leave for this node's own id to its current
// successors and then clears local joined state (§4.2's clear_on_leave),
// distinct from how a remote node's departure is processed: self can never
// be removed from its own membership list via Leave.Execute, since
// RecalculateNeighbors would then fail to find self and abort the forward.
func (n *Node) Leave(ctx context.Context) error {
	id := n.state.MyID()
	if err := n.maint.SynthesizeVoluntaryLeave(); err != nil {
		return err
	}
	if err := n.boot.Deregister(ctx, id); err != nil {
		n.lgr.Warn("bootstrap deregistration failed", logger.F("err", err.Error()))
	}
	return nil
}

// State exposes the shared ring state for read-only inspection by the CLI
// and HTTP layers.
func (n *Node) State() *ring.State { return n.state }
