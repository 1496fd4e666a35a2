// Package bootstrap supplies the initial peer set a node broadcasts Join
// to (§4.4, §11.1): a static configured list, or a dynamically discovered
// one backed by Route53 SRV records.
package bootstrap

import (
	"context"

	"ringkeep/internal/ring"
)

// Bootstrap discovers the initial broadcast set and, for dynamic modes,
// registers/deregisters this node so other nodes can discover it in turn.
type Bootstrap interface {
	// Discover returns the UDP addresses of currently known peers.
	Discover(ctx context.Context) ([]string, error)
	// Register advertises this node's identity and UDP address. No-op for
	// static bootstrap.
	Register(ctx context.Context, id ring.NodeId, udpAddr string) error
	// Deregister withdraws a prior Register. No-op for static bootstrap.
	Deregister(ctx context.Context, id ring.NodeId) error
}
