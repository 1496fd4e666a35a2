package bootstrap

import (
	"context"

	"ringkeep/internal/ring"
)

// StaticBootstrap hands back a fixed, configured peer list (§11.1).
type StaticBootstrap struct {
	peers []string
}

// NewStaticBootstrap builds a Bootstrap over a fixed peer list.
func NewStaticBootstrap(peers []string) *StaticBootstrap {
	return &StaticBootstrap{peers: peers}
}

// Discover returns the static list of peers.
func (s *StaticBootstrap) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

// Register does nothing in static mode: the peer list is fixed at deploy time.
func (s *StaticBootstrap) Register(ctx context.Context, id ring.NodeId, udpAddr string) error {
	return nil
}

// Deregister does nothing in static mode.
func (s *StaticBootstrap) Deregister(ctx context.Context, id ring.NodeId) error {
	return nil
}
