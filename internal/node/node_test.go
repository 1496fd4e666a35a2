package node

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ringkeep/internal/bootstrap"
	"ringkeep/internal/config"
	"ringkeep/internal/logger"
	"ringkeep/internal/metrics"
)

func newTestNode(t *testing.T, boot bootstrap.Bootstrap) *Node {
	t.Helper()
	cfg := &config.Config{
		Node: config.NodeConfig{Bind: "127.0.0.1", Mode: "private", UDP: 0, TCP: 0},
		Ring: config.RingConfig{
			NumSuccessors:      3,
			ExpirationSeconds:  15,
			HeartbeatInterval:  50 * time.Millisecond,
			ExpiryScanInterval: 50 * time.Millisecond,
		},
	}
	m := metrics.New(prometheus.NewRegistry())
	n, err := New(cfg, logger.NopLogger{}, boot, m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func TestNewDoesNotJoinEagerly(t *testing.T) {
	n := newTestNode(t, bootstrap.NewStaticBootstrap(nil))
	if n.State().IsJoined() {
		t.Fatalf("expected a freshly constructed node not to be joined")
	}
}

func TestJoinAsFirstNodeInsertsSelf(t *testing.T) {
	n := newTestNode(t, bootstrap.NewStaticBootstrap(nil))
	n.Start(context.Background())

	if err := n.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !n.State().IsJoined() {
		t.Fatalf("expected node to be joined after Join")
	}
	if !n.State().Contains(n.State().MyID()) {
		t.Fatalf("expected self to be present in membership after joining alone")
	}
}

func TestJoinTwiceErrors(t *testing.T) {
	n := newTestNode(t, bootstrap.NewStaticBootstrap(nil))
	n.Start(context.Background())

	if err := n.Join(context.Background()); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if err := n.Join(context.Background()); err == nil {
		t.Fatalf("expected second Join to error")
	}
}

func TestLeaveRequiresPriorJoin(t *testing.T) {
	n := newTestNode(t, bootstrap.NewStaticBootstrap(nil))
	n.Start(context.Background())

	if err := n.Leave(context.Background()); err == nil {
		t.Fatalf("expected Leave before Join to error")
	}
}

func TestJoinThenLeaveClearsJoinedState(t *testing.T) {
	n := newTestNode(t, bootstrap.NewStaticBootstrap(nil))
	n.Start(context.Background())

	if err := n.Join(context.Background()); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := n.Leave(context.Background()); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if n.State().IsJoined() {
		t.Fatalf("expected node to no longer be joined after Leave")
	}
}
