package maintainer

import (
	"sync"
	"testing"
	"time"

	"ringkeep/internal/logger"
	"ringkeep/internal/operation"
	"ringkeep/internal/ring"
)

// fakeEnqueuer records every SendableOperation passed to Enqueue and every
// Operation passed to ExecuteSelf, without touching the network.
type fakeEnqueuer struct {
	mu        sync.Mutex
	enqueued  []operation.SendableOperation
	selfExecs []operation.Operation
}

func (f *fakeEnqueuer) Enqueue(ops []operation.SendableOperation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, ops...)
}

func (f *fakeEnqueuer) ExecuteSelf(op operation.Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selfExecs = append(f.selfExecs, op)
}

func (f *fakeEnqueuer) snapshot() ([]operation.SendableOperation, []operation.Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]operation.SendableOperation(nil), f.enqueued...), append([]operation.Operation(nil), f.selfExecs...)
}

func newJoinedStateForMaintainer(t *testing.T) (*ring.State, ring.NodeId, ring.NodeId) {
	t.Helper()
	state := ring.New(logger.NopLogger{}, 3)
	self, err := ring.GenID("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	other, err := ring.GenID("127.0.0.1:9001")
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	state.SetIdentity(self, "127.0.0.1:9000", "127.0.0.1:9100")
	state.InsertNode(self)
	state.InsertNode(other)
	now, _ := ring.Now()
	if err := state.RecalculateNeighbors(now); err != nil {
		t.Fatalf("recalc: %v", err)
	}
	return state, self, other
}

func TestTickHeartbeatSkippedWhenNotJoined(t *testing.T) {
	state := ring.New(logger.NopLogger{}, 3)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	m.tickHeartbeat()

	enq, _ := fe.snapshot()
	if len(enq) != 0 {
		t.Fatalf("expected no heartbeat while not joined, got %d", len(enq))
	}
}

func TestTickHeartbeatAddressesAllSuccessors(t *testing.T) {
	state, _, other := newJoinedStateForMaintainer(t)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	m.tickHeartbeat()

	enq, _ := fe.snapshot()
	if len(enq) != 1 {
		t.Fatalf("expected exactly one sendable heartbeat, got %d", len(enq))
	}
	hb, ok := enq[0].Op.(operation.Heartbeat)
	if !ok {
		t.Fatalf("expected a Heartbeat operation, got %T", enq[0].Op)
	}
	otherAddr, _ := other.UDPAddr()
	found := false
	for _, a := range enq[0].Dest.UDPAddrs {
		if a == otherAddr {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected heartbeat addressed to successor %s, got %v", otherAddr, enq[0].Dest.UDPAddrs)
	}
	if hb.ID == "" {
		t.Fatalf("expected heartbeat ID to be set")
	}
}

func TestTickExpirySynthesizesLeaveForStalePredecessor(t *testing.T) {
	state, _, other := newJoinedStateForMaintainer(t)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 0)

	// Force the predecessor timestamp far enough in the past to be stale
	// relative to a zero expiration window.
	state.TouchPredecessor(other, 1)

	m.tickExpiry()

	_, selfExecs := fe.snapshot()
	if len(selfExecs) != 1 {
		t.Fatalf("expected exactly one self-executed op, got %d", len(selfExecs))
	}
	leave, ok := selfExecs[0].(operation.Leave)
	if !ok {
		t.Fatalf("expected a Leave operation, got %T", selfExecs[0])
	}
	if leave.ID != other {
		t.Fatalf("expected leave for %s, got %s", other, leave.ID)
	}
}

func TestTickExpiryIgnoresFreshPredecessor(t *testing.T) {
	state, _, other := newJoinedStateForMaintainer(t)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	now, _ := ring.Now()
	state.TouchPredecessor(other, now)

	m.tickExpiry()

	_, selfExecs := fe.snapshot()
	if len(selfExecs) != 0 {
		t.Fatalf("expected no expiry for a fresh predecessor, got %d", len(selfExecs))
	}
}

func TestSynthesizeVoluntaryLeaveRequiresJoined(t *testing.T) {
	state := ring.New(logger.NopLogger{}, 3)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	if err := m.SynthesizeVoluntaryLeave(); err == nil {
		t.Fatalf("expected error leaving while not joined")
	}
}

func TestSynthesizeVoluntaryLeaveGossipsAndClearsWithoutSelfExecute(t *testing.T) {
	state, self, other := newJoinedStateForMaintainer(t)
	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	if err := m.SynthesizeVoluntaryLeave(); err != nil {
		t.Fatalf("SynthesizeVoluntaryLeave: %v", err)
	}

	enq, selfExecs := fe.snapshot()
	if len(selfExecs) != 0 {
		t.Fatalf("voluntary leave must never loop back through ExecuteSelf, got %d self-executions", len(selfExecs))
	}
	if len(enq) != 1 {
		t.Fatalf("expected exactly one gossiped leave, got %d", len(enq))
	}
	leave, ok := enq[0].Op.(operation.Leave)
	if !ok {
		t.Fatalf("expected a Leave operation, got %T", enq[0].Op)
	}
	if leave.ID != self {
		t.Fatalf("expected the leave to announce self (%s), got %s", self, leave.ID)
	}
	otherAddr, _ := other.UDPAddr()
	found := false
	for _, a := range enq[0].Dest.UDPAddrs {
		if a == otherAddr {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the leave to be addressed to the successor %s, got %v", otherAddr, enq[0].Dest.UDPAddrs)
	}

	if state.IsJoined() {
		t.Fatalf("expected joined state to be cleared after voluntary leave")
	}
	if len(state.Membership()) != 0 {
		t.Fatalf("expected membership to be cleared after voluntary leave, got %v", state.Membership())
	}
}

func TestSynthesizeVoluntaryLeaveAloneClearsWithoutGossip(t *testing.T) {
	state := ring.New(logger.NopLogger{}, 3)
	self, err := ring.GenID("127.0.0.1:9000")
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	state.SetIdentity(self, "127.0.0.1:9000", "127.0.0.1:9100")
	state.InsertNode(self)
	now, _ := ring.Now()
	if err := state.RecalculateNeighbors(now); err != nil {
		t.Fatalf("recalc: %v", err)
	}

	fe := &fakeEnqueuer{}
	m := New(state, fe, logger.NopLogger{}, time.Second, time.Second, 15*time.Second)

	if err := m.SynthesizeVoluntaryLeave(); err != nil {
		t.Fatalf("SynthesizeVoluntaryLeave: %v", err)
	}

	enq, selfExecs := fe.snapshot()
	if len(enq) != 0 || len(selfExecs) != 0 {
		t.Fatalf("expected no gossiped or self-executed ops for a lone node, got enqueued=%d selfExecs=%d", len(enq), len(selfExecs))
	}
	if state.IsJoined() {
		t.Fatalf("expected joined state to be cleared after voluntary leave")
	}
}
