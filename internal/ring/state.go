package ring

import (
	"errors"
	"sort"
	"sync"

	"ringkeep/internal/logger"
)

// ErrNotJoined is returned by operations that require Joined=true.
var ErrNotJoined = errors.New("ring: node is not joined")

// ErrSelfMissing is returned when my_idx is requested while Joined=true but
// self is absent from the membership list; this is a programmer error, not
// a runtime condition callers should expect to recover from.
var ErrSelfMissing = errors.New("ring: self missing from membership list while joined")

// State is the process-wide membership record described in §3-§4.2. It is
// split into independently lockable sub-regions so that, e.g., an inbound
// Heartbeat only ever contends with other predecessor-timestamp readers,
// never with a membership-list mutation. Callers that must touch more than
// one region (RecalculateNeighbors) acquire locks in the fixed order from
// §5: membership -> successors -> predecessors+timestamps -> udpToTcp ->
// fileOwners.
type State struct {
	lgr logger.Logger

	numSuccessors int

	membershipMu sync.RWMutex
	membership   []NodeId

	successorsMu sync.RWMutex
	successors   []NodeId

	predMu                sync.RWMutex
	predecessors          []NodeId
	predecessorTimestamps map[NodeId]Timestamp

	addrMu   sync.RWMutex
	udpToTcp map[string]string

	ownersMu   sync.RWMutex
	fileOwners map[string]string

	identityMu sync.RWMutex
	myID       NodeId
	myUDPAddr  string
	myTCPAddr  string
	joined     bool
}

// New builds an empty, not-yet-joined State.
func New(lgr logger.Logger, numSuccessors int) *State {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	return &State{
		lgr:                   lgr.Named("ring"),
		numSuccessors:         numSuccessors,
		predecessorTimestamps: make(map[NodeId]Timestamp),
		udpToTcp:              make(map[string]string),
		fileOwners:            make(map[string]string),
	}
}

// --- identity & joined flag -------------------------------------------------

// SetIdentity records this node's own id and endpoints and marks it joined.
// Per I2, the caller must also InsertNode(id) so self appears in membership.
func (s *State) SetIdentity(id NodeId, udpAddr, tcpAddr string) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	s.myID = id
	s.myUDPAddr = udpAddr
	s.myTCPAddr = tcpAddr
	s.joined = true
}

func (s *State) MyID() NodeId {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()
	return s.myID
}

func (s *State) MyUDPAddr() string {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()
	return s.myUDPAddr
}

func (s *State) MyTCPAddr() string {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()
	return s.myTCPAddr
}

func (s *State) IsJoined() bool {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()
	return s.joined
}

// ClearOnLeave implements §4.2's clear_on_leave: Joined is cleared and
// membership/successors/predecessors/timestamps are emptied. The address
// map is deliberately left alone (benign staleness, per the specification).
func (s *State) ClearOnLeave() {
	s.identityMu.Lock()
	s.joined = false
	s.identityMu.Unlock()

	s.membershipMu.Lock()
	s.membership = nil
	s.membershipMu.Unlock()

	s.successorsMu.Lock()
	s.successors = nil
	s.successorsMu.Unlock()

	s.predMu.Lock()
	s.predecessors = nil
	s.predecessorTimestamps = make(map[NodeId]Timestamp)
	s.predMu.Unlock()
}

// --- membership --------------------------------------------------------

// InsertNode performs a binary-search insert into the sorted membership
// list. Idempotent: inserting an id already present is a no-op and returns
// false.
func (s *State) InsertNode(id NodeId) bool {
	s.membershipMu.Lock()
	defer s.membershipMu.Unlock()
	return s.insertLocked(id)
}

func (s *State) insertLocked(id NodeId) bool {
	i := sort.Search(len(s.membership), func(i int) bool { return s.membership[i] >= id })
	if i < len(s.membership) && s.membership[i] == id {
		return false
	}
	s.membership = append(s.membership, "")
	copy(s.membership[i+1:], s.membership[i:])
	s.membership[i] = id
	return true
}

// RemoveNode removes id from membership, returning true iff it was present.
func (s *State) RemoveNode(id NodeId) bool {
	s.membershipMu.Lock()
	defer s.membershipMu.Unlock()
	i := sort.Search(len(s.membership), func(i int) bool { return s.membership[i] >= id })
	if i >= len(s.membership) || s.membership[i] != id {
		return false
	}
	s.membership = append(s.membership[:i], s.membership[i+1:]...)
	return true
}

// MergeMembershipList inserts every id in list, ignoring duplicates (§4.2).
func (s *State) MergeMembershipList(list []NodeId) {
	s.membershipMu.Lock()
	defer s.membershipMu.Unlock()
	for _, id := range list {
		s.insertLocked(id)
	}
}

// Membership returns a snapshot copy of the sorted membership list.
func (s *State) Membership() []NodeId {
	s.membershipMu.RLock()
	defer s.membershipMu.RUnlock()
	out := make([]NodeId, len(s.membership))
	copy(out, s.membership)
	return out
}

// Contains reports whether id is currently a member.
func (s *State) Contains(id NodeId) bool {
	s.membershipMu.RLock()
	defer s.membershipMu.RUnlock()
	i := sort.Search(len(s.membership), func(i int) bool { return s.membership[i] >= id })
	return i < len(s.membership) && s.membership[i] == id
}

// --- successors / predecessors -----------------------------------------

func (s *State) Successors() []NodeId {
	s.successorsMu.RLock()
	defer s.successorsMu.RUnlock()
	out := make([]NodeId, len(s.successors))
	copy(out, s.successors)
	return out
}

func (s *State) Predecessors() []NodeId {
	s.predMu.RLock()
	defer s.predMu.RUnlock()
	out := make([]NodeId, len(s.predecessors))
	copy(out, s.predecessors)
	return out
}

// PredecessorTimestamp returns the last observed heartbeat time for a
// current predecessor, and whether id is in fact a predecessor.
func (s *State) PredecessorTimestamp(id NodeId) (Timestamp, bool) {
	s.predMu.RLock()
	defer s.predMu.RUnlock()
	ts, ok := s.predecessorTimestamps[id]
	return ts, ok
}

// PredecessorTimestamps returns a snapshot copy of the timestamp map, for
// the maintainer's expiry scan (§4.5) to enumerate candidates under a
// short-lived read lock before releasing it.
func (s *State) PredecessorTimestamps() map[NodeId]Timestamp {
	s.predMu.RLock()
	defer s.predMu.RUnlock()
	out := make(map[NodeId]Timestamp, len(s.predecessorTimestamps))
	for k, v := range s.predecessorTimestamps {
		out[k] = v
	}
	return out
}

// TouchPredecessor updates id's last-heartbeat timestamp iff id is
// currently a predecessor; otherwise it is a silent no-op and returns
// false (§4.4, Heartbeat.execute: "non-predecessor heartbeats are
// informational only").
func (s *State) TouchPredecessor(id NodeId, ts Timestamp) bool {
	s.predMu.Lock()
	defer s.predMu.Unlock()
	if _, ok := s.predecessorTimestamps[id]; !ok {
		return false
	}
	s.predecessorTimestamps[id] = ts
	return true
}

// myIdxLocked returns self's index within the sorted membership list. Must be
// called with membershipMu held (read or write) by the caller.
func (s *State) myIdxLocked() (int, bool) {
	id := s.MyID()
	i := sort.Search(len(s.membership), func(i int) bool { return s.membership[i] >= id })
	if i < len(s.membership) && s.membership[i] == id {
		return i, true
	}
	return 0, false
}

// RecalculateNeighbors recomputes predecessors then successors from the
// current membership list and self's position (§4.3: "predecessors then
// successors; idempotent"), reconciling predecessor timestamps so that a
// freshly-adopted predecessor is granted one full expiration window before
// it can be declared dead, and an evicted one's timestamp entry is dropped
// (I3). No-op if not joined.
func (s *State) RecalculateNeighbors(now Timestamp) error {
	if !s.IsJoined() {
		return nil
	}

	s.membershipMu.RLock()
	defer s.membershipMu.RUnlock()

	myIdx, ok := s.myIdxLocked()
	if !ok {
		return ErrSelfMissing
	}
	list := make([]NodeId, len(s.membership))
	copy(list, s.membership)

	newPred, err := RecalculatePredecessors(list, myIdx, s.numSuccessors)
	if err != nil {
		return err
	}
	newSucc, err := RecalculateSuccessors(list, myIdx, s.numSuccessors)
	if err != nil {
		return err
	}

	// Held across the successors/predecessors update too (§5): the shared
	// membership read lock must stay live for the whole recompute, not just
	// the snapshot copy, so a concurrent membership mutation can't race
	// between computing newPred/newSucc and installing them.
	s.successorsMu.Lock()
	s.predMu.Lock()
	oldSet := make(map[NodeId]struct{}, len(s.predecessors))
	for _, id := range s.predecessors {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[NodeId]struct{}, len(newPred))
	for _, id := range newPred {
		newSet[id] = struct{}{}
	}
	for id := range oldSet {
		if _, stillPred := newSet[id]; !stillPred {
			delete(s.predecessorTimestamps, id)
		}
	}
	for id := range newSet {
		if _, wasPred := oldSet[id]; !wasPred {
			s.predecessorTimestamps[id] = now
		}
	}
	s.predecessors = newPred
	s.successors = newSucc
	s.predMu.Unlock()
	s.successorsMu.Unlock()

	s.lgr.Debug("recalculated neighbors",
		logger.F("successors", newSucc),
		logger.F("predecessors", newPred),
	)
	return nil
}

// --- udp -> tcp address map ---------------------------------------------

// SetTCPAddr records the TCP endpoint for a UDP endpoint (§3, I5).
func (s *State) SetTCPAddr(udpAddr, tcpAddr string) {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	s.udpToTcp[udpAddr] = tcpAddr
}

// RemoveTCPAddr drops the mapping for a UDP endpoint (on Leave).
func (s *State) RemoveTCPAddr(udpAddr string) {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	delete(s.udpToTcp, udpAddr)
}

// TCPAddr resolves a UDP endpoint to its TCP endpoint.
func (s *State) TCPAddr(udpAddr string) (string, bool) {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	tcp, ok := s.udpToTcp[udpAddr]
	return tcp, ok
}

// MergeTCPMap unions m into the address map; later entries win on
// conflict (§4.2, last-write-wins).
func (s *State) MergeTCPMap(m map[string]string) {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	for k, v := range m {
		s.udpToTcp[k] = v
	}
}

// TCPMapSnapshot returns a copy of the whole UDP->TCP map, e.g. to carry in
// a MemberInit payload.
func (s *State) TCPMapSnapshot() map[string]string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	out := make(map[string]string, len(s.udpToTcp))
	for k, v := range s.udpToTcp {
		out[k] = v
	}
	return out
}

// --- file-owners map (external collaborator state, §1) ------------------

// MergeFileOwners unions m into the file-owners map. The contents are
// opaque to this package; only the replication subsystem interprets them
// (see internal/fileowner).
func (s *State) MergeFileOwners(m map[string]string) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	for k, v := range m {
		s.fileOwners[k] = v
	}
}

// FileOwnersSnapshot returns a copy of the whole file-owners map.
func (s *State) FileOwnersSnapshot() map[string]string {
	s.ownersMu.RLock()
	defer s.ownersMu.RUnlock()
	out := make(map[string]string, len(s.fileOwners))
	for k, v := range s.fileOwners {
		out[k] = v
	}
	return out
}
