// Package operation implements the tagged-variant operation model of §4.4:
// Heartbeat, Join, Leave, NewMember and MemberInit, each serializing to a
// framed wire buffer and executing against shared ring state to produce
// zero or more follow-up SendableOperations.
package operation

import (
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// Tag is the 4-byte ASCII type tag prefixing every wire frame (§6).
type Tag string

const (
	TagHeartbeat  Tag = "HB  "
	TagJoin       Tag = "JOIN"
	TagLeave      Tag = "LEAV"
	TagNewMember  Tag = "NMEM"
	TagMemberInit Tag = "MLIS"
)

// HeaderSize is the 5-byte header budget from §6: 4 tag bytes plus one
// reserved framing byte.
const HeaderSize = 5

// FailureHook is the external file-replication collaborator referenced in
// §1 and §4.4's Leave semantics. Leave.Execute calls it after removing a
// failed node and folds its returned operations into its own follow-ups;
// a hook error is logged and does not block Leave propagation (§7).
type FailureHook interface {
	HandleFailedNode(id ring.NodeId) ([]SendableOperation, error)
}

// ExecContext carries everything an operation's Execute needs: the shared
// ring state, the current time, the ring's successor-count parameter, the
// join-broadcast peer set for ForEveryone destinations, the external
// failure hook, and a logger.
type ExecContext struct {
	State         *ring.State
	Now           ring.Timestamp
	NumSuccessors int
	Peers         []string
	Hook          FailureHook
	Lgr           logger.Logger
}

// Operation is the uniform contract every wire variant implements (§4.4).
type Operation interface {
	Tag() Tag
	ToBytes() ([]byte, error)
	Execute(ctx ExecContext, source string) ([]SendableOperation, error)
	Describe() string
}

// DestKind enumerates the four routing intents from §4.4.
type DestKind int

const (
	// DestUDP sends directly to the listed UDP endpoints.
	DestUDP DestKind = iota
	// DestTCP sends directly to the listed TCP endpoints.
	DestTCP
	// DestIds resolves each id via the UDP->TCP map at send time and
	// sends over TCP; this is how MemberInit reaches a specific joiner.
	DestIds
	// DestSelf loops the operation back into this node's own execute,
	// bypassing the network entirely, "as if received from self" (the
	// same loopback Dispatcher.ExecuteSelf performs directly).
	DestSelf
)

// Destination names where a SendableOperation should go.
type Destination struct {
	Kind     DestKind
	UDPAddrs []string
	TCPAddrs []string
	Ids      []ring.NodeId
}

// SendableOperation pairs an operation with routing intent, awaiting
// transmission by the dispatcher's outbound worker (§4.4, §4.5).
type SendableOperation struct {
	Dest Destination
	Op   Operation
}

// ForSuccessors builds a SendableOperation addressed over UDP to the given
// successor NodeIds' embedded UDP endpoints. Used for heartbeats and for
// gossip-propagating a Leave to the new successor set.
func ForSuccessors(op Operation, successors []ring.NodeId) (SendableOperation, error) {
	addrs := make([]string, 0, len(successors))
	for _, id := range successors {
		addr, err := id.UDPAddr()
		if err != nil {
			return SendableOperation{}, fmt.Errorf("for_successors: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return SendableOperation{Dest: Destination{Kind: DestUDP, UDPAddrs: addrs}, Op: op}, nil
}

// ForEveryone builds a SendableOperation addressed over UDP to the static
// (or dynamically discovered, §11.1) join-broadcast set.
func ForEveryone(op Operation, peers []string) SendableOperation {
	return SendableOperation{Dest: Destination{Kind: DestUDP, UDPAddrs: peers}, Op: op}
}

// ForSingle builds a SendableOperation resolved via the UDP->TCP map at
// send time, addressed to exactly one peer. Used for MemberInit, which
// §4.4 requires to travel over TCP because its payload is unbounded.
func ForSingle(id ring.NodeId, op Operation) SendableOperation {
	return SendableOperation{Dest: Destination{Kind: DestIds, Ids: []ring.NodeId{id}}, Op: op}
}

// ForSelf builds a SendableOperation that loops back into local execution
// without touching the network.
func ForSelf(op Operation) SendableOperation {
	return SendableOperation{Dest: Destination{Kind: DestSelf}, Op: op}
}
