package operation

import (
	"encoding/json"
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// Join is broadcast by a newly joining node to the join-broadcast set over
// UDP (§4.4).
type Join struct {
	ID      ring.NodeId `json:"id"`
	TCPAddr string      `json:"tcp_addr"`
}

func (j Join) Tag() Tag { return TagJoin }

func (j Join) ToBytes() ([]byte, error) { return encode(TagJoin, j) }

// Execute inserts the joiner into membership, maps its UDP source endpoint
// to its advertised TCP endpoint, and emits a NewMember announcement to
// everyone plus a MemberInit addressed back to the joiner over TCP.
func (j Join) Execute(ctx ExecContext, source string) ([]SendableOperation, error) {
	ctx.State.InsertNode(j.ID)
	ctx.State.SetTCPAddr(source, j.TCPAddr)

	if err := ctx.State.RecalculateNeighbors(ctx.Now); err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	newMember := NewMember{ID: j.ID, TCPAddr: j.TCPAddr}
	memberInit := MemberInit{
		Membership: ctx.State.Membership(),
		UDPToTCP:   ctx.State.TCPMapSnapshot(),
		FileOwners: ctx.State.FileOwnersSnapshot(),
	}

	ctx.Lgr.Info("processed join", logger.F("id", string(j.ID)), logger.F("tcp_addr", j.TCPAddr))

	return []SendableOperation{
		ForEveryone(newMember, ctx.Peers),
		ForSingle(j.ID, memberInit),
	}, nil
}

func (j Join) Describe() string {
	return fmt.Sprintf("Join{id=%s, tcp=%s}", j.ID, j.TCPAddr)
}

func decodeJoin(payload []byte) (Operation, error) {
	var j Join
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, fmt.Errorf("decode join: %w", err)
	}
	return j, nil
}
