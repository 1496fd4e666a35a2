package operation

import (
	"encoding/json"
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// NewMember is a join announcement relayed from the original Join
// recipient to the rest of the join-broadcast set (§4.4).
//
// Fan-out relies on the originator's initial broadcast reaching every
// statically configured peer; a lost NewMember packet is eventually
// healed when the missed peer becomes someone's predecessor and starts
// heartbeating, prompting a MemberInit on that peer's next join-cycle
// (§9's documented open question about join-broadcast-set coverage).
type NewMember struct {
	ID      ring.NodeId `json:"id"`
	TCPAddr string      `json:"tcp_addr"`
}

func (n NewMember) Tag() Tag { return TagNewMember }

func (n NewMember) ToBytes() ([]byte, error) { return encode(TagNewMember, n) }

func (n NewMember) Execute(ctx ExecContext, source string) ([]SendableOperation, error) {
	ctx.State.InsertNode(n.ID)

	udpAddr, err := n.ID.UDPAddr()
	if err != nil {
		return nil, fmt.Errorf("new_member: %w", err)
	}
	ctx.State.SetTCPAddr(udpAddr, n.TCPAddr)

	if err := ctx.State.RecalculateNeighbors(ctx.Now); err != nil {
		return nil, fmt.Errorf("new_member: %w", err)
	}

	ctx.Lgr.Debug("observed new member", logger.F("id", string(n.ID)))
	return nil, nil
}

func (n NewMember) Describe() string {
	return fmt.Sprintf("NewMember{id=%s, tcp=%s}", n.ID, n.TCPAddr)
}

func decodeNewMember(payload []byte) (Operation, error) {
	var n NewMember
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decode new_member: %w", err)
	}
	return n, nil
}
