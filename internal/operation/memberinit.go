package operation

import (
	"encoding/json"
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// MemberInit is sent once to a newly joined peer over TCP, carrying the
// full membership snapshot the joiner needs to catch up (§4.4).
type MemberInit struct {
	Membership []ring.NodeId     `json:"membership"`
	UDPToTCP   map[string]string `json:"udp_to_tcp"`
	FileOwners map[string]string `json:"file_owners"`
}

func (m MemberInit) Tag() Tag { return TagMemberInit }

func (m MemberInit) ToBytes() ([]byte, error) { return encode(TagMemberInit, m) }

func (m MemberInit) Execute(ctx ExecContext, source string) ([]SendableOperation, error) {
	ctx.State.MergeMembershipList(m.Membership)
	ctx.State.MergeTCPMap(m.UDPToTCP)
	ctx.State.MergeFileOwners(m.FileOwners)

	if err := ctx.State.RecalculateNeighbors(ctx.Now); err != nil {
		return nil, fmt.Errorf("member_init: %w", err)
	}

	ctx.Lgr.Info("merged member init", logger.F("membership_size", len(m.Membership)))
	return nil, nil
}

func (m MemberInit) Describe() string {
	return fmt.Sprintf("MemberInit{membership_size=%d}", len(m.Membership))
}

func decodeMemberInit(payload []byte) (Operation, error) {
	var m MemberInit
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode member_init: %w", err)
	}
	return m, nil
}
