package operation

import (
	"encoding/json"
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// Leave is sent either voluntarily, by the leaving node to its successors,
// or synthesized locally by the maintainer when a predecessor expires
// (§4.4, §4.5).
type Leave struct {
	ID ring.NodeId `json:"id"`
}

func (l Leave) Tag() Tag { return TagLeave }

func (l Leave) ToBytes() ([]byte, error) { return encode(TagLeave, l) }

// Execute removes the departing node from membership. If it was not
// present, the operation is a no-op and emits nothing — this is what
// gives Leave its at-most-once propagation (P5): a second delivery for an
// already-evicted id, whether a duplicate real Leave or a second
// maintainer-synthesized one, is silently absorbed. Otherwise it drops the
// address mapping, recalculates neighbors, gossip-forwards the same Leave
// to the (now recomputed) successor set, and invokes the external
// file-replication hook, folding its returned operations into the result.
// A hook failure is logged and does not block Leave propagation (§7):
// membership correctness takes precedence over replication.
func (l Leave) Execute(ctx ExecContext, source string) ([]SendableOperation, error) {
	if !ctx.State.RemoveNode(l.ID) {
		ctx.Lgr.Debug("leave for already-absent node ignored", logger.F("id", string(l.ID)))
		return nil, nil
	}

	if udpAddr, err := l.ID.UDPAddr(); err == nil {
		ctx.State.RemoveTCPAddr(udpAddr)
	}

	if err := ctx.State.RecalculateNeighbors(ctx.Now); err != nil {
		return nil, fmt.Errorf("leave: %w", err)
	}

	follow := make([]SendableOperation, 0, 2)
	if len(ctx.State.Successors()) > 0 {
		fwd, err := ForSuccessors(l, ctx.State.Successors())
		if err != nil {
			return nil, fmt.Errorf("leave: %w", err)
		}
		follow = append(follow, fwd)
	}

	if ctx.Hook != nil {
		hookOps, err := ctx.Hook.HandleFailedNode(l.ID)
		if err != nil {
			ctx.Lgr.Error("file-replication hook failed", logger.F("id", string(l.ID)), logger.F("err", err.Error()))
		} else {
			follow = append(follow, hookOps...)
		}
	}

	ctx.Lgr.Info("processed leave", logger.F("id", string(l.ID)))
	return follow, nil
}

func (l Leave) Describe() string {
	return fmt.Sprintf("Leave{id=%s}", l.ID)
}

func decodeLeave(payload []byte) (Operation, error) {
	var l Leave
	if err := json.Unmarshal(payload, &l); err != nil {
		return nil, fmt.Errorf("decode leave: %w", err)
	}
	return l, nil
}
