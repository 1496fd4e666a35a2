package operation

import (
	"encoding/json"
	"fmt"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// Heartbeat is sent periodically by each joined node to its successors
// over UDP (§4.4, §4.5).
type Heartbeat struct {
	ID ring.NodeId `json:"id"`
}

func (h Heartbeat) Tag() Tag { return TagHeartbeat }

func (h Heartbeat) ToBytes() ([]byte, error) { return encode(TagHeartbeat, h) }

// Execute validates that the sender is who it claims to be, then touches
// the predecessor timestamp if h.ID is currently a predecessor. A mismatch
// between the claimed id and the datagram's source endpoint is rejected
// without any state mutation (P7): it is treated as a protocol violation
// (possible spoofing or a stale NAT binding), logged, and dropped by the
// caller rather than causing a crash.
func (h Heartbeat) Execute(ctx ExecContext, source string) ([]SendableOperation, error) {
	claimed, err := h.ID.UDPAddr()
	if err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}
	if claimed != source {
		return nil, fmt.Errorf("heartbeat: source mismatch: claimed %s, datagram from %s", claimed, source)
	}

	if ctx.State.TouchPredecessor(h.ID, ctx.Now) {
		ctx.Lgr.Debug("heartbeat accepted", logger.F("id", string(h.ID)))
	} else {
		ctx.Lgr.Debug("heartbeat from non-predecessor dropped", logger.F("id", string(h.ID)))
	}
	return nil, nil
}

func (h Heartbeat) Describe() string {
	return fmt.Sprintf("Heartbeat{id=%s}", h.ID)
}

func decodeHeartbeat(payload []byte) (Operation, error) {
	var h Heartbeat
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("decode heartbeat: %w", err)
	}
	return h, nil
}
