// Package fileowner is the narrow hook surface for the file-replication
// subsystem that §1 of the specification treats as an external
// collaborator: only HandleFailedNode is specified here, not the
// replication logic itself.
package fileowner

import (
	"ringkeep/internal/logger"
	"ringkeep/internal/operation"
	"ringkeep/internal/ring"
)

// NopHook is the default FailureHook: it observes a failed node and emits
// no follow-up operations. A real file-replication subsystem would look up
// which files id owned (via the ALL_FILE_OWNERS map carried by MemberInit)
// and return operations that redistribute them to
// the new successor set.
type NopHook struct {
	Lgr logger.Logger
}

// HandleFailedNode implements operation.FailureHook.
func (h NopHook) HandleFailedNode(id ring.NodeId) ([]operation.SendableOperation, error) {
	if h.Lgr != nil {
		h.Lgr.Debug("no file-replication hook configured; skipping", logger.F("id", string(id)))
	}
	return nil, nil
}
