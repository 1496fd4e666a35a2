// Package maintainer runs the two periodic background tasks of §4.5: a
// heartbeat tick that announces liveness to successors, and an expiry scan
// that declares a predecessor failed once its heartbeat goes stale.
package maintainer

import (
	"context"
	"fmt"
	"time"

	"ringkeep/internal/logger"
	"ringkeep/internal/operation"
	"ringkeep/internal/ring"
)

// Enqueuer is the subset of the dispatcher a Maintainer needs: scheduling
// outbound operations and looping a synthesized one back through local
// execution.
type Enqueuer interface {
	Enqueue(ops []operation.SendableOperation)
	ExecuteSelf(op operation.Operation)
}

// Maintainer drives the heartbeat and expiry-scan ticks against shared
// ring state.
type Maintainer struct {
	state             *ring.State
	disp              Enqueuer
	lgr               logger.Logger
	heartbeatInterval time.Duration
	expiryScanInterval time.Duration
	expirationWindow  time.Duration
}

// New builds a Maintainer. expirationWindow is the §4.5 staleness
// threshold: a predecessor whose last heartbeat is older than this, as of
// the scan's current time, is declared failed.
func New(state *ring.State, disp Enqueuer, lgr logger.Logger, heartbeatInterval, expiryScanInterval, expirationWindow time.Duration) *Maintainer {
	return &Maintainer{
		state:              state,
		disp:               disp,
		lgr:                lgr.Named("maintainer"),
		heartbeatInterval:  heartbeatInterval,
		expiryScanInterval: expiryScanInterval,
		expirationWindow:   expirationWindow,
	}
}

// Run drives both ticks concurrently until ctx is canceled.
func (m *Maintainer) Run(ctx context.Context) {
	go m.heartbeatLoop(ctx)
	m.expiryLoop(ctx)
}

func (m *Maintainer) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickHeartbeat()
		}
	}
}

func (m *Maintainer) tickHeartbeat() {
	if !m.state.IsJoined() {
		return
	}
	successors := m.state.Successors()
	if len(successors) == 0 {
		return
	}
	hb := operation.Heartbeat{ID: m.state.MyID()}
	sendable, err := operation.ForSuccessors(hb, successors)
	if err != nil {
		m.lgr.Error("failed to address heartbeat", logger.F("err", err.Error()))
		return
	}
	m.disp.Enqueue([]operation.SendableOperation{sendable})
}

func (m *Maintainer) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(m.expiryScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickExpiry()
		}
	}
}

// tickExpiry scans predecessor heartbeat timestamps and synthesizes a
// Leave "as if received from self" for each one stale beyond the
// expiration window (§4.5, scenario 6 of the end-to-end property set). A
// clock that has moved backwards relative to a stored timestamp is a hard
// error (§7): it cannot be reconciled and is surfaced rather than silently
// producing a negative age.
func (m *Maintainer) tickExpiry() {
	if !m.state.IsJoined() {
		return
	}
	now, err := ring.Now()
	if err != nil {
		m.lgr.Error("clock error during expiry scan; skipping this tick", logger.F("err", err.Error()))
		return
	}

	for id, ts := range m.state.PredecessorTimestamps() {
		if now < ts {
			m.lgr.Error("observed clock regression against stored predecessor timestamp",
				logger.F("id", string(id)), logger.F("now", uint64(now)), logger.F("stored", uint64(ts)))
			continue
		}
		age := time.Duration(now-ts) * time.Second
		if age <= m.expirationWindow {
			continue
		}
		m.lgr.Info("predecessor expired", logger.F("id", string(id)), logger.F("age", age.String()))
		m.disp.ExecuteSelf(operation.Leave{ID: id})
	}
}

// SynthesizeVoluntaryLeave announces this node's own graceful shutdown: it
// gossips a Leave to the current successors exactly like a remote Leave
// forward (§4.4), then clears local joined state directly. Unlike
// tickExpiry's predecessor-expiry path, this must never go through
// ExecuteSelf: looping a self-Leave through operation.Leave.Execute would
// remove this node from its own membership list before
// RecalculateNeighbors runs, which then fails with ErrSelfMissing and
// drops the forward to successors entirely (§4.2's clear_on_leave is the
// only thing that is allowed to clear joined state for self).
func (m *Maintainer) SynthesizeVoluntaryLeave() error {
	if !m.state.IsJoined() {
		return fmt.Errorf("maintainer: cannot leave: %w", ring.ErrNotJoined)
	}

	myID := m.state.MyID()
	successors := m.state.Successors()
	if len(successors) > 0 {
		leave := operation.Leave{ID: myID}
		sendable, err := operation.ForSuccessors(leave, successors)
		if err != nil {
			return fmt.Errorf("maintainer: address voluntary leave: %w", err)
		}
		m.disp.Enqueue([]operation.SendableOperation{sendable})
	}

	m.state.ClearOnLeave()
	return nil
}
