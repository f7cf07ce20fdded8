package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnapshotConsumer = (*SnapshotBoard)(nil)

// CycleStatus summarizes recent refresh cycle outcomes for the status API.
type CycleStatus struct {
	LastAttemptAt       time.Time
	LastSuccessAt       time.Time
	LastFailureKind     model.FailureKind
	LastError           string
	ConsecutiveFailures int
}

// SnapshotBoard is the in-process snapshot consumer: it retains the last
// successfully published RefreshResult and the running cycle status. A failed
// cycle never clears the previous result, so readers keep seeing stale but
// valid data until a cycle succeeds again.
type SnapshotBoard struct {
	mu     sync.RWMutex
	latest *model.RefreshResult
	status CycleStatus
}

// NewSnapshotBoard creates an empty board.
func NewSnapshotBoard() *SnapshotBoard {
	return &SnapshotBoard{}
}

// OnCycleComplete publishes the cycle result atomically.
func (b *SnapshotBoard) OnCycleComplete(result *model.RefreshResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = result
	b.status.LastAttemptAt = result.FetchedAt
	b.status.LastSuccessAt = result.FetchedAt
	b.status.LastFailureKind = model.FailureNone
	b.status.LastError = ""
	b.status.ConsecutiveFailures = 0
}

// OnCycleFailed records the failure; the previously published result stands.
func (b *SnapshotBoard) OnCycleFailed(kind model.FailureKind, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.LastAttemptAt = time.Now()
	b.status.LastFailureKind = kind
	b.status.LastError = err.Error()
	b.status.ConsecutiveFailures++

	slog.Warn("refresh cycle failed, keeping previous snapshot",
		"failure_kind", string(kind),
		"consecutive_failures", b.status.ConsecutiveFailures,
		"error", err,
	)
}

// Latest returns the most recently published result, or nil before the first
// successful cycle.
func (b *SnapshotBoard) Latest() *model.RefreshResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// Status returns the current cycle status.
func (b *SnapshotBoard) Status() CycleStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}
