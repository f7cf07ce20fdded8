package driven

import "github.com/cnecrea/hidropanel/internal/domain/model"

// SnapshotConsumer receives refresh cycle outcomes. Implementations must
// treat the delivered RefreshResult as immutable.
type SnapshotConsumer interface {
	// OnCycleComplete delivers the result of a cycle that fetched data for
	// at least one account. Exactly one of OnCycleComplete/OnCycleFailed is
	// called per cycle.
	OnCycleComplete(result *model.RefreshResult)

	// OnCycleFailed reports a cycle that produced no usable data. The
	// consumer is expected to keep serving the previous result.
	OnCycleFailed(kind model.FailureKind, err error)
}
