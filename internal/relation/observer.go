package relation

import "github.com/roach88/tether/internal/observable"

// SkipReason explains why a sync step did not touch the other side.
type SkipReason string

const (
	// SkipUnresolved means the property could not be navigated on the entity.
	SkipUnresolved SkipReason = "unresolved"
	// SkipNotLoaded means the other side's collection is not materialized.
	SkipNotLoaded SkipReason = "not_loaded"
)

// Observer receives sync engine events. Implementations must be cheap: they
// run inline on the mutating goroutine.
type Observer interface {
	// OnPropagate is called once per change descriptor handled by a relation.
	OnPropagate(kind Kind, property string, action observable.Action)
	// OnSkip is called when a step is skipped.
	OnSkip(kind Kind, property string, reason SkipReason)
	// OnViolation is called before a uniqueness violation is returned.
	OnViolation(kind Kind, property string, err error)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) OnPropagate(Kind, string, observable.Action) {}
func (NoopObserver) OnSkip(Kind, string, SkipReason)             {}
func (NoopObserver) OnViolation(Kind, string, error)             {}

var _ Observer = NoopObserver{}
