package relation

import (
	"log/slog"

	"github.com/roach88/tether/internal/observable"
)

// Engine is shared by every relation built from it. It holds the Resolver,
// the logger, the Observer and the propagation token of the sync step in
// progress.
//
// INVARIANTS:
//   - Token() is non-empty exactly while a sync step is running
//   - Nested sync steps inherit the outermost step's token
//
// Engine is single-threaded like the containers it observes.
type Engine struct {
	resolver *Resolver
	logger   *slog.Logger
	observer Observer
	tokens   TokenGenerator

	depth int
	token string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver sets the Observer. Default: NoopObserver.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithTokenGenerator sets the propagation token source.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithResolver shares an existing Resolver instead of creating one.
func WithResolver(r *Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		observer: NoopObserver{},
		tokens:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = NewResolver()
	}
	return e
}

// Resolver returns the engine's Resolver for accessor registration.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Token returns the current propagation token, or "" when idle.
func (e *Engine) Token() string {
	return e.token
}

// Propagating reports whether any sync step is running.
func (e *Engine) Propagating() bool {
	return e.depth > 0
}

// begin marks the start of a sync step. The outermost step generates the
// propagation token.
func (e *Engine) begin() func() {
	if e.depth == 0 {
		e.token = e.tokens.Generate()
	}
	e.depth++
	return func() {
		e.depth--
		if e.depth == 0 {
			e.token = ""
		}
	}
}

func (e *Engine) propagate(kind Kind, property string, action observable.Action) {
	e.logger.Debug("propagating change",
		"relation", kind.String(),
		"property", property,
		"action", action.String(),
		"propagation", e.token,
	)
	e.observer.OnPropagate(kind, property, action)
}

func (e *Engine) skip(kind Kind, property string, reason SkipReason) {
	if reason == SkipNotLoaded {
		e.logger.Warn("skipping unmaterialized collection",
			"relation", kind.String(),
			"property", property,
			"propagation", e.token,
		)
	} else {
		e.logger.Debug("no such side, skipping",
			"relation", kind.String(),
			"property", property,
			"propagation", e.token,
		)
	}
	e.observer.OnSkip(kind, property, reason)
}

func (e *Engine) violation(kind Kind, property, op string, item any) error {
	err := observable.NewUniquenessError(op, property, item)
	e.logger.Error("uniqueness violation",
		"relation", kind.String(),
		"property", property,
		"propagation", e.token,
		"error", err,
	)
	e.observer.OnViolation(kind, property, err)
	return err
}

// errResetWithoutSnapshot rejects a Reset handed to a direct entry point.
// Without the collection's previous contents there is no way to tell which
// members left.
func errResetWithoutSnapshot(op string) error {
	return &observable.Error{
		Code:    observable.ErrCodeInvalidArgument,
		Op:      op,
		Message: "reset carries no items; attach the collection to diff it against its snapshot",
	}
}
