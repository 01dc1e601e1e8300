package observable

import "fmt"

// LoadState reports whether a container's contents have been materialized
// from its backing source.
type LoadState int

const (
	// Loaded is the zero value: plain containers are always materialized.
	Loaded LoadState = iota
	// NotLoaded marks a placeholder whose contents have not been fetched.
	NotLoaded
	// Loading is held while the loader runs.
	Loading
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// Loader fetches the initial contents of a lazy container.
type Loader[T any] func() ([]T, error)

// Option configures a container at construction.
type Option[T any] func(*options[T])

type options[T any] struct {
	loader Loader[T]
	items  []T
}

// WithLoader makes the container lazy. It starts NotLoaded and calls loader
// on the first explicit Load or the first mutation.
func WithLoader[T any](loader Loader[T]) Option[T] {
	return func(o *options[T]) {
		o.loader = loader
	}
}

// WithItems seeds the container without raising notifications.
func WithItems[T any](items ...T) Option[T] {
	return func(o *options[T]) {
		o.items = append(o.items, items...)
	}
}

func buildOptions[T any](opts []Option[T]) options[T] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lazy holds the materialization state shared by Sequence and Set.
type lazy[T any] struct {
	state  LoadState
	loader Loader[T]
	hooks  []func()
}

func newLazy[T any](loader Loader[T]) lazy[T] {
	if loader == nil {
		return lazy[T]{state: Loaded}
	}
	return lazy[T]{state: NotLoaded, loader: loader}
}

// materialize runs the loader once and hands the result to fill. A failed
// load leaves the container NotLoaded so it can be retried.
func (l *lazy[T]) materialize(fill func([]T)) error {
	if l.state != NotLoaded {
		return nil
	}
	l.state = Loading
	items, err := l.loader()
	if err != nil {
		l.state = NotLoaded
		return fmt.Errorf("load container: %w", err)
	}
	fill(items)
	l.state = Loaded
	l.loader = nil
	hooks := l.hooks
	l.hooks = nil
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// onLoad registers fn to run once, right after materialization. It is
// dropped if the container is already loaded.
func (l *lazy[T]) onLoad(fn func()) {
	if l.state == Loaded {
		return
	}
	l.hooks = append(l.hooks, fn)
}
