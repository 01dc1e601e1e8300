package relation

import (
	"reflect"

	"github.com/roach88/tether/internal/observable"
)

// Reference is a single-valued, writable property.
type Reference[V any] interface {
	Get() V
	Set(V) error
}

// Navigator lets an entity expose its properties without registration.
//
// Navigate returns a Reference[V] for single-valued properties or an
// observable.Collection[V] for collection properties, and false when the
// entity has no such property.
type Navigator interface {
	Navigate(property string) (any, bool)
}

// accessor turns an entity into the handle for one property.
type accessor func(entity any) (any, bool)

type accessorKey struct {
	typ      reflect.Type
	property string
}

// Resolver maps (runtime type, property name) to a typed accessor.
//
// Accessors come from explicit registration or, failing that, from the
// entity's Navigator implementation. The outcome of the first lookup for a
// key is cached, including "no such property", and reused until Invalidate.
//
// Not safe for concurrent use.
type Resolver struct {
	registered map[accessorKey]accessor
	cache      map[accessorKey]accessor
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		registered: make(map[accessorKey]accessor),
		cache:      make(map[accessorKey]accessor),
	}
}

// RegisterReference registers get/set for a single-valued property of E.
func RegisterReference[E, V any](r *Resolver, property string, get func(E) V, set func(E, V) error) {
	r.register(reflect.TypeFor[E](), property, func(entity any) (any, bool) {
		e, ok := entity.(E)
		if !ok {
			return nil, false
		}
		return funcReference[V]{
			get: func() V { return get(e) },
			set: func(v V) error { return set(e, v) },
		}, true
	})
}

// RegisterCollection registers the getter for a collection property of E.
func RegisterCollection[E any, V comparable](r *Resolver, property string, get func(E) observable.Collection[V]) {
	r.register(reflect.TypeFor[E](), property, func(entity any) (any, bool) {
		e, ok := entity.(E)
		if !ok {
			return nil, false
		}
		c := get(e)
		return c, c != nil
	})
}

func (r *Resolver) register(typ reflect.Type, property string, a accessor) {
	key := accessorKey{typ: typ, property: property}
	r.registered[key] = a
	delete(r.cache, key)
}

// ResolveReference navigates a single-valued property. It returns false when
// the entity has no such property or it holds a different value type.
func ResolveReference[V any](r *Resolver, entity any, property string) (Reference[V], bool) {
	v, ok := r.resolve(entity, property)
	if !ok {
		return nil, false
	}
	ref, ok := v.(Reference[V])
	return ref, ok
}

// ResolveCollection navigates a collection property. It returns false when
// the entity has no such property or it holds a different element type.
func ResolveCollection[V comparable](r *Resolver, entity any, property string) (observable.Collection[V], bool) {
	v, ok := r.resolve(entity, property)
	if !ok {
		return nil, false
	}
	c, ok := v.(observable.Collection[V])
	return c, ok
}

// Invalidate drops cached accessors for property on every type.
func (r *Resolver) Invalidate(property string) {
	for key := range r.cache {
		if key.property == property {
			delete(r.cache, key)
		}
	}
}

// Cached reports whether a lookup outcome for (entity's type, property) is
// cached.
func (r *Resolver) Cached(entity any, property string) bool {
	_, ok := r.cache[accessorKey{typ: reflect.TypeOf(entity), property: property}]
	return ok
}

func (r *Resolver) resolve(entity any, property string) (any, bool) {
	if entity == nil {
		return nil, false
	}
	key := accessorKey{typ: reflect.TypeOf(entity), property: property}
	a, ok := r.cache[key]
	if !ok {
		a = r.lookup(key, entity)
		r.cache[key] = a
	}
	if a == nil {
		return nil, false
	}
	return a(entity)
}

func (r *Resolver) lookup(key accessorKey, entity any) accessor {
	if a, ok := r.registered[key]; ok {
		return a
	}
	if _, ok := entity.(Navigator); ok {
		property := key.property
		return func(entity any) (any, bool) {
			return entity.(Navigator).Navigate(property)
		}
	}
	return nil
}

type funcReference[V any] struct {
	get func() V
	set func(V) error
}

func (f funcReference[V]) Get() V        { return f.get() }
func (f funcReference[V]) Set(v V) error { return f.set(v) }
