package schema

import (
	"context"

	"github.com/fhirschema/fhirschema-go/cache"
)

// Resolver maps a schema name or canonical URL to its definition.
// Returning (nil, nil) means the schema is not known; a non-nil error
// is reserved for transport failures in remote-backed implementations.
//
// Implementations must be safe for concurrent use if they are shared
// across concurrent validation calls.
type Resolver interface {
	Resolve(ctx context.Context, nameOrURL string) (*Schema, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, nameOrURL string) (*Schema, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, nameOrURL string) (*Schema, error) {
	return f(ctx, nameOrURL)
}

// MapResolver resolves schemas from an in-memory index keyed by both
// name and URL. The zero value is empty and usable.
type MapResolver struct {
	index map[string]*Schema
}

// NewMapResolver builds a resolver over the given schemas.
func NewMapResolver(schemas ...*Schema) *MapResolver {
	r := &MapResolver{index: make(map[string]*Schema, 2*len(schemas))}
	for _, s := range schemas {
		r.Put(s)
	}
	return r
}

// Put indexes a schema by its name and URL. A later schema with the
// same name or URL replaces the earlier one.
func (r *MapResolver) Put(s *Schema) {
	if s == nil {
		return
	}
	if r.index == nil {
		r.index = make(map[string]*Schema)
	}
	if s.Name != "" {
		r.index[s.Name] = s
	}
	if s.URL != "" {
		r.index[s.URL] = s
	}
}

// Resolve implements Resolver.
func (r *MapResolver) Resolve(_ context.Context, nameOrURL string) (*Schema, error) {
	return r.index[nameOrURL], nil
}

// Len returns the number of index entries.
func (r *MapResolver) Len() int {
	return len(r.index)
}

// CachedResolver wraps another resolver with an LRU cache. Negative
// results are not cached so that late-loaded schemas become visible.
type CachedResolver struct {
	inner Resolver
	lru   *cache.Cache[string, *Schema]
}

// NewCachedResolver wraps inner with an LRU cache of the given
// capacity.
func NewCachedResolver(inner Resolver, capacity int) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		lru:   cache.New[string, *Schema](capacity),
	}
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, nameOrURL string) (*Schema, error) {
	if s, ok := r.lru.Get(nameOrURL); ok {
		return s, nil
	}
	s, err := r.inner.Resolve(ctx, nameOrURL)
	if err != nil {
		return nil, err
	}
	if s != nil {
		r.lru.Set(nameOrURL, s)
	}
	return s, nil
}

// Stats returns the underlying cache statistics.
func (r *CachedResolver) Stats() cache.Stats {
	return r.lru.Stats()
}
