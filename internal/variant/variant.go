// Package variant dispatches polymorphic resource definitions. Collections
// such as download clients and indexers hold many concrete kinds behind one
// interface; a registry maps both the local configuration `type` aliases and
// the remote implementation discriminator to a factory for the concrete kind.
package variant

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps discriminator strings to factories for one variant family.
type Registry[T any] struct {
	family string
	byType map[string]registration[T]
	byImpl map[string]registration[T]
}

type registration[T any] struct {
	impl    string
	factory func() T
}

// NewRegistry creates an empty registry; family names the collection in
// error messages ("download client", "indexer", ...).
func NewRegistry[T any](family string) *Registry[T] {
	return &Registry[T]{
		family: family,
		byType: map[string]registration[T]{},
		byImpl: map[string]registration[T]{},
	}
}

// Register adds a variant under its canonical remote implementation string
// and one or more local type aliases. The factory must return a fresh value
// carrying the variant's defaults.
func (r *Registry[T]) Register(impl string, types []string, factory func() T) {
	reg := registration[T]{impl: impl, factory: factory}
	r.byImpl[strings.ToLower(impl)] = reg
	for _, t := range types {
		r.byType[strings.ToLower(t)] = reg
	}
}

// ForType returns a fresh instance for a local configuration type alias.
func (r *Registry[T]) ForType(typ string) (T, error) {
	reg, ok := r.byType[strings.ToLower(typ)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s type %q (supported: %s)",
			r.family, typ, strings.Join(r.Types(), ", "))
	}
	return reg.factory(), nil
}

// ForImplementation returns a fresh instance for a remote implementation
// discriminator, matched case-insensitively. An unknown discriminator means
// the remote holds a resource this program cannot represent and is fatal.
func (r *Registry[T]) ForImplementation(impl string) (T, error) {
	reg, ok := r.byImpl[strings.ToLower(impl)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unsupported %s implementation %q on the remote instance", r.family, impl)
	}
	return reg.factory(), nil
}

// Types lists the registered local type aliases in sorted order.
func (r *Registry[T]) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
