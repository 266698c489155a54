package aggregate

import (
	"github.com/roach88/rowhash/internal/row"
	"github.com/roach88/rowhash/internal/schema"
	"github.com/roach88/rowhash/internal/store"
)

// Aggregator binds a validated registry to a store and exposes the
// hash-aware operations: derive digests on insert, run the master/part
// protocol, and resolve digests back to rows.
//
// An Aggregator is stateless apart from its configuration and safe for
// concurrent use once constructed.
type Aggregator struct {
	st     *store.Store
	reg    *schema.Registry
	dig    row.Digester
	tokens TokenGenerator
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDigester overrides the default MD5 digest function.
func WithDigester(d row.Digester) Option {
	return func(a *Aggregator) { a.dig = d }
}

// WithTokenGenerator overrides the default UUIDv7 audit token source.
// Tests use FixedGenerator here for deterministic event output.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(a *Aggregator) { a.tokens = g }
}

// New creates an Aggregator over the given store and registry.
func New(st *store.Store, reg *schema.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		st:     st,
		reg:    reg,
		dig:    row.MD5{},
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the registry the aggregator operates on.
func (a *Aggregator) Registry() *schema.Registry { return a.reg }

// Store returns the backing store.
func (a *Aggregator) Store() *store.Store { return a.st }
