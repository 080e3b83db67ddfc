// Package connector implements the Source and Destination interfaces
// SQLFlow's SOURCE/LOAD and EXPORT operations drive (spec §6.4): a
// pluggable boundary between the pipeline and external systems.
package connector

import (
	"context"
)

// Row is one record moving through a streaming Source or Destination; the
// key set matches the source schema (CSV header, query column names, ...).
type Row map[string]any

// Source reads external data into the analytic engine. Every concrete
// source wraps a CanExecute/Execute-style contract: Open validates params and
// establishes the handle, Rows streams the data.
type Source interface {
	// Type is the connector type name used in SOURCE ... TYPE <name> (e.g.
	// "CSV", "POSTGRES").
	Type() string

	// Open validates params (immutable for the lifetime of the handle,
	// per spec §5's "SourceHandles are immutable after registration") and
	// prepares the connector to stream.
	Open(ctx context.Context, params map[string]any) error

	// Rows streams rows to fn in chunks; fn returning an error aborts the
	// stream. Implementations must respect ctx cancellation between
	// chunks.
	Rows(ctx context.Context, fn func(chunk []Row) error) error

	// Close releases any resources Open acquired.
	Close() error
}

// Destination writes pipeline output to an external system (EXPORT).
type Destination interface {
	Type() string

	// Write streams rows to the destination described by uri, honoring
	// the connector-specific options bag from the EXPORT OPTIONS clause.
	Write(ctx context.Context, uri string, options map[string]any, rows func(yield func(Row) bool)) error
}

// Registry resolves a connector type name to a constructor, letting the
// coordinator build source/destination handles without a type switch.
type Registry struct {
	sources      map[string]func() Source
	destinations map[string]func() Destination
}

// NewRegistry returns an empty Registry; callers populate it with
// RegisterSource/RegisterDestination.
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]func() Source),
		destinations: make(map[string]func() Destination),
	}
}

// RegisterSource associates a connector type name with a Source
// constructor.
func (r *Registry) RegisterSource(typeName string, ctor func() Source) {
	r.sources[typeName] = ctor
}

// RegisterDestination associates a connector type name with a Destination
// constructor.
func (r *Registry) RegisterDestination(typeName string, ctor func() Destination) {
	r.destinations[typeName] = ctor
}

// NewSource constructs a fresh Source handle for typeName, or reports
// ok=false if no connector is registered under that name.
func (r *Registry) NewSource(typeName string) (Source, bool) {
	ctor, ok := r.sources[typeName]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// NewDestination constructs a fresh Destination handle for typeName, or
// reports ok=false if no connector is registered under that name.
func (r *Registry) NewDestination(typeName string) (Destination, bool) {
	ctor, ok := r.destinations[typeName]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Default returns a Registry pre-populated with the connectors SQLFlow
// ships: CSV (source and destination) and Postgres (source). S3 and REST
// are left unregistered; see DESIGN.md.
func Default() *Registry {
	r := NewRegistry()
	r.RegisterSource("CSV", func() Source { return NewCSVSource() })
	r.RegisterDestination("CSV", func() Destination { return NewCSVDestination() })
	r.RegisterSource("POSTGRES", func() Source { return NewPostgresSource() })
	return r
}
