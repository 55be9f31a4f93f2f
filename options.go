package fhirschema

import "runtime"

// Option configures the validation engine.
type Option func(*Options)

// Options holds all configuration for the validation engine.
type Options struct {
	// ClosedSlicing reports array entries that match no declared slice
	// of a sliced element as unmatched-slice errors. When false
	// (the default), unmatched entries are validated only against the
	// unsliced base element definition and accepted.
	ClosedSlicing bool

	// MaxErrors stops collecting after this many errors. 0 means
	// unlimited.
	MaxErrors int

	// SchemaCacheSize is the capacity of the LRU cache placed in front
	// of the schema resolver. 0 disables caching.
	SchemaCacheSize int

	// WorkerCount is the number of workers used for batch validation.
	WorkerCount int

	// EnablePooling serves results from a sync.Pool. Pooled results
	// must be returned with Release.
	EnablePooling bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ClosedSlicing:   false,
		MaxErrors:       0, // unlimited
		SchemaCacheSize: 256,
		WorkerCount:     runtime.NumCPU(),
		EnablePooling:   true,
	}
}

// WithClosedSlicing makes sliced elements closed: entries matching no
// declared slice are reported as unmatched-slice errors.
func WithClosedSlicing(closed bool) Option {
	return func(o *Options) {
		o.ClosedSlicing = closed
	}
}

// WithMaxErrors sets the maximum number of errors before collection
// stops. Use 0 for unlimited.
func WithMaxErrors(max int) Option {
	return func(o *Options) {
		o.MaxErrors = max
	}
}

// WithSchemaCacheSize sets the resolver LRU cache capacity.
// Use 0 to resolve every schema lookup through the caller's resolver.
func WithSchemaCacheSize(size int) Option {
	return func(o *Options) {
		if size >= 0 {
			o.SchemaCacheSize = size
		}
	}
}

// WithWorkerCount sets the number of workers for batch validation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithPooling enables or disables result pooling.
// Pooling reduces GC pressure but requires calling Release on results.
func WithPooling(enable bool) Option {
	return func(o *Options) {
		o.EnablePooling = enable
	}
}

// StrictOptions returns options for strict validation: schemas are
// closed over declared slices.
func StrictOptions() []Option {
	return []Option{
		WithClosedSlicing(true),
	}
}
