// Package engine provides the FHIR Schema document validator.
//
// A Validator enumerates the element tree of the requested schemas and
// walks a document against it in lock-step, collecting typed errors.
// Validation is exhaustive: one element's violation never prevents
// checking its siblings, and results carry every detected violation
// exactly once at its originating path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	fs "github.com/fhirschema/fhirschema-go"
	"github.com/fhirschema/fhirschema-go/elements"
	"github.com/fhirschema/fhirschema-go/schema"
)

// Validator validates documents against FHIR Schemas.
// It is safe for concurrent use as long as its resolver is.
type Validator struct {
	resolver schema.Resolver
	options  *fs.Options
	metrics  *fs.Metrics

	workerPool     chan struct{}
	workerPoolOnce sync.Once
}

// New creates a Validator over the given schema resolver.
func New(resolver schema.Resolver, opts ...fs.Option) (*Validator, error) {
	if resolver == nil {
		return nil, errors.New("engine: nil resolver")
	}

	options := fs.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.SchemaCacheSize > 0 {
		resolver = schema.NewCachedResolver(resolver, options.SchemaCacheSize)
	}

	return &Validator{
		resolver: resolver,
		options:  options,
		metrics:  fs.NewMetrics(),
	}, nil
}

// Validate checks data against the merged element tree of schemaNames.
// The returned result lists every violation found; an empty list
// signals conformance. Enumeration failures for the requested schemas
// surface as errors in the result rather than aborting the call.
func (v *Validator) Validate(ctx context.Context, schemaNames []string, data any) *fs.Result {
	start := time.Now()
	result := v.newResult()

	set, err := elements.Enumerate(ctx, v.resolver, schemaNames)
	v.metrics.RecordEnumeration()
	if err != nil {
		result.Add(enumerationError(err, nil))
		v.metrics.RecordValidation(time.Since(start), len(result.Errors))
		return result
	}

	doc, ok := data.(map[string]any)
	if !ok {
		result.Add(fs.ValidationError{
			Type:    fs.ErrorTypeMismatch,
			Message: fmt.Sprintf("document must be an object, got %T", data),
			Got:     data,
		})
		v.metrics.RecordValidation(time.Since(start), len(result.Errors))
		return result
	}

	w := v.newWalk(ctx, result)
	w.object(nil, set, doc)

	v.metrics.RecordValidation(time.Since(start), len(result.Errors))
	return result
}

// ValidateJSON decodes raw JSON and validates it.
func (v *Validator) ValidateJSON(ctx context.Context, schemaNames []string, raw []byte) *fs.Result {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		result := v.newResult()
		result.Add(fs.ValidationError{
			Type:    fs.ErrorTypeMismatch,
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result
	}
	return v.Validate(ctx, schemaNames, data)
}

// ValidateBatch validates multiple raw JSON documents against the same
// schema set in parallel. Results are returned in input order.
func (v *Validator) ValidateBatch(ctx context.Context, schemaNames []string, docs [][]byte) []*fs.Result {
	results := make([]*fs.Result, len(docs))

	v.workerPoolOnce.Do(func() {
		workers := v.options.WorkerCount
		if workers <= 0 {
			workers = 4
		}
		v.workerPool = make(chan struct{}, workers)
	})

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(idx int, raw []byte) {
			defer wg.Done()

			v.workerPool <- struct{}{}
			defer func() { <-v.workerPool }()

			results[idx] = v.ValidateJSON(ctx, schemaNames, raw)
		}(i, doc)
	}

	wg.Wait()
	return results
}

// EnumerateElements returns the merged, inheritance-flattened element
// mapping for schemaNames.
func (v *Validator) EnumerateElements(ctx context.Context, schemaNames []string) (map[string]*elements.Element, error) {
	v.metrics.RecordEnumeration()
	return elements.EnumerateElements(ctx, v.resolver, schemaNames)
}

// Metrics returns the validator's metrics.
func (v *Validator) Metrics() *fs.Metrics {
	return v.metrics
}

// Options returns the validator's configuration.
func (v *Validator) Options() *fs.Options {
	return v.options
}

func (v *Validator) newResult() *fs.Result {
	if v.options.EnablePooling {
		return fs.AcquireResult()
	}
	return fs.NewResult()
}

func (v *Validator) newWalk(ctx context.Context, result *fs.Result) *walk {
	return &walk{
		ctx:      ctx,
		resolver: v.resolver,
		opts:     v.options,
		result:   result,
		types:    make(map[string]*typeInfo),
	}
}

// enumerationError converts an enumeration failure into its reported
// form. Resolver transport failures are reported as schema-not-found
// with the underlying message.
func enumerationError(err error, path fs.Path) fs.ValidationError {
	var nf *elements.NotFoundError
	if errors.As(err, &nf) {
		return fs.ValidationError{
			Type:    fs.ErrorSchemaNotFound,
			Path:    path,
			Schema:  nf.Schema,
			Message: err.Error(),
		}
	}
	var cyc *elements.CycleError
	if errors.As(err, &cyc) {
		return fs.ValidationError{
			Type:    fs.ErrorCyclicBase,
			Path:    path,
			Schema:  cyc.Schema,
			Message: err.Error(),
		}
	}
	return fs.ValidationError{
		Type:    fs.ErrorSchemaNotFound,
		Path:    path,
		Message: err.Error(),
	}
}
