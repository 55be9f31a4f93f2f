package fhirschema

import (
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// ErrorType classifies a validation error.
type ErrorType string

// Error type constants.
const (
	ErrorSchemaNotFound   ErrorType = "schema-not-found"
	ErrorCyclicBase       ErrorType = "cyclic-base"
	ErrorTypeMismatch     ErrorType = "type-mismatch"
	ErrorCardinality      ErrorType = "cardinality"
	ErrorSliceCardinality ErrorType = "slice-cardinality"
	ErrorUnknownElement   ErrorType = "unknown-element"
	ErrorRequiredElement  ErrorType = "required-element-missing"
	ErrorExcludedElement  ErrorType = "excluded-element-present"
	ErrorChoiceConflict   ErrorType = "choice-conflict"
	ErrorUnmatchedSlice   ErrorType = "unmatched-slice"
	ErrorInvalidPath      ErrorType = "invalid-path"
)

// Path locates a validation error within a document as an ordered
// sequence of element names and array indices.
//
// On the wire a path is either a single string (element-level errors
// close to the root) or an array of segments; both forms decode into a
// Path and callers must accept both.
type Path []string

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new Path extended by one segment.
// The returned path does not alias p.
func (p Path) Child(segment string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, segment)
}

// MarshalJSON encodes single-segment paths as a plain string and longer
// paths as an array of segments.
func (p Path) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(p[0])
	}
	return json.Marshal([]string(p))
}

// UnmarshalJSON accepts both the string and the array form.
func (p *Path) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Path{s}
		return nil
	}
	var segments []string
	if err := json.Unmarshal(data, &segments); err != nil {
		return err
	}
	*p = segments
	return nil
}

// ValidationError is a single structural violation found during
// validation. Type is always set; the remaining fields are populated
// per kind.
type ValidationError struct {
	// Type is the error kind.
	Type ErrorType `json:"type"`

	// Path locates the offending value in the document.
	Path Path `json:"path,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`

	// Schema names the schema that could not be resolved or whose base
	// chain cycles (schema-not-found, cyclic-base).
	Schema string `json:"schema,omitempty"`

	// Element names the element a required/excluded/choice error refers to.
	Element string `json:"element,omitempty"`

	// Slice names the slice for slice-cardinality errors.
	Slice string `json:"slice,omitempty"`

	// Expected and Got carry the mismatched values for type and
	// fixed-value errors.
	Expected any `json:"expected,omitempty"`
	Got      any `json:"got,omitempty"`

	// Count is the observed entry count for cardinality errors.
	Count *int `json:"count,omitempty"`
}

// Result holds the errors collected by one validation call.
// An empty error list signals conformance.
type Result struct {
	Errors []ValidationError `json:"errors"`
}

// defaultErrorCapacity is the pre-allocated capacity for the error
// slice. Most validations produce fewer than 16 errors.
const defaultErrorCapacity = 16

var resultPool = sync.Pool{
	New: func() any {
		return &Result{Errors: make([]ValidationError, 0, defaultErrorCapacity)}
	},
}

// NewResult creates a new empty Result with pre-allocated capacity.
func NewResult() *Result {
	return &Result{Errors: make([]ValidationError, 0, defaultErrorCapacity)}
}

// AcquireResult returns a Result from the pool.
// Call Release when done to return it to the pool.
func AcquireResult() *Result {
	r, ok := resultPool.Get().(*Result)
	if !ok {
		r = NewResult()
	}
	r.Errors = r.Errors[:0]
	return r
}

// Release returns the Result to the pool for reuse.
// Do not use the Result after calling Release.
func (r *Result) Release() {
	if r == nil {
		return
	}
	for i := range r.Errors {
		r.Errors[i] = ValidationError{}
	}
	// Don't pool results with oversized error slices.
	if cap(r.Errors) <= 1024 {
		r.Errors = r.Errors[:0]
		resultPool.Put(r)
	}
}

// Valid reports whether the validation found no errors.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Add appends an error to the result.
func (r *Result) Add(e ValidationError) {
	r.Errors = append(r.Errors, e)
}

// AddError appends an error built from the common fields.
func (r *Result) AddError(t ErrorType, path Path, message string) {
	r.Errors = append(r.Errors, ValidationError{Type: t, Path: path, Message: message})
}

// Merge appends another result's errors into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
}

// CountByType returns the number of errors of the given kind.
func (r *Result) CountByType(t ErrorType) int {
	n := 0
	for i := range r.Errors {
		if r.Errors[i].Type == t {
			n++
		}
	}
	return n
}
