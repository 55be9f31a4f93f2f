// Package schema defines the FHIR Schema data model and the resolver
// capability through which schemas are looked up by name or URL.
package schema

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Schema kind constants.
const (
	KindPrimitiveType = "primitive-type"
	KindComplexType   = "complex-type"
	KindResource      = "resource"
	KindLogical       = "logical"
)

// Schema is a named or URL-identified type definition. Schemas are
// immutable, externally supplied inputs; two schemas with the same name
// are treated as the same schema.
type Schema struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`

	// Base names the parent schema. The effective element set of a
	// schema is the union of its own elements with those of its base
	// chain; base cycles are invalid.
	Base string `json:"base,omitempty"`

	// Kind is one of primitive-type, complex-type, resource, logical.
	Kind string `json:"kind,omitempty"`

	Elements    map[string]*Element   `json:"elements,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Excluded    []string              `json:"excluded,omitempty"`
	Constraints map[string]Constraint `json:"constraints,omitempty"`
}

// ID returns the schema's identity for provenance tracking: the URL
// when present, the name otherwise.
func (s *Schema) ID() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Name
}

// Element describes one field of a composite type.
type Element struct {
	// Type is a primitive or complex type name.
	Type string `json:"type,omitempty"`

	// Array and Scalar adjust the shape of the element. At most one is
	// set by a single schema; a more specific schema may flip either.
	Array  bool `json:"array,omitempty"`
	Scalar bool `json:"scalar,omitempty"`

	Min *int `json:"min,omitempty"`
	Max *Max `json:"max,omitempty"`

	// Binding is a value-set reference, carried structurally only.
	Binding *Binding `json:"binding,omitempty"`

	// Fixed is a literal the field must equal exactly. Pattern is a
	// partial value the field must structurally contain.
	Fixed   any `json:"fixed,omitempty"`
	Pattern any `json:"pattern,omitempty"`

	// Refers lists target types for reference elements.
	Refers []string `json:"refers,omitempty"`

	// Choices lists the sibling member names of a choice group;
	// ChoiceOf names the group a variant element belongs to.
	Choices  []string `json:"choices,omitempty"`
	ChoiceOf string   `json:"choiceOf,omitempty"`

	Modifier    bool `json:"modifier,omitempty"`
	MustSupport bool `json:"mustSupport,omitempty"`
	Summary     bool `json:"summary,omitempty"`

	// Required and Excluded apply to the element's own children.
	Required []string `json:"required,omitempty"`
	Excluded []string `json:"excluded,omitempty"`

	Constraints map[string]Constraint `json:"constraints,omitempty"`

	// Elements holds nested definitions for composite elements.
	Elements map[string]*Element `json:"elements,omitempty"`

	// Slicing constrains subsets of a repeated element's entries.
	Slicing *Slicing `json:"slicing,omitempty"`
}

// Binding is a value-set reference with a strength. Bindings are
// surfaced through enumeration but never evaluated against code
// systems.
type Binding struct {
	ValueSet string `json:"valueSet,omitempty"`
	Strength string `json:"strength,omitempty"` // required | extensible | preferred | example
}

// Constraint is an invariant expression carried for presence only;
// expressions are not evaluated.
type Constraint struct {
	Expression string `json:"expression,omitempty"`
	Human      string `json:"human,omitempty"`
	Severity   string `json:"severity,omitempty"` // error | warning
}

// Slicing holds the named slices of a repeated element.
type Slicing struct {
	Slices map[string]*Slice `json:"slices,omitempty"`
}

// Slice constrains the subset of a repeated element's entries whose
// discriminator matches. For extension-shaped slices the discriminator
// is the entry's url field.
type Slice struct {
	URL string `json:"url,omitempty"`
	Min *int   `json:"min,omitempty"`
	Max *Max   `json:"max,omitempty"`
}

// Max is an upper cardinality bound. It decodes from a JSON number or
// from the unbounded marker "*".
type Max struct {
	Unbounded bool
	Value     int
}

// MaxN returns a bounded Max.
func MaxN(n int) *Max {
	return &Max{Value: n}
}

// MaxUnbounded returns the unbounded marker.
func MaxUnbounded() *Max {
	return &Max{Unbounded: true}
}

// Allows reports whether a count satisfies the bound.
func (m *Max) Allows(count int) bool {
	return m.Unbounded || count <= m.Value
}

// String returns the bound in its wire form.
func (m *Max) String() string {
	if m.Unbounded {
		return "*"
	}
	return strconv.Itoa(m.Value)
}

// MarshalJSON encodes bounded values as numbers and the unbounded
// marker as "*".
func (m Max) MarshalJSON() ([]byte, error) {
	if m.Unbounded {
		return []byte(`"*"`), nil
	}
	return []byte(strconv.Itoa(m.Value)), nil
}

// UnmarshalJSON accepts a number, a numeric string, or the markers
// "*" and "unbounded".
func (m *Max) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "*" || s == "unbounded" {
			m.Unbounded = true
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("schema: invalid max %q", s)
		}
		m.Value = v
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("schema: invalid max %s", data)
	}
	m.Value = v
	return nil
}

// FromJSON decodes a single schema from its JSON form.
func FromJSON(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	return &s, nil
}
