// Package elements enumerates the complete, inheritance-flattened
// element set of one or more FHIR Schemas.
//
// Enumeration resolves each requested schema's base chain through the
// resolver, then deep-merges element definitions across the ordered
// list of contributing schemas: ancestors first (root to leaf), then
// the requested schemas in caller order. Later contributors override
// scalar attributes and extend set-valued ones. Every element keeps
// provenance of the schemas that touched it.
package elements

import (
	"fmt"

	"github.com/fhirschema/fhirschema-go/schema"
)

// Element is an enumerated element: the merged element definition plus
// provenance and flattened slice metadata. Elements form a tree
// mirroring the schema's nested structure; the tree is the single
// source of truth consumed by validation.
type Element struct {
	Type     string
	Array    bool
	Scalar   bool
	Min      *int
	Max      *schema.Max
	Binding  *schema.Binding
	Fixed    any
	Pattern  any
	Refers   []string
	Choices  []string
	ChoiceOf string

	Modifier    bool
	MustSupport bool
	Summary     bool

	// Required and Excluded constrain the element's own children.
	Required []string
	Excluded []string

	Constraints map[string]schema.Constraint

	// Slices maps slice name to discriminator metadata when the
	// element is sliced.
	Slices map[string]*Slice

	// Children holds nested enumerated elements of composite elements.
	Children map[string]*Element

	// DefinedIn lists, in first-seen order, the schemas that
	// contributed to or constrained this element.
	DefinedIn []string
}

// Slice is the merged discriminator metadata of one named slice.
type Slice struct {
	URL string
	Min *int
	Max *schema.Max
}

// Set is the result of enumerating a list of schema names: the merged
// element mapping plus the merged top-level required/excluded sets and
// constraints.
type Set struct {
	// Elements maps element name to its enumerated definition.
	Elements map[string]*Element

	// Required and Excluded are the effective top-level sets merged
	// across all contributing schemas.
	Required []string
	Excluded []string

	Constraints map[string]schema.Constraint

	// Schemas lists the contributing schema identities in merge order.
	Schemas []string
}

// NotFoundError reports a schema name that the resolver could not
// resolve.
type NotFoundError struct {
	Schema string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema %q not found", e.Schema)
}

// CycleError reports a base chain that revisits one of its ancestors.
type CycleError struct {
	Schema string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic base chain through schema %q", e.Schema)
}
