package elements

import (
	"sort"

	"github.com/fhirschema/fhirschema-go/schema"
)

// Clone returns a deep copy of the element. Pointer-typed scalar
// attributes (Min, Max, Binding) are shared; they are never mutated
// after enumeration.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := *e
	out.Refers = append([]string(nil), e.Refers...)
	out.Choices = append([]string(nil), e.Choices...)
	out.Required = append([]string(nil), e.Required...)
	out.Excluded = append([]string(nil), e.Excluded...)
	out.DefinedIn = append([]string(nil), e.DefinedIn...)
	if e.Constraints != nil {
		out.Constraints = make(map[string]schema.Constraint, len(e.Constraints))
		for k, v := range e.Constraints {
			out.Constraints[k] = v
		}
	}
	if e.Slices != nil {
		out.Slices = make(map[string]*Slice, len(e.Slices))
		for k, v := range e.Slices {
			out.Slices[k] = v
		}
	}
	if e.Children != nil {
		out.Children = make(map[string]*Element, len(e.Children))
		for k, v := range e.Children {
			out.Children[k] = v
		}
	}
	return &out
}

// merge overlays src onto dst with the same override semantics as
// schema-level merging. Shared children are cloned before they are
// written to, so enumerated trees held elsewhere stay intact.
func (dst *Element) merge(src *Element) {
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Array {
		dst.Array, dst.Scalar = true, false
	}
	if src.Scalar {
		dst.Scalar, dst.Array = true, false
	}
	if src.Min != nil {
		dst.Min = src.Min
	}
	if src.Max != nil {
		dst.Max = src.Max
	}
	if src.Binding != nil {
		dst.Binding = src.Binding
	}
	if src.Fixed != nil {
		dst.Fixed = src.Fixed
	}
	if src.Pattern != nil {
		dst.Pattern = src.Pattern
	}
	if src.ChoiceOf != "" {
		dst.ChoiceOf = src.ChoiceOf
	}
	if src.Modifier {
		dst.Modifier = true
	}
	if src.MustSupport {
		dst.MustSupport = true
	}
	if src.Summary {
		dst.Summary = true
	}

	dst.Refers = appendUniqueAll(dst.Refers, src.Refers)
	dst.Choices = appendUniqueAll(dst.Choices, src.Choices)
	dst.Required = appendUniqueAll(dst.Required, src.Required)
	dst.Excluded = appendUniqueAll(dst.Excluded, src.Excluded)
	dst.DefinedIn = appendUniqueAll(dst.DefinedIn, src.DefinedIn)

	if len(src.Constraints) > 0 {
		if dst.Constraints == nil {
			dst.Constraints = make(map[string]schema.Constraint, len(src.Constraints))
		}
		for k, v := range src.Constraints {
			dst.Constraints[k] = v
		}
	}
	if len(src.Slices) > 0 {
		if dst.Slices == nil {
			dst.Slices = make(map[string]*Slice, len(src.Slices))
		}
		for k, v := range src.Slices {
			dst.Slices[k] = v
		}
	}
	if len(src.Children) > 0 {
		if dst.Children == nil {
			dst.Children = make(map[string]*Element, len(src.Children))
		}
		for _, name := range sortedElemKeys(src.Children) {
			child := src.Children[name]
			if existing, ok := dst.Children[name]; ok {
				merged := existing.Clone()
				merged.merge(child)
				dst.Children[name] = merged
			} else {
				dst.Children[name] = child
			}
		}
	}
}

// ChildSet builds the element set in effect inside el: the enumerated
// set of its declared type (base, may be nil for inline-only composite
// elements) overlaid with el's inline children and nested
// required/excluded sets.
func ChildSet(base *Set, el *Element) *Set {
	out := &Set{
		Elements:    make(map[string]*Element),
		Constraints: make(map[string]schema.Constraint),
	}
	if base != nil {
		for k, v := range base.Elements {
			out.Elements[k] = v
		}
		out.Required = append(out.Required, base.Required...)
		out.Excluded = append(out.Excluded, base.Excluded...)
		for k, v := range base.Constraints {
			out.Constraints[k] = v
		}
		out.Schemas = append(out.Schemas, base.Schemas...)
	}
	if el != nil {
		for _, name := range sortedElemKeys(el.Children) {
			child := el.Children[name]
			if existing, ok := out.Elements[name]; ok {
				merged := existing.Clone()
				merged.merge(child)
				out.Elements[name] = merged
			} else {
				out.Elements[name] = child
			}
		}
		out.Required = appendUniqueAll(out.Required, el.Required)
		out.Excluded = appendUniqueAll(out.Excluded, el.Excluded)
		for k, v := range el.Constraints {
			out.Constraints[k] = v
		}
	}
	return out
}

// Names returns the element names of the set in sorted order.
func (s *Set) Names() []string {
	return sortedElemKeys(s.Elements)
}

func sortedElemKeys(m map[string]*Element) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
