package elements

import (
	"context"
	"errors"
	"sort"

	"github.com/fhirschema/fhirschema-go/schema"
)

// Enumerate resolves every schema in names, flattens each base chain,
// and deep-merges the contributions into a single Set. Names are
// processed in caller order; within one name the base chain contributes
// root first, so more specific schemas override their ancestors.
//
// Enumeration fails as a whole with a NotFoundError or CycleError when
// a requested schema or one of its ancestors cannot be resolved into an
// acyclic chain. The resolver is the only side channel; enumeration
// itself is read-only.
func Enumerate(ctx context.Context, resolver schema.Resolver, names []string) (*Set, error) {
	if resolver == nil {
		return nil, errors.New("elements: nil resolver")
	}

	set := &Set{
		Elements:    make(map[string]*Element),
		Constraints: make(map[string]schema.Constraint),
	}
	for _, name := range names {
		chain, err := resolveChain(ctx, resolver, name)
		if err != nil {
			return nil, err
		}
		for _, sc := range chain {
			set.apply(sc)
		}
	}
	return set, nil
}

// EnumerateElements is a convenience wrapper returning only the merged
// element mapping.
func EnumerateElements(ctx context.Context, resolver schema.Resolver, names []string) (map[string]*Element, error) {
	set, err := Enumerate(ctx, resolver, names)
	if err != nil {
		return nil, err
	}
	return set.Elements, nil
}

// resolveChain resolves name and its ancestors, returned root first.
// A visited set over every identity a schema answers to (requested
// name, declared name, URL) detects base cycles.
func resolveChain(ctx context.Context, resolver schema.Resolver, name string) ([]*schema.Schema, error) {
	var chain []*schema.Schema
	seen := make(map[string]bool)

	cur := name
	for cur != "" {
		if seen[cur] {
			return nil, &CycleError{Schema: cur}
		}
		seen[cur] = true

		sc, err := resolver.Resolve(ctx, cur)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			return nil, &NotFoundError{Schema: cur}
		}
		for _, id := range []string{sc.Name, sc.URL} {
			if id == "" || id == cur {
				continue
			}
			if seen[id] {
				return nil, &CycleError{Schema: id}
			}
			seen[id] = true
		}

		chain = append(chain, sc)
		cur = sc.Base
	}

	// Reverse to root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// apply merges one schema's contribution into the set.
func (s *Set) apply(sc *schema.Schema) {
	id := sc.ID()
	s.Schemas = appendUnique(s.Schemas, id)
	s.Required = appendUniqueAll(s.Required, sc.Required)
	s.Excluded = appendUniqueAll(s.Excluded, sc.Excluded)
	for key, c := range sc.Constraints {
		s.Constraints[key] = c
	}

	for _, name := range sortedDefKeys(sc.Elements) {
		def := sc.Elements[name]
		el, ok := s.Elements[name]
		if !ok {
			el = &Element{}
			s.Elements[name] = el
		}
		mergeDefinition(el, def, id)
	}
}

// mergeDefinition merges one schema's definition of an element into its
// enumerated form. Scalar attributes are replaced; set-valued ones are
// unioned preserving first-seen order; nested elements merge
// recursively. The contributing schema is appended to DefinedIn once.
func mergeDefinition(dst *Element, src *schema.Element, schemaID string) {
	dst.DefinedIn = appendUnique(dst.DefinedIn, schemaID)

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

	if len(src.Constraints) > 0 {
		if dst.Constraints == nil {
			dst.Constraints = make(map[string]schema.Constraint, len(src.Constraints))
		}
		for key, c := range src.Constraints {
			dst.Constraints[key] = c
		}
	}

	// Same-named slices from more specific schemas override ancestors.
	if src.Slicing != nil && len(src.Slicing.Slices) > 0 {
		if dst.Slices == nil {
			dst.Slices = make(map[string]*Slice, len(src.Slicing.Slices))
		}
		for name, sl := range src.Slicing.Slices {
			dst.Slices[name] = &Slice{URL: sl.URL, Min: sl.Min, Max: sl.Max}
		}
	}

	if len(src.Elements) > 0 {
		if dst.Children == nil {
			dst.Children = make(map[string]*Element, len(src.Elements))
		}
		for _, name := range sortedDefKeys(src.Elements) {
			child, ok := dst.Children[name]
			if !ok {
				child = &Element{}
				dst.Children[name] = child
			}
			mergeDefinition(child, src.Elements[name], schemaID)
		}
	}
}

func sortedDefKeys(m map[string]*schema.Element) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueAll(list []string, values []string) []string {
	for _, v := range values {
		list = appendUnique(list, v)
	}
	return list
}
