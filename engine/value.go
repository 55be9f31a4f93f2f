package engine

import (
	"context"
	"fmt"
	"strconv"

	fs "github.com/fhirschema/fhirschema-go"
	"github.com/fhirschema/fhirschema-go/elements"
	"github.com/fhirschema/fhirschema-go/primitive"
	"github.com/fhirschema/fhirschema-go/schema"
)

// ValidateElementValue enumerates the elements of schemaNames, resolves
// the element addressed by path, and validates value against its leaf
// rules: primitive type conformance, fixed-value equality, and pattern
// structural match. An unresolvable path yields a single invalid-path
// error and no value check is performed.
func (v *Validator) ValidateElementValue(ctx context.Context, schemaNames []string, path []string, value any) *fs.Result {
	result := v.newResult()

	set, err := elements.Enumerate(ctx, v.resolver, schemaNames)
	v.metrics.RecordEnumeration()
	if err != nil {
		result.Add(enumerationError(err, fs.Path(path)))
		return result
	}

	w := v.newWalk(ctx, result)
	el := w.resolvePath(set, path)
	if el == nil {
		result.Add(fs.ValidationError{
			Type:    fs.ErrorInvalidPath,
			Path:    fs.Path(path),
			Message: fmt.Sprintf("no element at path %q", fs.Path(path)),
		})
		return result
	}

	w.leaf(fs.Path(path), el, value)
	return result
}

// resolvePath descends the enumerated tree along path. Numeric segments
// address array entries and resolve to the same element; descent into a
// complex type re-enters enumeration for that type.
func (w *walk) resolvePath(set *elements.Set, path []string) *elements.Element {
	var el *elements.Element
	current := set
	for _, segment := range path {
		if _, err := strconv.Atoi(segment); err == nil && el != nil {
			continue
		}
		if current == nil {
			return nil
		}
		next, ok := current.Elements[segment]
		if !ok {
			return nil
		}
		el = next
		current = w.childSet(el)
	}
	return el
}

// childSet builds the element set in effect inside el, or nil when el
// is a leaf.
func (w *walk) childSet(el *elements.Element) *elements.Set {
	var base *elements.Set
	if el.Type != "" {
		ti := w.typeInfo(el.Type)
		if ti.err == nil {
			if ti.kind == schema.KindPrimitiveType && len(el.Children) == 0 {
				return nil
			}
			if ti.kind != schema.KindPrimitiveType {
				base = ti.set
			}
		} else if len(el.Children) == 0 {
			return nil
		}
	} else if len(el.Children) == 0 {
		return nil
	}
	return elements.ChildSet(base, el)
}

// leaf applies the per-value rules shared by document validation and
// ValidateElementValue: fixed equality, pattern match, and primitive
// lexical conformance.
func (w *walk) leaf(path fs.Path, el *elements.Element, value any) {
	if el.Fixed != nil && !valueEqual(el.Fixed, value) {
		w.add(fs.ValidationError{
			Type:     fs.ErrorTypeMismatch,
			Path:     path,
			Expected: el.Fixed,
			Got:      value,
			Message:  "value does not equal the fixed value",
		})
	}
	if el.Pattern != nil && !patternMatches(el.Pattern, value) {
		w.add(fs.ValidationError{
			Type:     fs.ErrorTypeMismatch,
			Path:     path,
			Expected: el.Pattern,
			Got:      value,
			Message:  "value does not match the pattern value",
		})
	}

	if el.Type == "" {
		return
	}
	ti := w.typeInfo(el.Type)
	isPrimitive := (ti.err == nil && ti.kind == schema.KindPrimitiveType) ||
		(ti.err != nil && primitive.IsKnown(el.Type))
	if !isPrimitive {
		return
	}
	if err := primitive.Validate(el.Type, value); err != nil {
		w.add(fs.ValidationError{
			Type:     fs.ErrorTypeMismatch,
			Path:     path,
			Expected: el.Type,
			Got:      value,
			Message:  err.Error(),
		})
	}
}

// valueEqual is deep equality over decoded JSON values. Numeric values
// compare by magnitude so that schema literals and document values
// agree regardless of their decoded Go type.
func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, sub := range av {
			other, ok := bv[k]
			if !ok || !valueEqual(sub, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		if af, aok := toFloat(a); aok {
			bf, bok := toFloat(b)
			return bok && af == bf
		}
		return a == b
	}
}

// patternMatches reports whether value structurally contains pattern:
// every pattern map key must be present and match; every pattern array
// item must match some entry of the value array; scalars must be equal.
// Extra sibling fields on the value are permitted.
func patternMatches(pattern, value any) bool {
	switch pv := pattern.(type) {
	case map[string]any:
		m, ok := value.(map[string]any)
		if !ok {
			return false
		}
		for k, sub := range pv {
			other, ok := m[k]
			if !ok || !patternMatches(sub, other) {
				return false
			}
		}
		return true
	case []any:
		arr, ok := value.([]any)
		if !ok {
			return false
		}
		for _, sub := range pv {
			found := false
			for _, item := range arr {
				if patternMatches(sub, item) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return valueEqual(pattern, value)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
