package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	fs "github.com/fhirschema/fhirschema-go"
	"github.com/fhirschema/fhirschema-go/elements"
	"github.com/fhirschema/fhirschema-go/primitive"
	"github.com/fhirschema/fhirschema-go/schema"
)

// walk carries the state of one validation call. Type enumerations are
// memoized for the duration of the call only.
type walk struct {
	ctx      context.Context
	resolver schema.Resolver
	opts     *fs.Options
	result   *fs.Result

	types map[string]*typeInfo
}

// typeInfo memoizes one type-name lookup: the schema kind plus its
// enumerated element set, or the enumeration failure.
type typeInfo struct {
	kind string
	set  *elements.Set
	err  error
}

func (w *walk) typeInfo(name string) *typeInfo {
	if ti, ok := w.types[name]; ok {
		return ti
	}
	ti := &typeInfo{}
	sc, err := w.resolver.Resolve(w.ctx, name)
	switch {
	case err != nil:
		ti.err = err
	case sc == nil:
		ti.err = &elements.NotFoundError{Schema: name}
	default:
		ti.kind = sc.Kind
		ti.set, ti.err = elements.Enumerate(w.ctx, w.resolver, []string{name})
	}
	w.types[name] = ti
	return ti
}

// add appends an error, honoring MaxErrors.
func (w *walk) add(e fs.ValidationError) {
	if w.opts.MaxErrors > 0 && len(w.result.Errors) >= w.opts.MaxErrors {
		return
	}
	w.result.Add(e)
}

func (w *walk) addEnumerationError(path fs.Path, err error) {
	w.add(enumerationError(err, path))
}

// object checks one keyed structure against the element set in effect
// at its position: required/excluded sets, choice exclusivity, unknown
// keys, then each present element. Keys are visited in sorted order so
// repeated runs produce identical error lists.
func (w *walk) object(path fs.Path, set *elements.Set, data map[string]any) {
	for _, name := range set.Required {
		el := set.Elements[name]
		if el != nil && len(el.Choices) > 0 {
			// A required choice group needs exactly one member present;
			// more than one is reported by the exclusivity check below.
			if countPresent(data, el.Choices) == 0 {
				w.add(fs.ValidationError{
					Type:    fs.ErrorRequiredElement,
					Path:    path.Child(name),
					Element: name,
					Message: fmt.Sprintf("one of %s is required", strings.Join(el.Choices, ", ")),
				})
			}
			continue
		}
		if _, ok := data[name]; !ok {
			w.add(fs.ValidationError{
				Type:    fs.ErrorRequiredElement,
				Path:    path.Child(name),
				Element: name,
				Message: fmt.Sprintf("required element %q is missing", name),
			})
		}
	}

	for _, name := range set.Excluded {
		if _, ok := data[name]; ok {
			w.add(fs.ValidationError{
				Type:    fs.ErrorExcludedElement,
				Path:    path.Child(name),
				Element: name,
				Message: fmt.Sprintf("excluded element %q is present", name),
			})
		}
	}

	for _, name := range set.Names() {
		el := set.Elements[name]
		if len(el.Choices) < 2 {
			continue
		}
		present := presentMembers(data, el.Choices)
		if len(present) > 1 {
			w.add(fs.ValidationError{
				Type:    fs.ErrorChoiceConflict,
				Path:    path.Child(name),
				Element: name,
				Message: fmt.Sprintf("choice %q allows a single member, found %s", name, strings.Join(present, ", ")),
			})
		}
	}

	for _, key := range sortedKeys(data) {
		// The resource discriminator is always an accepted key.
		if key == "resourceType" {
			continue
		}
		el, ok := set.Elements[key]
		if !ok {
			w.add(fs.ValidationError{
				Type:    fs.ErrorUnknownElement,
				Path:    path.Child(key),
				Element: key,
				Message: fmt.Sprintf("element %q is not declared", key),
			})
			continue
		}
		w.element(path.Child(key), el, data[key])
	}
}

// element checks a value's shape against the element's cardinality and
// dispatches each entry.
func (w *walk) element(path fs.Path, el *elements.Element, value any) {
	if !el.Array {
		if _, isArray := value.([]any); isArray {
			w.add(fs.ValidationError{
				Type:    fs.ErrorCardinality,
				Path:    path,
				Message: "expected a single value, got an array",
			})
			return
		}
		w.single(path, el, value)
		return
	}

	arr, ok := value.([]any)
	if !ok {
		w.add(fs.ValidationError{
			Type:    fs.ErrorCardinality,
			Path:    path,
			Message: fmt.Sprintf("expected an array, got %T", value),
		})
		return
	}

	count := len(arr)
	if el.Min != nil && count < *el.Min {
		w.add(fs.ValidationError{
			Type:    fs.ErrorCardinality,
			Path:    path,
			Count:   &count,
			Message: fmt.Sprintf("expected at least %d entries, got %d", *el.Min, count),
		})
	}
	if el.Max != nil && !el.Max.Allows(count) {
		w.add(fs.ValidationError{
			Type:    fs.ErrorCardinality,
			Path:    path,
			Count:   &count,
			Message: fmt.Sprintf("expected at most %s entries, got %d", el.Max, count),
		})
	}

	if len(el.Slices) > 0 {
		w.slices(path, el, arr)
	}

	for i, item := range arr {
		w.single(path.Child(strconv.Itoa(i)), el, item)
	}
}

// slices matches each array entry to a declared slice by its
// discriminator and checks per-slice cardinality. Entries matching no
// slice are reported only when the engine is closed over slices.
func (w *walk) slices(path fs.Path, el *elements.Element, arr []any) {
	names := make([]string, 0, len(el.Slices))
	for name := range el.Slices {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make(map[string]int, len(el.Slices))
	for i, item := range arr {
		matched := ""
		for _, name := range names {
			if sliceMatches(el.Slices[name], item) {
				matched = name
				break
			}
		}
		if matched == "" {
			if w.opts.ClosedSlicing {
				w.add(fs.ValidationError{
					Type:    fs.ErrorUnmatchedSlice,
					Path:    path.Child(strconv.Itoa(i)),
					Message: "entry matches no declared slice",
				})
			}
			continue
		}
		counts[matched]++
	}

	for _, name := range names {
		sl := el.Slices[name]
		count := counts[name]
		if sl.Min != nil && count < *sl.Min {
			c := count
			w.add(fs.ValidationError{
				Type:    fs.ErrorSliceCardinality,
				Path:    path,
				Slice:   name,
				Count:   &c,
				Message: fmt.Sprintf("slice %q expects at least %d matching entries, got %d", name, *sl.Min, count),
			})
		}
		if sl.Max != nil && !sl.Max.Allows(count) {
			c := count
			w.add(fs.ValidationError{
				Type:    fs.ErrorSliceCardinality,
				Path:    path,
				Slice:   name,
				Count:   &c,
				Message: fmt.Sprintf("slice %q expects at most %s matching entries, got %d", name, sl.Max, count),
			})
		}
	}
}

// sliceMatches applies the slice discriminator: for extension-shaped
// slices the entry's url field must equal the slice's declared url.
func sliceMatches(sl *elements.Slice, item any) bool {
	if sl.URL == "" {
		return false
	}
	m, ok := item.(map[string]any)
	if !ok {
		return false
	}
	url, _ := m["url"].(string)
	return url == sl.URL
}

// single validates one non-array value: leaf rules first, then the
// structural descent appropriate for the element's type.
func (w *walk) single(path fs.Path, el *elements.Element, value any) {
	w.leaf(path, el, value)

	// Positions typed Resource accept any resource and dispatch on the
	// document's own discriminator.
	if el.Type == "Resource" {
		w.dynamic(path, el, value, true)
		return
	}

	if el.Type != "" {
		ti := w.typeInfo(el.Type)
		switch {
		case ti.err == nil && ti.kind == schema.KindPrimitiveType:
			return // leaf already checked
		case ti.err != nil && primitive.IsKnown(el.Type):
			return
		case ti.err != nil:
			w.addEnumerationError(path, ti.err)
			return
		}
		w.composite(path, el, value, ti.set)
		return
	}

	if len(el.Children) > 0 {
		w.composite(path, el, value, nil)
		return
	}

	// No static type, no inline children: a keyed value carrying a
	// resourceType discriminator selects its own schema.
	w.dynamic(path, el, value, false)
}

// composite descends into a keyed value using the element set formed by
// its declared type overlaid with inline child definitions.
func (w *walk) composite(path fs.Path, el *elements.Element, value any, base *elements.Set) {
	m, ok := value.(map[string]any)
	if !ok {
		w.add(fs.ValidationError{
			Type:     fs.ErrorTypeMismatch,
			Path:     path,
			Expected: el.Type,
			Got:      value,
			Message:  fmt.Sprintf("expected an object, got %T", value),
		})
		return
	}
	w.object(path, elements.ChildSet(base, el), m)
}

// dynamic re-enters enumeration using the value's resourceType as the
// schema name. Unresolvable discriminators are reported in place
// without aborting sibling validation.
func (w *walk) dynamic(path fs.Path, el *elements.Element, value any, strict bool) {
	m, ok := value.(map[string]any)
	if !ok {
		if strict {
			w.add(fs.ValidationError{
				Type:    fs.ErrorTypeMismatch,
				Path:    path,
				Got:     value,
				Message: fmt.Sprintf("expected a resource object, got %T", value),
			})
		}
		return
	}
	resourceType, _ := m["resourceType"].(string)
	if resourceType == "" {
		if strict {
			w.add(fs.ValidationError{
				Type:    fs.ErrorRequiredElement,
				Path:    path.Child("resourceType"),
				Element: "resourceType",
				Message: "resource must declare a resourceType",
			})
		}
		return
	}
	ti := w.typeInfo(resourceType)
	if ti.err != nil {
		w.addEnumerationError(path, ti.err)
		return
	}
	w.object(path, elements.ChildSet(ti.set, el), m)
}

func countPresent(data map[string]any, names []string) int {
	n := 0
	for _, name := range names {
		if _, ok := data[name]; ok {
			n++
		}
	}
	return n
}

func presentMembers(data map[string]any, names []string) []string {
	var present []string
	for _, name := range names {
		if _, ok := data[name]; ok {
			present = append(present, name)
		}
	}
	return present
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
