package engine

import (
	"context"
	"testing"

	fs "github.com/fhirschema/fhirschema-go"
)

const quantitySchema = `{
  "name": "FixedQuantity",
  "kind": "complex-type",
  "elements": {
    "system": {"type": "uri", "fixed": "http://unitsofmeasure.org"},
    "value": {"type": "decimal"},
    "coding": {
      "pattern": {"system": "http://loinc.org"},
      "elements": {
        "system": {"type": "uri"},
        "code": {"type": "code"}
      }
    }
  }
}`

func newValueValidator(t *testing.T) *Validator {
	t.Helper()
	r := testResolver(t, resourceSchema, patientSchema, humanNameSchema, extensionSchema, quantitySchema)
	v, err := New(r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestValidateElementValue(t *testing.T) {
	tests := []struct {
		name     string
		schemas  []string
		path     []string
		value    any
		wantType fs.ErrorType
		wantOK   bool
	}{
		{
			name:    "valid primitive",
			schemas: []string{"Patient"},
			path:    []string{"birthDate"},
			value:   "1980-01-02",
			wantOK:  true,
		},
		{
			name:     "malformed primitive",
			schemas:  []string{"Patient"},
			path:     []string{"birthDate"},
			value:    "not-a-date",
			wantType: fs.ErrorTypeMismatch,
		},
		{
			name:     "wrong primitive kind",
			schemas:  []string{"Patient"},
			path:     []string{"active"},
			value:    "yes",
			wantType: fs.ErrorTypeMismatch,
		},
		{
			name:    "path through complex type",
			schemas: []string{"Patient"},
			path:    []string{"name", "family"},
			value:   "Chalmers",
			wantOK:  true,
		},
		{
			name:    "numeric segments address array entries",
			schemas: []string{"Patient"},
			path:    []string{"name", "0", "given", "1"},
			value:   "Peter",
			wantOK:  true,
		},
		{
			name:     "unknown root segment",
			schemas:  []string{"Patient"},
			path:     []string{"favoriteColor"},
			value:    "blue",
			wantType: fs.ErrorInvalidPath,
		},
		{
			name:     "descent below a primitive",
			schemas:  []string{"Patient"},
			path:     []string{"gender", "code"},
			value:    "female",
			wantType: fs.ErrorInvalidPath,
		},
		{
			name:    "fixed value satisfied",
			schemas: []string{"FixedQuantity"},
			path:    []string{"system"},
			value:   "http://unitsofmeasure.org",
			wantOK:  true,
		},
		{
			name:     "fixed value violated",
			schemas:  []string{"FixedQuantity"},
			path:     []string{"system"},
			value:    "http://example.org/other",
			wantType: fs.ErrorTypeMismatch,
		},
		{
			name:    "pattern satisfied with extra fields",
			schemas: []string{"FixedQuantity"},
			path:    []string{"coding"},
			value:   map[string]any{"system": "http://loinc.org", "code": "8480-6"},
			wantOK:  true,
		},
		{
			name:     "pattern violated",
			schemas:  []string{"FixedQuantity"},
			path:     []string{"coding"},
			value:    map[string]any{"system": "http://example.org/other"},
			wantType: fs.ErrorTypeMismatch,
		},
		{
			name:     "unknown schema",
			schemas:  []string{"Unicorn"},
			path:     []string{"anything"},
			value:    1,
			wantType: fs.ErrorSchemaNotFound,
		},
	}

	v := newValueValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateElementValue(context.Background(), tt.schemas, tt.path, tt.value)
			defer result.Release()

			if tt.wantOK {
				if !result.Valid() {
					t.Fatalf("errors = %+v, want none", result.Errors)
				}
				return
			}
			if len(result.Errors) != 1 || result.Errors[0].Type != tt.wantType {
				t.Fatalf("errors = %+v, want a single %s", result.Errors, tt.wantType)
			}
		})
	}
}

func TestValidateElementValueInvalidPathShortCircuits(t *testing.T) {
	v := newValueValidator(t)

	// The addressed element does not exist; the value itself is never
	// inspected, so a value that would fail leaf rules reports only the
	// path error.
	result := v.ValidateElementValue(context.Background(), []string{"Patient"}, []string{"bogus"}, "not-a-date")
	defer result.Release()

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", result.Errors)
	}
	e := result.Errors[0]
	if e.Type != fs.ErrorInvalidPath || e.Path.String() != "bogus" {
		t.Errorf("error = %+v, want invalid-path at bogus", e)
	}
}

func TestValidateElementValueAgreesWithDocumentWalk(t *testing.T) {
	v := newValueValidator(t)
	ctx := context.Background()

	doc := v.ValidateJSON(ctx, []string{"Patient"}, []byte(`{
		"resourceType": "Patient",
		"gender": "female",
		"active": "yes"
	}`))
	defer doc.Release()

	var docErr *fs.ValidationError
	for i := range doc.Errors {
		if doc.Errors[i].Path.String() == "active" {
			docErr = &doc.Errors[i]
		}
	}
	if docErr == nil {
		t.Fatalf("document walk reported no error at active: %+v", doc.Errors)
	}

	direct := v.ValidateElementValue(ctx, []string{"Patient"}, []string{"active"}, "yes")
	defer direct.Release()
	if len(direct.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", direct.Errors)
	}
	if direct.Errors[0].Type != docErr.Type {
		t.Errorf("direct type = %s, document walk type = %s, want agreement", direct.Errors[0].Type, docErr.Type)
	}
	if direct.Errors[0].Path.String() != docErr.Path.String() {
		t.Errorf("direct path = %s, document walk path = %s, want agreement", direct.Errors[0].Path, docErr.Path)
	}
}

func TestValueEqualNumericMagnitude(t *testing.T) {
	if !valueEqual(float64(5), 5) {
		t.Error("valueEqual(5.0, 5) = false, want numeric magnitude comparison")
	}
	if valueEqual(float64(5), "5") {
		t.Error(`valueEqual(5.0, "5") = true, want false across kinds`)
	}
	if !valueEqual(map[string]any{"a": []any{1.0}}, map[string]any{"a": []any{1}}) {
		t.Error("nested numeric equality failed")
	}
}

func TestPatternMatchesArrays(t *testing.T) {
	pattern := []any{map[string]any{"system": "http://loinc.org"}}
	value := []any{
		map[string]any{"system": "http://snomed.info/sct", "code": "a"},
		map[string]any{"system": "http://loinc.org", "code": "b"},
	}
	if !patternMatches(pattern, value) {
		t.Error("pattern item should match some array entry")
	}
	if patternMatches(pattern, []any{map[string]any{"system": "http://snomed.info/sct"}}) {
		t.Error("pattern matched an array with no conforming entry")
	}
}
