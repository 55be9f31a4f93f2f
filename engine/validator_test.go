package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	fs "github.com/fhirschema/fhirschema-go"
	"github.com/fhirschema/fhirschema-go/schema"
)

const resourceSchema = `{
  "name": "Resource",
  "kind": "resource",
  "elements": {
    "id": {"type": "id"}
  }
}`

const patientSchema = `{
  "name": "Patient",
  "url": "http://example.org/fhirschema/Patient",
  "base": "Resource",
  "kind": "resource",
  "required": ["gender"],
  "excluded": ["animal"],
  "elements": {
    "gender": {"type": "code", "binding": {"valueSet": "http://example.org/vs/gender", "strength": "required"}},
    "active": {"type": "boolean"},
    "birthDate": {"type": "date"},
    "animal": {"type": "string"},
    "name": {"array": true, "type": "HumanName", "min": 1, "max": 3},
    "deceased": {"choices": ["deceasedBoolean", "deceasedDateTime"]},
    "deceasedBoolean": {"type": "boolean", "choiceOf": "deceased"},
    "deceasedDateTime": {"type": "dateTime", "choiceOf": "deceased"},
    "extension": {"array": true, "type": "Extension", "slicing": {"slices": {
      "race": {"url": "http://example.org/ext/race", "min": 1, "max": 1}
    }}},
    "contained": {"array": true}
  }
}`

const humanNameSchema = `{
  "name": "HumanName",
  "kind": "complex-type",
  "elements": {
    "family": {"type": "string"},
    "given": {"array": true, "type": "string"}
  }
}`

const extensionSchema = `{
  "name": "Extension",
  "kind": "complex-type",
  "required": ["url"],
  "elements": {
    "url": {"type": "uri"},
    "value": {"choices": ["valueString", "valueCode"]},
    "valueString": {"type": "string", "choiceOf": "value"},
    "valueCode": {"type": "code", "choiceOf": "value"}
  }
}`

func testResolver(t *testing.T, docs ...string) schema.Resolver {
	t.Helper()
	r := schema.NewMapResolver()
	for _, doc := range docs {
		s, err := schema.FromJSON([]byte(doc))
		if err != nil {
			t.Fatalf("decode schema: %v", err)
		}
		r.Put(s)
	}
	return r
}

func newTestValidator(t *testing.T, opts ...fs.Option) *Validator {
	t.Helper()
	r := testResolver(t, resourceSchema, patientSchema, humanNameSchema, extensionSchema)
	v, err := New(r, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNewRejectsNilResolver(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) = nil error, want error")
	}
}

func TestValidateConformantDocument(t *testing.T) {
	v := newTestValidator(t)

	result := v.ValidateJSON(context.Background(), []string{"Patient"}, []byte(`{
		"resourceType": "Patient",
		"id": "p1",
		"gender": "female",
		"active": true,
		"birthDate": "1980-01-02",
		"name": [{"family": "Chalmers", "given": ["Peter", "James"]}],
		"extension": [{"url": "http://example.org/ext/race", "valueCode": "2106-3"}]
	}`))
	defer result.Release()

	if !result.Valid() {
		t.Fatalf("conformant document produced errors: %+v", result.Errors)
	}
}

func TestValidateNonObjectDocument(t *testing.T) {
	v := newTestValidator(t)

	result := v.Validate(context.Background(), []string{"Patient"}, []any{"nope"})
	defer result.Release()

	if len(result.Errors) != 1 || result.Errors[0].Type != fs.ErrorTypeMismatch {
		t.Fatalf("errors = %+v, want a single type-mismatch", result.Errors)
	}
}

func TestValidateJSONInvalidInput(t *testing.T) {
	v := newTestValidator(t)

	result := v.ValidateJSON(context.Background(), []string{"Patient"}, []byte(`{not json`))
	defer result.Release()

	if len(result.Errors) != 1 || result.Errors[0].Type != fs.ErrorTypeMismatch {
		t.Fatalf("errors = %+v, want a single type-mismatch", result.Errors)
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	v := newTestValidator(t)

	result := v.Validate(context.Background(), []string{"Unicorn"}, map[string]any{})
	defer result.Release()

	if len(result.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", result.Errors)
	}
	e := result.Errors[0]
	if e.Type != fs.ErrorSchemaNotFound || e.Schema != "Unicorn" {
		t.Errorf("error = %+v, want schema-not-found for Unicorn", e)
	}
}

func TestValidateCyclicBaseChain(t *testing.T) {
	r := testResolver(t,
		`{"name":"A","base":"B","kind":"resource"}`,
		`{"name":"B","base":"A","kind":"resource"}`,
	)
	v, err := New(r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := v.Validate(context.Background(), []string{"A"}, map[string]any{})
	defer result.Release()

	if len(result.Errors) != 1 || result.Errors[0].Type != fs.ErrorCyclicBase {
		t.Fatalf("errors = %+v, want a single cyclic-base", result.Errors)
	}
}

func TestValidateMaxErrors(t *testing.T) {
	v := newTestValidator(t, fs.WithMaxErrors(1))

	result := v.ValidateJSON(context.Background(), []string{"Patient"}, []byte(`{
		"resourceType": "Patient",
		"active": "yes",
		"bogusOne": 1,
		"bogusTwo": 2
	}`))
	defer result.Release()

	if len(result.Errors) != 1 {
		t.Fatalf("len(errors) = %d with MaxErrors(1), want 1", len(result.Errors))
	}
}

func TestValidateDeterministicErrorOrder(t *testing.T) {
	v := newTestValidator(t)
	raw := []byte(`{
		"resourceType": "Patient",
		"active": "yes",
		"animal": "dog",
		"deceasedBoolean": true,
		"deceasedDateTime": "2020-01-01",
		"zebra": 1,
		"alpha": 2
	}`)

	first := v.ValidateJSON(context.Background(), []string{"Patient"}, raw)
	second := v.ValidateJSON(context.Background(), []string{"Patient"}, raw)
	defer first.Release()
	defer second.Release()

	if len(first.Errors) == 0 {
		t.Fatal("document with defects produced no errors")
	}
	if diff := cmp.Diff(first.Errors, second.Errors); diff != "" {
		t.Errorf("repeated runs disagree (-first +second):\n%s", diff)
	}
}

func TestValidateBatchPreservesOrder(t *testing.T) {
	v := newTestValidator(t, fs.WithWorkerCount(2))

	docs := [][]byte{
		[]byte(`{"resourceType":"Patient","gender":"female"}`),
		[]byte(`{"resourceType":"Patient"}`),
		[]byte(`{"resourceType":"Patient","gender":"male"}`),
	}

	results := v.ValidateBatch(context.Background(), []string{"Patient"}, docs)
	if len(results) != len(docs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(docs))
	}
	defer func() {
		for _, r := range results {
			r.Release()
		}
	}()

	if !results[0].Valid() {
		t.Errorf("docs[0] errors = %+v, want none", results[0].Errors)
	}
	if results[1].CountByType(fs.ErrorRequiredElement) != 1 {
		t.Errorf("docs[1] errors = %+v, want one required-element-missing", results[1].Errors)
	}
	if !results[2].Valid() {
		t.Errorf("docs[2] errors = %+v, want none", results[2].Errors)
	}
}

func TestValidateRecordsMetrics(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	v.Validate(ctx, []string{"Patient"}, map[string]any{"gender": "other"}).Release()
	v.Validate(ctx, []string{"Patient"}, map[string]any{}).Release()

	snap := v.Metrics().Snapshot()
	if snap.ValidationsTotal != 2 {
		t.Errorf("ValidationsTotal = %d, want 2", snap.ValidationsTotal)
	}
	if snap.ValidationsValid != 1 {
		t.Errorf("ValidationsValid = %d, want 1", snap.ValidationsValid)
	}
	if snap.ErrorsTotal == 0 {
		t.Error("ErrorsTotal = 0, want at least 1")
	}
}

func TestEnumerateElementsThroughValidator(t *testing.T) {
	v := newTestValidator(t)

	els, err := v.EnumerateElements(context.Background(), []string{"Patient"})
	if err != nil {
		t.Fatalf("EnumerateElements: %v", err)
	}
	if _, ok := els["id"]; !ok {
		t.Error("inherited element id missing from enumeration")
	}
	if _, ok := els["gender"]; !ok {
		t.Error("declared element gender missing from enumeration")
	}
}
