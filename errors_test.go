package fhirschema

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{nil, ""},
		{Path{"gender"}, "gender"},
		{Path{"name", "0", "family"}, "name.0.family"},
	}
	for _, tt := range tests {
		if got := tt.path.String(); got != tt.want {
			t.Errorf("Path%v.String() = %q, want %q", []string(tt.path), got, tt.want)
		}
	}
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base := Path{"name", "0"}
	a := base.Child("family")
	b := base.Child("given")

	if a.String() != "name.0.family" || b.String() != "name.0.given" {
		t.Errorf("children = %s, %s", a, b)
	}
}

func TestPathMarshalJSON(t *testing.T) {
	single, err := json.Marshal(Path{"gender"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(single) != `"gender"` {
		t.Errorf("single-segment path = %s, want a plain string", single)
	}

	multi, err := json.Marshal(Path{"name", "0", "family"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(multi) != `["name","0","family"]` {
		t.Errorf("multi-segment path = %s, want an array", multi)
	}
}

func TestPathUnmarshalJSON(t *testing.T) {
	var fromString Path
	if err := json.Unmarshal([]byte(`"gender"`), &fromString); err != nil {
		t.Fatalf("Unmarshal string form: %v", err)
	}
	if diff := cmp.Diff(Path{"gender"}, fromString); diff != "" {
		t.Errorf("string form (-want +got):\n%s", diff)
	}

	var fromArray Path
	if err := json.Unmarshal([]byte(`["name","0","family"]`), &fromArray); err != nil {
		t.Fatalf("Unmarshal array form: %v", err)
	}
	if diff := cmp.Diff(Path{"name", "0", "family"}, fromArray); diff != "" {
		t.Errorf("array form (-want +got):\n%s", diff)
	}

	if err := json.Unmarshal([]byte(`42`), &fromArray); err == nil {
		t.Error("Unmarshal(42) = nil error, want error")
	}
}

func TestResultAccumulation(t *testing.T) {
	r := NewResult()
	if !r.Valid() {
		t.Error("fresh result must be valid")
	}

	r.Add(ValidationError{Type: ErrorUnknownElement, Path: Path{"bogus"}})
	r.AddError(ErrorCardinality, Path{"name"}, "expected at least 1 entries, got 0")

	if r.Valid() {
		t.Error("result with errors reports Valid() = true")
	}
	if r.CountByType(ErrorUnknownElement) != 1 || r.CountByType(ErrorCardinality) != 1 {
		t.Errorf("counts wrong: %+v", r.Errors)
	}
	if r.CountByType(ErrorTypeMismatch) != 0 {
		t.Errorf("CountByType on absent kind = %d, want 0", r.CountByType(ErrorTypeMismatch))
	}
}

func TestResultMerge(t *testing.T) {
	a := NewResult()
	a.AddError(ErrorTypeMismatch, Path{"active"}, "boom")

	b := NewResult()
	b.AddError(ErrorUnknownElement, Path{"bogus"}, "boom")

	a.Merge(b)
	a.Merge(nil)

	if len(a.Errors) != 2 {
		t.Errorf("len(Errors) after merge = %d, want 2", len(a.Errors))
	}
}

func TestResultPooling(t *testing.T) {
	r := AcquireResult()
	r.AddError(ErrorTypeMismatch, Path{"active"}, "boom")
	r.Release()

	reused := AcquireResult()
	defer reused.Release()
	if len(reused.Errors) != 0 {
		t.Errorf("pooled result carries %d stale errors", len(reused.Errors))
	}
}

func TestResultJSONRoundTrip(t *testing.T) {
	count := 2
	r := NewResult()
	r.Add(ValidationError{
		Type:    ErrorSliceCardinality,
		Path:    Path{"extension"},
		Slice:   "race",
		Count:   &count,
		Message: `slice "race" expects at most 1 matching entries, got 2`,
	})

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Result
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(r.Errors, decoded.Errors); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
