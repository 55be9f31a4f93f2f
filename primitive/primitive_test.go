package primitive

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		typeName string
		value    any
		wantErr  bool
	}{
		{"boolean", true, false},
		{"boolean", "true", true},

		{"integer", float64(42), false},
		{"integer", float64(-42), false},
		{"integer", float64(2147483648), true},
		{"integer", 3.5, true},
		{"integer", "42", true},

		{"integer64", float64(42), false},
		{"integer64", "9223372036854775807", false},
		{"integer64", "12.5", true},

		{"unsignedInt", float64(0), false},
		{"unsignedInt", float64(-1), true},
		{"positiveInt", float64(1), false},
		{"positiveInt", float64(0), true},

		{"decimal", 3.14, false},
		{"decimal", "3.14", false},
		{"decimal", "-0.5", false},
		{"decimal", "1.2e3", false},
		{"decimal", "01.5", true},
		{"decimal", ".5", true},
		{"decimal", true, true},

		{"string", "hello", false},
		{"string", "", true},
		{"string", 5, true},
		{"markdown", "# heading", false},

		{"uri", "http://example.org/fhir", false},
		{"uri", "has space", true},
		{"url", "", true},
		{"canonical", "http://example.org/sd|1.0.0", false},

		{"code", "final", false},
		{"code", "vital signs", false},
		{"code", " leading", true},
		{"code", "double  space", true},

		{"id", "patient-001.v2", false},
		{"id", "bad_id", true},

		{"oid", "urn:oid:2.16.840.1.113883", false},
		{"oid", "2.16.840.1", true},
		{"uuid", "urn:uuid:53fefa32-fcbb-4ff8-8a92-55ee120877b7", false},
		{"uuid", "53fefa32-fcbb-4ff8-8a92-55ee120877b7", true},

		{"date", "1980", false},
		{"date", "1980-01", false},
		{"date", "1980-01-02", false},
		{"date", "1980-13-02", true},
		{"date", "02/01/1980", true},

		{"dateTime", "2020-01-01T12:30:00Z", false},
		{"dateTime", "2020-01-01T12:30:00+02:00", false},
		{"dateTime", "2020", false},
		{"dateTime", "2020-01-01T25:00:00Z", true},

		{"instant", "2020-01-01T12:30:00.123Z", false},
		{"instant", "2020-01-01", true},

		{"time", "12:30:00", false},
		{"time", "24:00:00", true},

		{"base64Binary", "aGVsbG8=", false},
		{"base64Binary", "not base64!", true},

		// Nil values and unknown types degrade to unchecked.
		{"boolean", nil, false},
		{"CustomPrimitive", "anything", false},
	}

	for _, tt := range tests {
		err := Validate(tt.typeName, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%s, %v) = %v, wantErr %v", tt.typeName, tt.value, err, tt.wantErr)
		}
	}
}

func TestIsKnown(t *testing.T) {
	for _, name := range []string{"boolean", "code", "dateTime", "base64Binary", "xhtml"} {
		if !IsKnown(name) {
			t.Errorf("IsKnown(%s) = false, want true", name)
		}
	}
	for _, name := range []string{"HumanName", "Resource", ""} {
		if IsKnown(name) {
			t.Errorf("IsKnown(%s) = true, want false", name)
		}
	}
}
