// Package primitive validates the lexical representation of FHIR
// primitive type values.
package primitive

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// Anchored lexical patterns for string-shaped primitives, per the FHIR
// datatypes specification.
var (
	uriRegex       = regexp.MustCompile(`^\S*$`)
	urlRegex       = regexp.MustCompile(`^\S+$`)
	canonicalRegex = regexp.MustCompile(`^\S+(\|\S+)?$`)
	codeRegex      = regexp.MustCompile(`^\S+(\s\S+)*$`)
	idRegex        = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
	oidRegex       = regexp.MustCompile(`^urn:oid:[012](\.(0|[1-9]\d*))+$`)
	uuidRegex      = regexp.MustCompile(`^urn:uuid:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	instantRegex   = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[012])-(0[1-9]|[12]\d|3[01])T([01]\d|2[0-3]):[0-5]\d:([0-5]\d|60)(\.\d+)?(Z|[+-]((0\d|1[0-3]):[0-5]\d|14:00))$`)
	dateRegex      = regexp.MustCompile(`^(\d{4})(-(0[1-9]|1[012])(-(0[1-9]|[12]\d|3[01]))?)?$`)
	dateTimeRegex  = regexp.MustCompile(`^(\d{4})(-(0[1-9]|1[012])(-(0[1-9]|[12]\d|3[01])(T([01]\d|2[0-3]):[0-5]\d:([0-5]\d|60)(\.\d+)?(Z|[+-]((0\d|1[0-3]):[0-5]\d|14:00))?)?)?)?$`)
	timeRegex      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:([0-5]\d|60)(\.\d+)?$`)
	decimalRegex   = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)
)

// stringTypePatterns maps primitive types whose JSON form is a string
// to their lexical pattern. Types absent from the map (string,
// markdown, xhtml) accept any string.
var stringTypePatterns = map[string]*regexp.Regexp{
	"uri":       uriRegex,
	"url":       urlRegex,
	"canonical": canonicalRegex,
	"code":      codeRegex,
	"id":        idRegex,
	"oid":       oidRegex,
	"uuid":      uuidRegex,
	"instant":   instantRegex,
	"date":      dateRegex,
	"dateTime":  dateTimeRegex,
	"time":      timeRegex,
}

var knownTypes = map[string]bool{
	"boolean": true, "integer": true, "integer64": true,
	"unsignedInt": true, "positiveInt": true, "decimal": true,
	"string": true, "markdown": true, "xhtml": true,
	"uri": true, "url": true, "canonical": true, "code": true,
	"id": true, "oid": true, "uuid": true, "base64Binary": true,
	"instant": true, "date": true, "dateTime": true, "time": true,
}

// IsKnown reports whether typeName is a FHIR primitive type this
// package can validate. It is the fallback classification used when a
// primitive type schema is not resolvable.
func IsKnown(typeName string) bool {
	return knownTypes[typeName]
}

// Validate checks value against the lexical rules of the named
// primitive type. A nil value is accepted; unknown types are accepted
// so that custom primitives degrade to unchecked.
func Validate(typeName string, value any) error {
	if value == nil {
		return nil
	}

	switch typeName {
	case "boolean":
		return validateBoolean(value)
	case "integer":
		return validateInteger(value)
	case "integer64":
		return validateInteger64(value)
	case "unsignedInt":
		return validateBoundedInt(value, 0, "unsignedInt")
	case "positiveInt":
		return validateBoundedInt(value, 1, "positiveInt")
	case "decimal":
		return validateDecimal(value)
	case "string", "markdown", "xhtml":
		return validateString(value, typeName)
	case "base64Binary":
		return validateBase64Binary(value)
	default:
		if pattern, ok := stringTypePatterns[typeName]; ok {
			return validatePatternedString(value, typeName, pattern)
		}
		return nil
	}
}

func validateBoolean(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("value must be a boolean, got %T", value)
	}
	return nil
}

// validateInteger validates a 32-bit integer carried as a JSON number.
func validateInteger(value any) error {
	f, ok := value.(float64)
	if !ok {
		return fmt.Errorf("value must be a number, got %T", value)
	}
	if f != float64(int64(f)) {
		return fmt.Errorf("value must be an integer, got %v", f)
	}
	i := int64(f)
	if i < -2147483648 || i > 2147483647 {
		return fmt.Errorf("integer out of range [-2147483648, 2147483647]: %v", i)
	}
	return nil
}

// validateInteger64 accepts a JSON number or, per the R5 wire format,
// a decimal string.
func validateInteger64(value any) error {
	switch v := value.(type) {
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("value must be an integer, got %v", v)
		}
		return nil
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("invalid integer64 string: %q", v)
		}
		return nil
	default:
		return fmt.Errorf("integer64 must be a number or string, got %T", value)
	}
}

func validateBoundedInt(value any, min int64, typeName string) error {
	f, ok := value.(float64)
	if !ok {
		return fmt.Errorf("value must be a number, got %T", value)
	}
	if f != float64(int64(f)) {
		return fmt.Errorf("value must be an integer, got %v", f)
	}
	i := int64(f)
	if i < min || i > 2147483647 {
		return fmt.Errorf("%s out of range [%d, 2147483647]: %v", typeName, min, i)
	}
	return nil
}

// validateDecimal accepts a JSON number or a decimal string and checks
// the string form lexically before parsing it with arbitrary precision.
func validateDecimal(value any) error {
	switch v := value.(type) {
	case float64:
		return nil
	case string:
		if !decimalRegex.MatchString(v) {
			return fmt.Errorf("invalid decimal representation: %q", v)
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("invalid decimal: %q", v)
		}
		return nil
	default:
		return fmt.Errorf("decimal must be a number, got %T", v)
	}
}

func validateString(value any, typeName string) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", typeName, value)
	}
	if s == "" {
		return fmt.Errorf("%s must not be empty", typeName)
	}
	return nil
}

func validatePatternedString(value any, typeName string, pattern *regexp.Regexp) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", typeName, value)
	}
	if !pattern.MatchString(s) {
		return fmt.Errorf("invalid %s: %q", typeName, s)
	}
	return nil
}

func validateBase64Binary(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("base64Binary must be a string, got %T", value)
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return fmt.Errorf("invalid base64Binary: %v", err)
	}
	return nil
}
