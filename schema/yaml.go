package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FromYAML decodes a schema authored in YAML. FHIR Schemas are commonly
// written in YAML; the document is normalized through its JSON form so
// that fixed and pattern literals carry the same value types as decoded
// documents.
func FromYAML(data []byte) (*Schema, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}
	return fromNormalized(doc)
}

// ManyFromYAML decodes a multi-document YAML stream of schemas.
func ManyFromYAML(data []byte) ([]*Schema, error) {
	var out []*Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("schema: decode yaml stream: %w", err)
		}
		if doc == nil {
			continue
		}
		s, err := fromNormalized(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func fromNormalized(doc any) (*Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema: normalize yaml: %w", err)
	}
	return FromJSON(raw)
}
