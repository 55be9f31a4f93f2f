// Package fhirschema validates structured clinical resources against
// FHIR Schema type definitions.
//
// A FHIR Schema is a declarative, JSON-shaped description of a clinical
// data structure: named types with inheritance, element definitions with
// cardinality, polymorphic choice elements, discriminated slicing of
// repeated elements, and nested extension structures. This package
// resolves the complete, inheritance-flattened element set of one or
// more schemas and checks a document against it, producing a flat list
// of typed validation errors.
//
// # Quick Start
//
//	import (
//	    fs "github.com/fhirschema/fhirschema-go"
//	    "github.com/fhirschema/fhirschema-go/engine"
//	    "github.com/fhirschema/fhirschema-go/schema"
//	)
//
//	resolver := schema.NewMapResolver(schemas...)
//	validator, err := engine.New(resolver)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := validator.ValidateJSON(ctx, []string{"Patient"}, resourceJSON)
//	for _, e := range result.Errors {
//	    fmt.Println(e.Type, e.Path, e.Message)
//	}
//
// # Architecture
//
// The package is split along the two engines that make up the core:
//
//   - elements: enumerates a schema set into one merged element tree,
//     resolving base chains, recording per-element provenance, and
//     merging slice and choice metadata
//   - engine: walks a document against the enumerated tree, collecting
//     errors for type, cardinality, unknown/required/excluded elements,
//     choice exclusivity, and slice cardinality
//
// Schema retrieval is abstracted behind the single-method
// schema.Resolver interface; the loader package provides a resolver
// backed by downloaded schema packages, and schema.CachedResolver adds
// an LRU cache in front of any other resolver.
//
// # Functional Options
//
//	validator, err := engine.New(resolver,
//	    fs.WithClosedSlicing(true),
//	    fs.WithMaxErrors(100),
//	)
package fhirschema
