// Package loader reads FHIR Schema packages and exposes them as schema
// resolvers.
//
// A package is a gzip-compressed newline-delimited JSON stream: a
// manifest line, preliminary definition lines (canonical resources,
// value sets) that this loader counts but does not interpret, a
// structural delimiter line {"delimiter": true}, and one FHIR Schema
// per line after it. The validation core never parses this format
// directly; it consumes the resulting schema index through the
// resolver capability.
package loader

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"

	"github.com/fhirschema/fhirschema-go/schema"
)

// maxLineSize bounds a single NDJSON line. Core type schemas stay well
// under this; canonical definitions can be large.
const maxLineSize = 16 * 1024 * 1024

// Manifest is the package metadata carried on the first line.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	FHIRVersion string `json:"fhirVersion,omitempty"`
}

// Package is a loaded FHIR Schema package.
type Package struct {
	Manifest Manifest

	// Preliminary counts the definition lines before the delimiter.
	Preliminary int

	// Schemas indexes every schema in the package by name and URL.
	Schemas map[string]*schema.Schema
}

// Read decodes a gzip-compressed NDJSON package stream.
func Read(r io.Reader) (*Package, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("loader: open gzip stream: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	pkg := &Package{Schemas: make(map[string]*schema.Schema)}

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("loader: read manifest: %w", err)
		}
		return nil, fmt.Errorf("loader: empty package stream")
	}
	if err := json.Unmarshal(scanner.Bytes(), &pkg.Manifest); err != nil {
		return nil, fmt.Errorf("loader: decode manifest: %w", err)
	}

	// Skip preliminary definitions up to the delimiter line. The peek
	// avoids decoding lines this loader does not interpret.
	delimited := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if isDelimiter(line) {
			delimited = true
			break
		}
		pkg.Preliminary++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: read package: %w", err)
	}
	if !delimited {
		return nil, fmt.Errorf("loader: package %q has no schema delimiter", pkg.Manifest.Name)
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s, err := schema.FromJSON(line)
		if err != nil {
			return nil, fmt.Errorf("loader: package %q: %w", pkg.Manifest.Name, err)
		}
		pkg.add(s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: read schemas: %w", err)
	}

	return pkg, nil
}

// ReadFile reads a package from a local .ndjson.gz file.
func ReadFile(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func isDelimiter(line []byte) bool {
	v, err := jsonparser.GetBoolean(line, "delimiter")
	return err == nil && v
}

func (p *Package) add(s *schema.Schema) {
	if s.Name != "" {
		p.Schemas[s.Name] = s
	}
	if s.URL != "" {
		p.Schemas[s.URL] = s
	}
}

// Count returns the number of distinct index entries.
func (p *Package) Count() int {
	return len(p.Schemas)
}

// Resolver adapts the package index to the schema.Resolver capability.
// The returned resolver is read-only and safe for concurrent use.
func (p *Package) Resolver() schema.Resolver {
	return schema.ResolverFunc(func(_ context.Context, nameOrURL string) (*schema.Schema, error) {
		return p.Schemas[nameOrURL], nil
	})
}

// MergeResolver resolves across several packages in order; the first
// package that knows a name wins.
func MergeResolver(packages ...*Package) schema.Resolver {
	return schema.ResolverFunc(func(_ context.Context, nameOrURL string) (*schema.Schema, error) {
		for _, p := range packages {
			if s, ok := p.Schemas[nameOrURL]; ok {
				return s, nil
			}
		}
		return nil, nil
	})
}
