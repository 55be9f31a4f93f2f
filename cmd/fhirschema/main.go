// Package main implements the fhirschema CLI tool: it loads FHIR
// Schema packages and validates documents against named schemas.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	fs "github.com/fhirschema/fhirschema-go"
	"github.com/fhirschema/fhirschema-go/engine"
	"github.com/fhirschema/fhirschema-go/loader"
	"github.com/fhirschema/fhirschema-go/schema"
)

const (
	version = "0.1.0"
	usage   = `fhirschema - FHIR Schema document validator

Usage:
  fhirschema [options] <file>...
  fhirschema [options] -           (read from stdin)

Examples:
  fhirschema -package core.ndjson.gz -schema Patient patient.json
  fhirschema -package-url https://registry.example.org/core/1.0.0/package.ndjson.gz -schema Patient patient.json
  fhirschema -package core.ndjson.gz -schema Patient -output json patient.json
  cat patient.json | fhirschema -package core.ndjson.gz -schema Patient -

Options:
`
)

type config struct {
	Packages    []string
	PackageURLs []string
	Schemas     []string
	Output      string
	Strict      bool
	Quiet       bool
	ShowVersion bool
	Files       []string
}

type fileOutput struct {
	File     string               `json:"file"`
	Valid    bool                 `json:"valid"`
	Errors   []fs.ValidationError `json:"errors,omitempty"`
	Duration string               `json:"duration"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("fhirschema v%s\n", version)
		os.Exit(0)
	}
	if len(cfg.Files) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

func parseFlags() *config {
	cfg := &config{Output: "text"}

	var packages, packageURLs, schemas string
	flag.StringVar(&packages, "package", "", "Local .ndjson.gz package file(s) to load (comma-separated)")
	flag.StringVar(&packageURLs, "package-url", "", "Remote .ndjson.gz package URL(s) to load (comma-separated)")
	flag.StringVar(&schemas, "schema", "", "Schema name(s) or URL(s) to validate against (comma-separated)")
	flag.StringVar(&cfg.Output, "output", "text", "Output format: text, json")
	flag.BoolVar(&cfg.Strict, "strict", false, "Close schemas over declared slices")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Only print the summary line")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.Packages = splitList(packages)
	cfg.PackageURLs = splitList(packageURLs)
	cfg.Schemas = splitList(schemas)
	cfg.Files = flag.Args()
	return cfg
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(cfg *config) int {
	ctx := context.Background()

	resolver, err := buildResolver(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fhirschema: %v\n", err)
		return 2
	}

	var opts []fs.Option
	if cfg.Strict {
		opts = append(opts, fs.StrictOptions()...)
	}
	validator, err := engine.New(resolver, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fhirschema: %v\n", err)
		return 2
	}

	if len(cfg.Schemas) == 0 {
		fmt.Fprintln(os.Stderr, "fhirschema: -schema is required")
		return 2
	}

	exitCode := 0
	for _, file := range cfg.Files {
		raw, err := readInput(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fhirschema: %s: %v\n", file, err)
			exitCode = 2
			continue
		}

		start := time.Now()
		result := validator.ValidateJSON(ctx, cfg.Schemas, raw)
		elapsed := time.Since(start)

		if !result.Valid() {
			exitCode = 1
		}
		report(cfg, file, result, elapsed)
		result.Release()
	}
	return exitCode
}

func buildResolver(ctx context.Context, cfg *config) (schema.Resolver, error) {
	var packages []*loader.Package
	for _, path := range cfg.Packages {
		pkg, err := loader.ReadFile(path)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	if len(cfg.PackageURLs) > 0 {
		client := loader.NewClient()
		for _, url := range cfg.PackageURLs {
			pkg, err := client.DownloadURL(ctx, url)
			if err != nil {
				return nil, err
			}
			packages = append(packages, pkg)
		}
	}
	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages loaded; use -package or -package-url")
	}
	return loader.MergeResolver(packages...), nil
}

func readInput(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}

func report(cfg *config, file string, result *fs.Result, elapsed time.Duration) {
	if cfg.Output == "json" {
		out := fileOutput{
			File:     file,
			Valid:    result.Valid(),
			Errors:   result.Errors,
			Duration: elapsed.String(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	if result.Valid() {
		green.Printf("✓ %s", file)
		fmt.Printf("  (%s)\n", elapsed.Round(time.Microsecond))
		return
	}

	red.Printf("✗ %s", file)
	fmt.Printf("  %d error(s)  (%s)\n", len(result.Errors), elapsed.Round(time.Microsecond))
	if cfg.Quiet {
		return
	}
	for _, e := range result.Errors {
		yellow.Printf("  %s", e.Type)
		location := e.Path.String()
		if location == "" {
			location = "(root)"
		}
		fmt.Printf("  %s  %s\n", location, e.Message)
	}
}
