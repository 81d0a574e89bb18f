package main

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSource = `package steps

// @step name=sleep category=flow description=Waits, then completes
type SleepConfig struct {
	Duration  string ` + "`" + `step:"name=duration,required,desc=How long, e.g. 1s"` + "`" + `
	Jitter    float64 ` + "`" + `step:"default=0.1,desc=Random jitter ratio"` + "`" + `
	MaxTries  int
	Labels    []string
}

// NotAStepConfig has no annotation
type NotAStepConfig struct {
	Field string
}

type SleepStep struct{}
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "sleep.go", sampleSource)

	behaviors, err := parseFile(token.NewFileSet(), path)
	if err != nil {
		t.Fatalf("parseFile failed: %v", err)
	}
	if len(behaviors) != 1 {
		t.Fatalf("Expected 1 behavior, got %d", len(behaviors))
	}

	b := behaviors[0]
	if b.Name != "sleep" || b.Category != "flow" || b.Description != "Waits, then completes" {
		t.Errorf("Unexpected metadata: %+v", b)
	}
	if len(b.Params) != 4 {
		t.Fatalf("Expected 4 params, got %d", len(b.Params))
	}

	want := []ParamMeta{
		{Name: "duration", Type: "string", Required: true, Description: "How long, e.g. 1s"},
		{Name: "jitter", Type: "float64", Default: "0.1", Description: "Random jitter ratio"},
		{Name: "max_tries", Type: "int"},
		{Name: "labels", Type: "[]string"},
	}
	for i, p := range want {
		if b.Params[i] != p {
			t.Errorf("Param %d = %+v, want %+v", i, b.Params[i], p)
		}
	}
}

func TestParseDirectory_SkipsGeneratedAndTests(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sleep.go", sampleSource)
	writeSource(t, dir, "sleep_test.go", strings.Replace(sampleSource, "name=sleep", "name=other", 1))
	writeSource(t, dir, "behaviors_gen.go", strings.Replace(sampleSource, "name=sleep", "name=gen", 1))

	behaviors, err := parseDirectory(dir)
	if err != nil {
		t.Fatalf("parseDirectory failed: %v", err)
	}
	if len(behaviors) != 1 || behaviors[0].Name != "sleep" {
		t.Fatalf("Unexpected behaviors: %+v", behaviors)
	}
}

func TestParseDirectory_RejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", sampleSource)
	writeSource(t, dir, "b.go", strings.Replace(sampleSource, "SleepConfig", "OtherConfig", 1))

	if _, err := parseDirectory(dir); err == nil {
		t.Fatal("Expected duplicate step type error")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Probability": "probability",
		"MaxTries":    "max_tries",
		"URLPath":     "url_path",
		"Seed":        "seed",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderRegistry(t *testing.T) {
	behaviors := []BehaviorMetadata{{
		Name:     "sleep",
		Category: "flow",
		Params:   []ParamMeta{{Name: "duration", Type: "string", Required: true}},
	}}

	src, err := renderRegistry("steps", behaviors)
	if err != nil {
		t.Fatalf("renderRegistry failed: %v", err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "behaviors_gen.go", src, parser.ParseComments); err != nil {
		t.Fatalf("Generated code does not parse: %v\n%s", err, src)
	}
	out := string(src)
	if !strings.HasPrefix(out, "// Code generated by stepgen. DO NOT EDIT.") {
		t.Errorf("Missing generated header")
	}
	if !strings.Contains(out, `"name": "sleep"`) || !strings.Contains(out, "package steps") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestRenderRegistry_RejectsBackquote(t *testing.T) {
	_, err := renderRegistry("steps", []BehaviorMetadata{{Name: "x", Description: "uses `code`"}})
	if err == nil {
		t.Fatal("Expected error for backquote in metadata")
	}
}
