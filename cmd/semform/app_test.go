package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semform/config"
	"github.com/c360studio/semform/form"
	"github.com/c360studio/semform/loader"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

const testPrefixes = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix ex: <http://example.org/> .
`

const testShapes = testPrefixes + `
ex:PersonShape a sh:NodeShape ;
  sh:targetClass ex:Person ;
  sh:property [ sh:path ex:name ; sh:datatype xsd:string ; sh:maxCount 1 ] ,
              [ sh:path ex:status ; sh:in ( "a" "b" ) ] .
`

const testData = testPrefixes + `
ex:alice a ex:Person ; ex:name "Alice" ; ex:status "a" .
`

// newTestApp writes the fixture documents and returns an app over them.
func newTestApp(t *testing.T, mutate ...func(*config.Config)) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	shapes := filepath.Join(dir, "shapes.ttl")
	data := filepath.Join(dir, "data.ttl")
	if err := os.WriteFile(shapes, []byte(testShapes), 0644); err != nil {
		t.Fatalf("failed to write shapes: %v", err)
	}
	if err := os.WriteFile(data, []byte(testData), 0644); err != nil {
		t.Fatalf("failed to write data: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Sources.Shapes = []string{shapes}
	cfg.Sources.Data = []string{data}
	cfg.Prefixes = map[string]string{"ex": "http://example.org/"}
	for _, fn := range mutate {
		fn(cfg)
	}

	var out bytes.Buffer
	app, err := NewApp(cfg, nil, &out)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(app.Close)
	return app, &out
}

func TestAppResolveJSON(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Resolve(context.Background(), "json"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var views []template.NodeView
	if err := json.Unmarshal(out.Bytes(), &views); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 node view, got %d", len(views))
	}
	if views[0].TargetClass != "ex:Person" {
		t.Errorf("expected target class ex:Person, got %q", views[0].TargetClass)
	}
	if len(views[0].Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(views[0].Fields))
	}
	for _, f := range views[0].Fields {
		if f.Path == "ex:status" && len(f.Options) != 2 {
			t.Errorf("expected 2 options for ex:status, got %v", f.Options)
		}
	}
}

func TestAppResolveYAML(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Resolve(context.Background(), "yaml"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out.String(), "path: ex:name") {
		t.Errorf("expected ex:name field in YAML output:\n%s", out.String())
	}
}

func TestAppResolveUnknownFormat(t *testing.T) {
	app, _ := newTestApp(t)

	if err := app.Resolve(context.Background(), "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestAppEmitLocatesSubject(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Emit(context.Background(), EmitRequest{Format: "ntriples"}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	quads, err := loader.ParseString(out.String(), loader.FormatNTriples, storage.DataGraph)
	if err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, out.String())
	}
	if len(quads) != 3 {
		t.Errorf("expected 3 triples, got %d:\n%s", len(quads), out.String())
	}
	for _, q := range quads {
		if !term.Equal(q.Subject, term.MustIRI("http://example.org/alice")) {
			t.Errorf("unexpected subject %s", term.Key(q.Subject))
		}
	}
}

func TestAppEmitSubjectWithShape(t *testing.T) {
	app, out := newTestApp(t)

	req := EmitRequest{Subject: "ex:alice", Shape: "ex:PersonShape", Format: "turtle"}
	if err := app.Emit(context.Background(), req); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	for _, want := range []string{"@prefix ex:", "ex:alice", `"Alice"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestAppEmitFresh(t *testing.T) {
	app, out := newTestApp(t, func(cfg *config.Config) {
		cfg.Emit.MintBase = "http://example.org/id/"
	})

	if err := app.Emit(context.Background(), EmitRequest{Fresh: true, Format: "ntriples"}); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	quads, err := loader.ParseString(out.String(), loader.FormatNTriples, storage.DataGraph)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if len(quads) != 1 {
		t.Fatalf("expected only the type triple, got %d:\n%s", len(quads), out.String())
	}
	if !strings.HasPrefix(term.IRIValue(quads[0].Subject), "http://example.org/id/") {
		t.Errorf("expected minted subject, got %s", term.Key(quads[0].Subject))
	}
	if term.IRIValue(quads[0].Predicate) != shacl.RDFType {
		t.Errorf("expected rdf:type, got %s", term.Key(quads[0].Predicate))
	}
}

func TestAppEmitWithoutShapes(t *testing.T) {
	var out bytes.Buffer
	app, err := NewApp(config.DefaultConfig(), nil, &out)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()

	err = app.Emit(context.Background(), EmitRequest{})
	if !errors.Is(err, form.ErrNoShapes) {
		t.Errorf("expected ErrNoShapes, got %v", err)
	}
}

func TestAppLists(t *testing.T) {
	app, out := newTestApp(t)

	if err := app.Lists(context.Background()); err != nil {
		t.Fatalf("lists failed: %v", err)
	}
	if !strings.Contains(out.String(), "(2)") {
		t.Errorf("expected a two item list:\n%s", out.String())
	}
	if strings.Contains(out.String(), "broken") {
		t.Errorf("expected no broken lists:\n%s", out.String())
	}
}

func TestAppInstanceProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Loader.InstancesDir = t.TempDir()

	app, err := NewApp(cfg, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()
	if app.provider == nil {
		t.Error("expected an instance provider when instances_dir is set")
	}

	cfg = config.DefaultConfig()
	cfg.Loader.InstancesDir = t.TempDir()
	cfg.Loader.ClassCacheSize = 0
	app, err = NewApp(cfg, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()
	if app.provider != nil {
		t.Error("expected no instance provider with a zero cache size")
	}
}

func TestWriteVocabulary(t *testing.T) {
	var out bytes.Buffer
	if err := writeVocabulary(&out); err != nil {
		t.Fatalf("vocab failed: %v", err)
	}
	for _, p := range []shacl.Predicate{shacl.PredicatePath, shacl.PredicateQualifiedValueShape} {
		if !strings.Contains(out.String(), p.IRI()) {
			t.Errorf("expected %s in vocabulary output", p.IRI())
		}
	}
	lines := strings.Count(out.String(), "\n")
	if lines != 2*len(shacl.Predicates()) {
		t.Errorf("expected two lines per predicate, got %d lines", lines)
	}
}

func TestGlobalFlagsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	flags := globalFlags{
		languages: []string{"de", "en"},
		shapes:    []string{"s.ttl"},
		rootShape: "ex:Shape",
	}
	flags.apply(cfg)

	if len(cfg.Languages) != 2 || cfg.Languages[0] != "de" {
		t.Errorf("expected languages override, got %v", cfg.Languages)
	}
	if len(cfg.Sources.Shapes) != 1 {
		t.Errorf("expected shapes override, got %v", cfg.Sources.Shapes)
	}
	if cfg.Sources.Data != nil {
		t.Errorf("expected data untouched, got %v", cfg.Sources.Data)
	}
	if cfg.Resolve.RootShape != "ex:Shape" {
		t.Errorf("expected root shape override, got %q", cfg.Resolve.RootShape)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	want := "semform version " + Version
	if !strings.HasPrefix(out.String(), want) {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message not logged")
	}
}
