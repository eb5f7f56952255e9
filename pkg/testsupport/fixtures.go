package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/document"
)

// DefaultModels lists the fixture models that together form the sales
// example (money, time, party and the sales namespace that imports them).
var DefaultModels = []string{"money.json", "time.json", "party.json", "sales.yaml"}

// Namespaces used by the fixture models.
const (
	SalesNamespace = "org.acme.sales@1.0.0"
	MoneyNamespace = "org.accordproject.money@0.3.0"
	TimeNamespace  = "org.accordproject.time@0.3.0"
	PartyNamespace = "org.accordproject.party@0.2.0"
)

// Dir returns the absolute path of the shared testdata directory.
func Dir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "testdata"
	}
	return filepath.Join(filepath.Dir(file), "testdata")
}

// ModelPath resolves a fixture model name.
func ModelPath(name string) string {
	return filepath.Join(Dir(), "models", name)
}

// DocumentPath resolves a fixture document name.
func DocumentPath(name string) string {
	return filepath.Join(Dir(), "documents", name)
}

// LoadModelManager loads the named fixture models (DefaultModels when none
// are given) into a validated ModelManager.
func LoadModelManager(t *testing.T, names ...string) *concerto.ModelManager {
	t.Helper()

	mm, err := LoadModelManagerFromPaths(names...)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	return mm
}

// LoadModelManagerFromPaths mirrors LoadModelManager without requiring a
// testing.T so examples and benchmarks can share fixtures.
func LoadModelManagerFromPaths(names ...string) (*concerto.ModelManager, error) {
	if len(names) == 0 {
		names = DefaultModels
	}
	var files []*concerto.ModelFile
	for _, name := range names {
		loaded, err := concerto.LoadFile(ModelPath(name))
		if err != nil {
			return nil, fmt.Errorf("testsupport: %w", err)
		}
		files = append(files, loaded...)
	}
	return concerto.NewModelManagerFromFiles(files...)
}

// MustClass resolves a class declaration or fails the test.
func MustClass(t *testing.T, mm *concerto.ModelManager, fqn string) *concerto.ClassDeclaration {
	t.Helper()

	class, err := mm.ClassDeclaration(fqn)
	if err != nil {
		t.Fatalf("resolve %s: %v", fqn, err)
	}
	return class
}

// LoadDocument parses a fixture document.
func LoadDocument(t *testing.T, name string) *document.Document {
	t.Helper()

	data, err := os.ReadFile(DocumentPath(name))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// MustDocument builds a document from a Go value.
func MustDocument(t *testing.T, value any) *document.Document {
	t.Helper()

	doc, err := document.FromValue(value)
	if err != nil {
		t.Fatalf("document from value: %v", err)
	}
	return doc
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if path == "" {
		t.Fatalf("write golden: %v", errors.New("testsupport: golden path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
