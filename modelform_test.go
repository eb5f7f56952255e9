package modelform

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-modelform/pkg/testsupport"
)

func loadFixtureModels(t *testing.T) []string {
	t.Helper()
	var paths []string
	for _, name := range testsupport.DefaultModels {
		paths = append(paths, testsupport.ModelPath(name))
	}
	return paths
}

func TestGenerateHTML(t *testing.T) {
	models, err := LoadModels(loadFixtureModels(t)...)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}

	html, err := GenerateHTML(context.Background(), models, "Order", testsupport.LoadDocument(t, "order.json"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(html), `name="orderId" type="text" value="ord-1"`) {
		t.Fatalf("expected bound orderId input, got:\n%s", html)
	}
}

func TestGenerateHTML_UnknownType(t *testing.T) {
	models, err := LoadModels(loadFixtureModels(t)...)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	if _, err := GenerateHTML(context.Background(), models, "Invoice", nil); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestLoadModels_MissingFile(t *testing.T) {
	if _, err := LoadModels(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing model file")
	}
}

func TestLoadOpenAPI(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("pkg", "concerto", "openapi", "testdata", "shop.yaml"))
	if err != nil {
		t.Fatalf("read spec: %v", err)
	}
	models, err := LoadOpenAPI(context.Background(), data, "org.acme.api@1.0.0")
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	html, err := GenerateHTML(context.Background(), models, "Customer", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(html), `name="customerId"`) {
		t.Fatalf("expected customerId input, got:\n%s", html)
	}
}

func TestEmbeddedFiles(t *testing.T) {
	if _, err := fs.ReadFile(EmbeddedTemplates(), "templates/form.tmpl"); err != nil {
		t.Fatalf("expected form template to be readable: %v", err)
	}

	preactAssets, err := AssetsFS("preact")
	if err != nil {
		t.Fatalf("preact assets: %v", err)
	}
	data, err := fs.ReadFile(preactAssets, "modelform-preact.js")
	if err != nil {
		t.Fatalf("expected client bundle to be readable: %v", err)
	}
	if !strings.Contains(string(data), "modelform-data") {
		t.Fatalf("expected client bundle to read the page payload")
	}

	if _, err := AssetsFS("tui"); err == nil {
		t.Fatalf("expected error for renderer without assets")
	}
}
