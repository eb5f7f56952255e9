// Package modelform generates forms for Concerto model types. The root
// package re-exports the pieces most callers need; the pkg/ packages hold
// the full API.
package modelform

import (
	"context"
	"fmt"
	"io/fs"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/concerto/openapi"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/orchestrator"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/renderers/preact"
	"github.com/goliatone/go-modelform/pkg/renderers/vanilla"
)

// RenderOptions describes per-request overrides that renderers can use to
// surface server-side validation errors or hidden fields.
type RenderOptions = render.RenderOptions

// Request aliases orchestrator.Request.
type Request = orchestrator.Request

// Form aliases orchestrator.Form, an element tree bound to its document.
type Form = orchestrator.Form

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// LoadModels parses the model files at paths (JSON or YAML AST) into a
// validated model manager.
func LoadModels(paths ...string) (*concerto.ModelManager, error) {
	var files []*concerto.ModelFile
	for _, path := range paths {
		loaded, err := concerto.LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, loaded...)
	}
	return concerto.NewModelManagerFromFiles(files...)
}

// LoadOpenAPI converts the component schemas of an OpenAPI document into a
// model manager for namespace.
func LoadOpenAPI(ctx context.Context, data []byte, namespace string) (*concerto.ModelManager, error) {
	file, err := openapi.Load(ctx, data, namespace)
	if err != nil {
		return nil, err
	}
	return concerto.NewModelManagerFromFiles(file)
}

// GenerateHTML renders the form for typeName with the vanilla renderer. The
// type may be a short name when it is unique. A nil doc renders a generated
// default instance.
func GenerateHTML(ctx context.Context, models *concerto.ModelManager, typeName string, doc *document.Document, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(append([]orchestrator.Option{orchestrator.WithModels(models)}, options...)...)
	fqn, err := gen.ResolveType(typeName)
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, orchestrator.Request{
		Type:     fqn,
		Document: doc,
		Renderer: "vanilla",
	})
}

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS returns the static files shipped with a renderer ("vanilla" or
// "preact") so applications can serve them next to rendered pages:
//
//	mux.Handle("/assets/preact/",
//	  http.StripPrefix("/assets/preact/",
//	    http.FileServerFS(modelform.AssetsFS("preact")),
//	  ),
//	)
func AssetsFS(renderer string) (fs.FS, error) {
	switch renderer {
	case "vanilla":
		return vanilla.AssetsFS(), nil
	case "preact":
		return preact.AssetsFS(), nil
	default:
		return nil, fmt.Errorf("modelform: renderer %q ships no assets", renderer)
	}
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme/variant choices can be resolved ahead of rendering.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithThemes registers a fixed set of theme manifests.
func WithThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) orchestrator.Option {
	return orchestrator.WithThemes(defaultTheme, defaultVariant, manifests...)
}

// WithThemeFallbacks forwards fallback partials used when deriving renderer
// configuration from a theme selection.
func WithThemeFallbacks(fallbacks map[string]string) orchestrator.Option {
	return orchestrator.WithThemeFallbacks(fallbacks)
}
