package preact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/render"
	rendertemplate "github.com/goliatone/go-modelform/pkg/render/template"
	"github.com/goliatone/go-modelform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-modelform/pkg/renderers/jsontree"
	"github.com/goliatone/go-modelform/pkg/ui"
)

const (
	templateName = "templates/page.tmpl"

	// DefaultVendorScript is the ES module build of preact mapped to the
	// "preact" import specifier.
	DefaultVendorScript = "https://esm.sh/preact@10.19.3"
	defaultAppScript    = "modelform-preact.js"
	defaultStylesheet   = "modelform-preact.css"

	themeAssetVendorScript = "preact.vendor"
	themeAssetAppScript    = "preact.app"
	themeAssetStylesheet   = "preact.stylesheet"
)

// Option customises the renderer configuration.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	assetsFS         fs.FS
	assetPaths       assetPaths
	assetURLPrefix   string
}

type assetPaths struct {
	vendorScript string
	appScript    string
	stylesheet   string
}

var defaultAssetPaths = assetPaths{
	vendorScript: DefaultVendorScript,
	appScript:    defaultAppScript,
	stylesheet:   defaultStylesheet,
}

// AssetPaths describes the URLs emitted by the page template. Empty fields
// keep their defaults. Relative app and stylesheet paths must exist in the
// assets file system.
type AssetPaths struct {
	VendorScript string
	AppScript    string
	Stylesheet   string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithAssetsFS overrides the embedded asset bundle.
func WithAssetsFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.assetsFS = files
		}
	}
}

// WithAssetPaths customises the paths injected into the page.
func WithAssetPaths(paths AssetPaths) Option {
	return func(cfg *config) {
		cfg.assetPaths = normalizeAssetPaths(paths)
	}
}

// WithAssetURLPrefix prefixes relative asset paths, e.g. "/assets/preact".
func WithAssetURLPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.assetURLPrefix = prefix
	}
}

// Renderer emits an HTML shell that hydrates the form client side from the
// embedded JSON tree.
type Renderer struct {
	templates      rendertemplate.TemplateRenderer
	assetPaths     assetPaths
	assetURLPrefix string
}

// New constructs a Preact renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		assetsFS:   AssetsFS(),
		assetPaths: defaultAssetPaths,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.templateRenderer == nil {
		if err := ensureTemplate(cfg.templateFS, templateName); err != nil {
			return nil, err
		}
	}
	if err := ensureAssets(cfg.assetsFS, cfg.assetPaths); err != nil {
		return nil, err
	}

	templateRenderer := cfg.templateRenderer
	if templateRenderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("preact renderer: configure template renderer: %w", err)
		}
		templateRenderer = engine
	}

	return &Renderer{
		templates:      templateRenderer,
		assetPaths:     cfg.assetPaths,
		assetURLPrefix: cfg.assetURLPrefix,
	}, nil
}

// Name identifies the renderer inside the registry.
func (r *Renderer) Name() string {
	return "preact"
}

// ContentType returns the MIME type for generated documents.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the hydration shell for root.
func (r *Renderer) Render(ctx context.Context, root *ui.Element, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, fmt.Errorf("preact renderer: template renderer is nil")
	}

	payload, err := json.Marshal(jsontree.BuildPayload(root, opts))
	if err != nil {
		return nil, fmt.Errorf("preact renderer: marshal payload: %w", err)
	}

	urls := r.assetURLs(themeAssetResolver(opts.Theme))
	data := map[string]any{
		"payload": string(payload),
		"assets": map[string]string{
			"vendor_script": urls.VendorScript,
			"app_script":    urls.AppScript,
			"stylesheet":    urls.Stylesheet,
		},
		"theme": buildThemeContext(opts.Theme),
	}

	rendered, err := r.templates.RenderTemplate(templateName, data)
	if err != nil {
		return nil, fmt.Errorf("preact renderer: render template: %w", err)
	}
	return []byte(rendered), nil
}

type rendererTheme struct {
	Name         string `json:"name,omitempty"`
	Variant      string `json:"variant,omitempty"`
	CSSVarsStyle string `json:"css_vars_style,omitempty"`
}

func buildThemeContext(cfg *theme.RendererConfig) rendererTheme {
	if cfg == nil {
		return rendererTheme{}
	}
	return rendererTheme{
		Name:         cfg.Theme,
		Variant:      cfg.Variant,
		CSSVarsStyle: cssVarsStyle(cfg.CSSVars),
	}
}

func themeAssetResolver(cfg *theme.RendererConfig) func(string) string {
	if cfg == nil {
		return nil
	}
	return cfg.AssetURL
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(".mf-preact {\n")
	for _, key := range keys {
		b.WriteString("  ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(strings.NewReplacer("<", "", ">", "", ";", "").Replace(vars[key]))
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func ensureTemplate(store fs.FS, name string) error {
	if store == nil {
		return fmt.Errorf("preact renderer: template file system is nil")
	}
	if _, err := fs.Stat(store, name); err != nil {
		return fmt.Errorf("preact renderer: template %q not found: %w", name, err)
	}
	return nil
}

// ensureAssets checks that relative asset paths resolve in store. Absolute
// URLs are served elsewhere and are not checked.
func ensureAssets(store fs.FS, paths assetPaths) error {
	required := []struct {
		label string
		path  string
	}{
		{label: "app script", path: paths.appScript},
		{label: "stylesheet", path: paths.stylesheet},
	}
	for _, item := range required {
		if item.path == "" {
			return fmt.Errorf("preact renderer: %s path required", item.label)
		}
		if isAbsoluteURL(item.path) {
			continue
		}
		if store == nil {
			return fmt.Errorf("preact renderer: assets file system is nil")
		}
		if _, err := fs.Stat(store, item.path); err != nil {
			return fmt.Errorf("preact renderer: %s %q not found: %w", item.label, item.path, err)
		}
	}
	return nil
}

func normalizeAssetPaths(paths AssetPaths) assetPaths {
	result := defaultAssetPaths
	if paths.VendorScript != "" {
		result.vendorScript = paths.VendorScript
	}
	if paths.AppScript != "" {
		result.appScript = paths.AppScript
	}
	if paths.Stylesheet != "" {
		result.stylesheet = paths.Stylesheet
	}
	return result
}

type assetURLs struct {
	VendorScript string
	AppScript    string
	Stylesheet   string
}

func (r *Renderer) assetURLs(resolver func(string) string) assetURLs {
	vendor := r.assetPaths.vendorScript
	app := r.assetPaths.appScript
	css := r.assetPaths.stylesheet

	if resolver != nil {
		if resolved := resolver(themeAssetVendorScript); strings.TrimSpace(resolved) != "" {
			vendor = resolved
		}
		if resolved := resolver(themeAssetAppScript); strings.TrimSpace(resolved) != "" {
			app = resolved
		}
		if resolved := resolver(themeAssetStylesheet); strings.TrimSpace(resolved) != "" {
			css = resolved
		}
	}

	return assetURLs{
		VendorScript: expandAssetURL(r.assetURLPrefix, vendor),
		AppScript:    expandAssetURL(r.assetURLPrefix, app),
		Stylesheet:   expandAssetURL(r.assetURLPrefix, css),
	}
}

func isAbsoluteURL(name string) bool {
	return strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") ||
		strings.HasPrefix(name, "//") ||
		strings.HasPrefix(name, "/")
}

func expandAssetURL(prefix, name string) string {
	if name == "" {
		return ""
	}
	if isAbsoluteURL(name) || prefix == "" {
		return name
	}
	p := strings.TrimRight(prefix, "/")
	n := strings.TrimLeft(name, "/")
	if p == "" {
		return n
	}
	return p + "/" + n
}
