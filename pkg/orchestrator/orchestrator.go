package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/renderers/vanilla"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

const defaultRendererName = "vanilla"

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithModels sets the model manager types are resolved against.
func WithModels(models *concerto.ModelManager) Option {
	return func(o *Orchestrator) {
		o.models = models
	}
}

// WithModelFiles builds the model manager from parsed model files.
func WithModelFiles(files ...*concerto.ModelFile) Option {
	return func(o *Orchestrator) {
		models, err := concerto.NewModelManagerFromFiles(files...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: load models: %w", err)
			return
		}
		o.models = models
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithVisitor replaces the visitor used to build element trees.
func WithVisitor(v *visitor.Visitor) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.visitor = v
		}
	}
}

// WithFactoryOptions configures the factory that builds the default document
// when a request carries none.
func WithFactoryOptions(options ...concerto.FactoryOption) Option {
	return func(o *Orchestrator) {
		o.factoryOptions = append(o.factoryOptions, options...)
	}
}

// WithCustomSelectors registers option lists for
// @FormEditor("selectOptions", key). Request params take precedence.
func WithCustomSelectors(selectors map[string][]ui.Option) Option {
	return func(o *Orchestrator) {
		if o.selectors == nil {
			o.selectors = make(map[string][]ui.Option, len(selectors))
		}
		for key, options := range selectors {
			o.selectors[key] = options
		}
	}
}

// WithRelationshipProvider sets the default provider of relationship picker
// options.
func WithRelationshipProvider(provider ui.RelationshipProvider) Option {
	return func(o *Orchestrator) {
		o.relationships = provider
	}
}

// WithTransformers registers tree transformers run after every visit.
func WithTransformers(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		o.transformers = append(o.transformers, transformers...)
	}
}

// WithThemeSelector resolves theme/variant choices ahead of rendering.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithThemes registers manifests behind a StaticThemes selector.
func WithThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) Option {
	return func(o *Orchestrator) {
		o.themeSelector = NewStaticThemes(defaultTheme, defaultVariant, manifests...)
	}
}

// WithThemeFallbacks replaces the partials used when a theme does not define
// a template for an element kind.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.themeFallbacks = fallbacks
	}
}

// Orchestrator coordinates the pipeline from model type to rendered output.
// It is safe for concurrent use once constructed; each request runs its own
// traversal against its own document.
type Orchestrator struct {
	models          *concerto.ModelManager
	visitor         *visitor.Visitor
	registry        *render.Registry
	defaultRenderer string
	factoryOptions  []concerto.FactoryOption
	selectors       map[string][]ui.Option
	relationships   ui.RelationshipProvider
	transformers    []Transformer
	themeSelector   theme.ThemeSelector
	themeFallbacks  map[string]string
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies get the built-in implementations (default visitor, registry
// holding the vanilla renderer).
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.visitor == nil {
		o.visitor = visitor.New()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = errors.Join(o.initialiseErr, fmt.Errorf("orchestrator: default renderer: %w", err))
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
	if o.themeFallbacks == nil {
		o.themeFallbacks = defaultThemeFallbacks()
	}
}

// Models returns the configured model manager.
func (o *Orchestrator) Models() *concerto.ModelManager {
	return o.models
}

// Registry returns the renderer registry.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Types lists the concrete class declarations a form can be built for.
func (o *Orchestrator) Types() []string {
	if o.models == nil {
		return nil
	}
	var out []string
	for _, decl := range o.models.Declarations() {
		class, ok := decl.(*concerto.ClassDeclaration)
		if !ok || class.IsAbstract() {
			continue
		}
		out = append(out, class.FullyQualifiedName())
	}
	sort.Strings(out)
	return out
}

// ResolveType maps name onto the fully qualified name of a concrete class.
// Qualified names are returned when they exist; short names must match a
// single class across the loaded namespaces.
func (o *Orchestrator) ResolveType(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrTypeRequired
	}
	var matches []string
	for _, fqn := range o.Types() {
		if fqn == name {
			return fqn, nil
		}
		if _, short := concerto.SplitFQN(fqn); short == name {
			matches = append(matches, fqn)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousType, name, strings.Join(matches, ", "))
	}
}

// Request describes one form to build and render.
type Request struct {
	// Type is the fully qualified name of the root class.
	Type string

	// Document is the JSON document under edit. When nil a default instance
	// of Type is generated.
	Document *document.Document

	// Params carries traversal flags. Models, Document and the edit
	// callbacks are filled in by the orchestrator; caller supplied callbacks
	// run after the document was updated.
	Params visitor.Params

	// ReadOnly renders the form without edit callbacks.
	ReadOnly bool

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	ThemeName    string
	ThemeVariant string

	// RenderOptions carries per-request data such as titles, errors or hidden
	// fields. Document, Rerender and Theme are set by the orchestrator.
	RenderOptions render.RenderOptions
}

// Output is a rendered form.
type Output struct {
	Body        []byte
	ContentType string
	Form        *Form
}

// Build resolves the request into a Form: the element tree bound to the
// document under edit.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*Form, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if o.models == nil {
		return nil, ErrNoModels
	}
	if req.Type == "" {
		return nil, ErrTypeRequired
	}

	class, err := o.models.ClassDeclaration(req.Type)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolve type: %w", err)
	}

	doc := req.Document
	if doc == nil {
		if doc, err = o.defaultDocument(class, req.Params); err != nil {
			return nil, err
		}
	}

	params := o.bindParams(req, doc)
	form := &Form{Type: class.FullyQualifiedName(), Document: doc}
	form.build = func() (*ui.Element, error) {
		root, err := o.visitor.Visit(class, visitor.NewContext(params))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: visit %s: %w", form.Type, err)
		}
		if root == nil {
			return nil, nil
		}
		tctx := WithDocument(ctx, form.Document)
		for _, transformer := range o.transformers {
			if transformer == nil {
				continue
			}
			if err := transformer.Transform(tctx, root); err != nil {
				return nil, fmt.Errorf("orchestrator: transform tree: %w", err)
			}
		}
		return root, nil
	}
	if _, err := form.Rebuild(); err != nil {
		return nil, err
	}
	return form, nil
}

// Render builds the form and renders it, reporting the content type.
func (o *Orchestrator) Render(ctx context.Context, req Request) (*Output, error) {
	form, err := o.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.RenderForm(ctx, form, req)
}

// RenderForm renders an already built form, for callers that applied actions
// or submitted values to it first.
func (o *Orchestrator) RenderForm(ctx context.Context, form *Form, req Request) (*Output, error) {
	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	opts := req.RenderOptions
	opts.Document = form.Document
	opts.Rerender = form.Rebuild
	if opts.Theme, err = o.resolveTheme(req.ThemeName, req.ThemeVariant); err != nil {
		return nil, err
	}

	body, err := renderer.Render(ctx, form.Root, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return &Output{Body: body, ContentType: renderer.ContentType(), Form: form}, nil
}

// Generate executes the model → visitor → renderer sequence and returns the
// rendered bytes (HTML for the default vanilla renderer).
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	out, err := o.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (o *Orchestrator) defaultDocument(class *concerto.ClassDeclaration, params visitor.Params) (*document.Document, error) {
	mode := concerto.GenerateEmpty
	if params.IncludeSampleData {
		mode = concerto.GenerateSample
	}
	factory := concerto.NewFactory(o.models, o.factoryOptions...)
	instance, err := factory.NewResource(class.Namespace(), class.Name(), "", concerto.GenerateOptions{
		IncludeOptionalFields: params.IncludeOptionalFields,
		Mode:                  mode,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: default document: %w", err)
	}
	doc, err := document.FromValue(instance)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: default document: %w", err)
	}
	return doc, nil
}

// bindParams routes the traversal callbacks into doc.
func (o *Orchestrator) bindParams(req Request, doc *document.Document) visitor.Params {
	params := req.Params
	params.Models = o.models
	params.Document = doc
	if params.RelationshipProvider == nil {
		params.RelationshipProvider = o.relationships
	}
	if len(o.selectors) > 0 {
		merged := make(map[string][]ui.Option, len(o.selectors)+len(params.CustomSelectors))
		for key, options := range o.selectors {
			merged[key] = options
		}
		for key, options := range params.CustomSelectors {
			merged[key] = options
		}
		params.CustomSelectors = merged
	}

	if req.ReadOnly {
		params.OnFieldValueChange = nil
		params.AddElement = nil
		params.RemoveElement = nil
		return params
	}

	onChange, add, remove := req.Params.OnFieldValueChange, req.Params.AddElement, req.Params.RemoveElement
	params.OnFieldValueChange = func(key string, value any) error {
		if err := doc.Set(key, value); err != nil {
			return err
		}
		if onChange != nil {
			return onChange(key, value)
		}
		return nil
	}
	params.AddElement = func(key string, value any) error {
		if err := doc.Append(key, value); err != nil {
			return err
		}
		if add != nil {
			return add(key, value)
		}
		return nil
	}
	params.RemoveElement = func(key string, index int) error {
		if err := doc.Remove(key, index); err != nil {
			return err
		}
		if remove != nil {
			return remove(key, index)
		}
		return nil
	}
	return params
}

func (o *Orchestrator) resolveTheme(name, variant string) (*theme.RendererConfig, error) {
	if o.themeSelector == nil {
		return nil, nil
	}
	selection, err := o.themeSelector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme: %w", err)
	}
	return rendererConfig(selection, o.themeFallbacks), nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}
