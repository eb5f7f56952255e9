package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-modelform/pkg/render"
	rendertemplate "github.com/goliatone/go-modelform/pkg/render/template"
	"github.com/goliatone/go-modelform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-modelform/pkg/ui"
)

const (
	formTemplate = "templates/form.tmpl"

	// ThemeAssetStylesheet is the theme asset key resolved for the stylesheet
	// link emitted above the form.
	ThemeAssetStylesheet = "vanilla.stylesheet"
	// PartialPrefix prefixes the theme partial keys consulted per element
	// kind, e.g. "forms.input" or "forms.monetary-amount".
	PartialPrefix = "forms."
)

// DefaultPartials maps theme partial keys to the embedded templates.
func DefaultPartials() map[string]string {
	out := map[string]string{
		PartialPrefix + "composite": "templates/elements/composite.tmpl",
	}
	for _, kind := range []ui.Kind{
		ui.KindGroup, ui.KindSelect, ui.KindCheckbox, ui.KindDateTime, ui.KindInput,
		ui.KindObject, ui.KindArray, ui.KindArrayElement, ui.KindRelationship,
	} {
		out[PartialPrefix+string(kind)] = "templates/elements/" + string(kind) + ".tmpl"
	}
	return out
}

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	submitLabel      string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
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

// WithSubmitLabel sets the text of the submit button.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(label) != "" {
			cfg.submitLabel = label
		}
	}
}

// Renderer renders an element tree as a server side HTML form.
type Renderer struct {
	templates   rendertemplate.TemplateRenderer
	submitLabel string
}

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), submitLabel: "Save"}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{templates: renderer, submitLabel: cfg.submitLabel}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render emits the form markup for root. Labels are localised in place when
// opts carries a Translator. A nil root renders an empty form.
func (r *Renderer) Render(ctx context.Context, root *ui.Element, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	render.LocalizeTree(root, opts)
	mapped := render.MapErrorPayload(root, opts.Errors)
	state := &renderState{
		partials: DefaultPartials(),
		errors:   mapped.Fields,
	}
	if opts.Theme != nil {
		for key, value := range opts.Theme.Partials {
			if strings.HasPrefix(key, PartialPrefix) && strings.TrimSpace(value) != "" {
				state.partials[key] = value
			}
		}
	}

	body := ""
	if root != nil {
		var err error
		body, err = r.renderElement(ctx, root, state)
		if err != nil {
			return nil, err
		}
	}

	method := strings.ToLower(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "post"
	}
	data := map[string]any{
		"title":         opts.Title,
		"action":        opts.Action,
		"method":        method,
		"body":          body,
		"hidden_fields": render.SortedHiddenFields(opts.HiddenFields),
		"form_errors":   mapped.Form,
		"read_only":     readOnly(root),
		"submit_label":  r.submitLabel,
	}
	if opts.Theme != nil {
		data["theme"] = opts.Theme.Theme
		data["variant"] = opts.Theme.Variant
		data["css_vars_style"] = cssVarsStyle(opts.Theme.CSSVars)
		if opts.Theme.AssetURL != nil {
			data["stylesheet"] = opts.Theme.AssetURL(ThemeAssetStylesheet)
		}
	}

	out, err := r.templates.RenderTemplate(formTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(out), nil
}

type renderState struct {
	partials map[string]string
	errors   map[string][]string
}

func (s *renderState) templateFor(kind ui.Kind) (string, error) {
	if name := s.partials[PartialPrefix+string(kind)]; name != "" {
		return name, nil
	}
	switch kind {
	case ui.KindMonetaryAmount, ui.KindDuration, ui.KindParty:
		return s.partials[PartialPrefix+"composite"], nil
	}
	return "", fmt.Errorf("vanilla renderer: no template for element kind %q", kind)
}

func (r *Renderer) renderElement(ctx context.Context, el *ui.Element, state *renderState) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var children strings.Builder
	for _, child := range el.Children {
		if child == nil {
			continue
		}
		markup, err := r.renderElement(ctx, child, state)
		if err != nil {
			return "", err
		}
		children.WriteString(markup)
		children.WriteByte('\n')
	}

	name, err := state.templateFor(el.Kind)
	if err != nil {
		return "", err
	}
	out, err := r.templates.RenderTemplate(name, elementData(el, strings.TrimRight(children.String(), "\n"), state.errors[el.Key]))
	if err != nil {
		return "", fmt.Errorf("vanilla renderer: render %s %q: %w", el.Kind, el.Key, err)
	}
	return strings.TrimSpace(out), nil
}

func elementData(el *ui.Element, children string, errors []string) map[string]any {
	p := el.Props
	data := map[string]any{
		"kind":              string(el.Kind),
		"key":               el.Key,
		"id":                controlID(el.Key),
		"label":             p.Label,
		"skip_label":        p.SkipLabel,
		"type":              p.Type,
		"input_type":        p.InputType,
		"required":          p.Required,
		"read_only":         p.ReadOnly,
		"text_only":         p.TextOnly,
		"toggle":            p.Toggle,
		"relationship_type": p.RelationshipType,
		"help":              sanitizeHelp(p.Help),
		"index":             p.Index,
		"children":          children,
		"errors":            errors,
		"can_add":           p.Add != nil && !p.ReadOnly,
		"can_remove":        p.Remove != nil && !p.ReadOnly,
	}
	if data["input_type"] == "" {
		data["input_type"] = "text"
	}

	switch el.Kind {
	case ui.KindDateTime:
		data["value"] = datetimeLocal(p.Value)
		data["raw_value"] = displayValue(p.Value)
	case ui.KindCheckbox:
		data["checked"] = truthy(p.Value)
	case ui.KindSelect, ui.KindRelationship:
		current := displayValue(p.Value)
		options := make([]map[string]any, 0, len(p.Options))
		selectedText := current
		hasSelection := false
		for _, option := range p.Options {
			selected := option.Value == current && current != ""
			if selected {
				hasSelection = true
				selectedText = option.Text
			}
			options = append(options, map[string]any{
				"value":    option.Value,
				"text":     option.Text,
				"selected": selected,
			})
		}
		data["value"] = current
		data["options"] = options
		data["has_selection"] = hasSelection
		data["selected_text"] = selectedText
	default:
		data["value"] = displayValue(p.Value)
	}
	return data
}

// readOnly reports whether no leaf of root accepts input, in which case the
// submit button is omitted.
func readOnly(root *ui.Element) bool {
	leaves := ui.Leaves(root)
	if len(leaves) == 0 {
		return root == nil
	}
	for _, leaf := range leaves {
		if !leaf.Props.ReadOnly && !leaf.Props.TextOnly {
			return false
		}
	}
	return true
}
