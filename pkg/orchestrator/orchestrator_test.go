package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/testsupport"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visibility"
)

var orderType = testsupport.SalesNamespace + ".Order"

func TestOrchestrator_GenerateWithDefaultRenderer(t *testing.T) {
	orch := New(WithModels(testsupport.LoadModelManager(t)))

	out, err := orch.Render(context.Background(), Request{
		Type:          orderType,
		Document:      testsupport.LoadDocument(t, "order.json"),
		RenderOptions: render.RenderOptions{Title: "Order"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.ContentType != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %s", out.ContentType)
	}
	html := string(out.Body)
	for _, fragment := range []string{`name="orderId" type="text" value="ord-1"`, `value="add:items"`, `value="remove:tags[0]"`} {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected %q in output\n%s", fragment, html)
		}
	}
}

func TestOrchestrator_DefaultDocument(t *testing.T) {
	orch := New(
		WithModels(testsupport.LoadModelManager(t)),
		WithFactoryOptions(concerto.WithIDGenerator(func() string { return "gen-1" })),
	)

	form, err := orch.Build(context.Background(), Request{Type: orderType})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if id, _ := form.Document.StringAt("orderId"); id != "gen-1" {
		t.Fatalf("expected generated id, got %q", id)
	}
	if class, _ := form.Document.Class(""); class != orderType {
		t.Fatalf("expected $class %s, got %q", orderType, class)
	}
	tags := ui.Find(form.Root, "tags")
	if tags == nil || tags.Kind != ui.KindArray || len(tags.Children) != 0 {
		t.Fatalf("expected empty tags array, got %+v", tags)
	}
}

func TestForm_ApplyActionsAndValues(t *testing.T) {
	var observed []string
	orch := New(WithModels(testsupport.LoadModelManager(t)))
	req := Request{Type: orderType, Document: testsupport.LoadDocument(t, "order.json")}
	req.Params.OnFieldValueChange = func(key string, _ any) error {
		observed = append(observed, key)
		return nil
	}

	form, err := orch.Build(context.Background(), req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := form.Apply("add:tags"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := len(ui.Find(form.Root, "tags").Children); got != 4 {
		t.Fatalf("expected 4 tag elements after add, got %d", got)
	}
	if err := form.Apply("remove:tags[0]"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if first, _ := form.Document.StringAt("tags[0]"); first != "fragile" {
		t.Fatalf("expected fragile first, got %q", first)
	}

	err = form.ApplyValues(map[string][]string{
		"orderId":           {"ord-2"},
		"rush":              {"false"},
		"items[0].quantity": {"5"},
		"placedAt":          {"2026-05-06T07:08"},
		"unknown":           {"ignored"},
	})
	if err != nil {
		t.Fatalf("apply values: %v", err)
	}

	got := form.Document.Value().(map[string]any)
	if got["orderId"] != "ord-2" || got["rush"] != false || got["placedAt"] != "2026-05-06T07:08:00Z" {
		t.Fatalf("unexpected document %v", got)
	}
	if q, _ := form.Document.Get("items[0].quantity"); q != float64(5) {
		t.Fatalf("expected quantity 5, got %v", q)
	}
	if diff := cmp.Diff([]string{"orderId", "placedAt", "rush", "items[0].quantity"}, observed); diff != "" {
		t.Fatalf("observed changes mismatch (-want +got):\n%s", diff)
	}

	if err := form.Apply("explode:tags"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if err := form.Apply(ActionSubmit); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestForm_ApplyValuesRejectsBadNumbers(t *testing.T) {
	orch := New(WithModels(testsupport.LoadModelManager(t)))
	form, err := orch.Build(context.Background(), Request{Type: orderType, Document: testsupport.LoadDocument(t, "order.json")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	err = form.ApplyValues(map[string][]string{"items[1].quantity": {"lots"}})
	var valueErr *ValueError
	if !errors.As(err, &valueErr) || valueErr.Key != "items[1].quantity" {
		t.Fatalf("expected value error for items[1].quantity, got %v", err)
	}
}

func TestOrchestrator_ResolveType(t *testing.T) {
	orch := New(WithModels(testsupport.LoadModelManager(t)))

	cases := map[string]string{
		"Order":   orderType,
		orderType: orderType,
	}
	for input, want := range cases {
		got, err := orch.ResolveType(input)
		if err != nil {
			t.Fatalf("resolve %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("resolve %q: expected %q, got %q", input, want, got)
		}
	}
	if _, err := orch.ResolveType("Nope"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := orch.ResolveType(""); !errors.Is(err, ErrTypeRequired) {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
}

func TestOrchestrator_ReadOnly(t *testing.T) {
	orch := New(WithModels(testsupport.LoadModelManager(t)))
	form, err := orch.Build(context.Background(), Request{
		Type:     orderType,
		Document: testsupport.LoadDocument(t, "order.json"),
		ReadOnly: true,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ui.Walk(form.Root, func(el *ui.Element) bool {
		if el.Props.OnChange != nil || el.Props.Add != nil || el.Props.Remove != nil {
			t.Fatalf("read-only form exposes callbacks at %s", el.Key)
		}
		return true
	})
	if err := form.Apply("add:tags"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestOrchestrator_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := New().Build(ctx, Request{Type: orderType}); !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels, got %v", err)
	}

	orch := New(WithModels(testsupport.LoadModelManager(t)))
	if _, err := orch.Build(ctx, Request{}); !errors.Is(err, ErrTypeRequired) {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
	if _, err := orch.Build(ctx, Request{Type: testsupport.SalesNamespace + ".Missing"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := orch.Generate(ctx, Request{Type: orderType, Renderer: "nope"}); err == nil {
		t.Fatalf("expected error for unknown renderer")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := orch.Build(cancelled, Request{Type: orderType}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOrchestrator_Types(t *testing.T) {
	types := New(WithModels(testsupport.LoadModelManager(t))).Types()
	has := func(name string) bool {
		for _, candidate := range types {
			if candidate == name {
				return true
			}
		}
		return false
	}
	if !has(orderType) || !has(testsupport.SalesNamespace+".PostalAddress") {
		t.Fatalf("expected concrete classes, got %v", types)
	}
	if has(testsupport.SalesNamespace + ".Address") {
		t.Fatalf("abstract classes must not be listed: %v", types)
	}
}

func TestOrchestrator_PassesThemeConfigToRenderer(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456"},
	}
	selector := &stubThemeSelector{selection: &theme.Selection{
		Theme:    "acme",
		Variant:  "custom-variant",
		Manifest: manifest,
	}}

	renderer := &captureRenderer{}
	registry := render.NewRegistry()
	registry.MustRegister(renderer)

	orch := New(
		WithModels(testsupport.LoadModelManager(t)),
		WithRegistry(registry),
		WithDefaultRenderer(renderer.Name()),
		WithThemeSelector(selector),
	)
	doc := testsupport.LoadDocument(t, "order.json")
	_, err := orch.Generate(context.Background(), Request{
		Type:         orderType,
		Document:     doc,
		ThemeName:    "custom-theme",
		ThemeVariant: "custom-variant",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(selector.calls) != 1 {
		t.Fatalf("expected selector called once, got %d", len(selector.calls))
	}
	if selector.calls[0].name != "custom-theme" || selector.calls[0].variant != "custom-variant" {
		t.Fatalf("unexpected selector args: %+v", selector.calls[0])
	}

	opts := renderer.options
	if opts.Document != doc || opts.Rerender == nil {
		t.Fatalf("expected document and rerender passed to renderer")
	}
	if renderer.root == nil || renderer.root.Kind != ui.KindGroup {
		t.Fatalf("expected element tree passed to renderer")
	}
	cfg := opts.Theme
	if cfg == nil {
		t.Fatalf("expected theme config passed to renderer")
	}
	if cfg.Theme != "acme" || cfg.Variant != "custom-variant" {
		t.Fatalf("unexpected theme %s/%s", cfg.Theme, cfg.Variant)
	}
	if got := cfg.Partials["forms.input"]; got != defaultThemeFallbacks()["forms.input"] {
		t.Fatalf("partials not merged with fallbacks: got %s", got)
	}
	if cfg.Tokens["brand"] != "#123456" || cfg.CSSVars["--brand"] != "#123456" {
		t.Fatalf("tokens not propagated: %+v", cfg)
	}
	if cfg.AssetURL == nil || cfg.AssetURL("preact.app") != "" {
		t.Fatalf("expected empty AssetURL resolver")
	}
}

func TestOrchestrator_WithThemesUsesDefaults(t *testing.T) {
	manifest := &theme.Manifest{
		Name:      "acme",
		Version:   "1.0.0",
		Tokens:    map[string]string{"brand": "#123456"},
		Templates: map[string]string{"forms.input": "themes/acme/input.tmpl"},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files:  map[string]string{"preact.stylesheet": "theme.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens:    map[string]string{"brand": "#654321"},
				Templates: map[string]string{"forms.checkbox": "themes/acme/dark/checkbox.tmpl"},
				Assets: theme.Assets{
					Files: map[string]string{"preact.vendor": "vendor.dark.js"},
				},
			},
		},
	}

	renderer := &captureRenderer{}
	registry := render.NewRegistry()
	registry.MustRegister(renderer)

	orch := New(
		WithModels(testsupport.LoadModelManager(t)),
		WithRegistry(registry),
		WithDefaultRenderer(renderer.Name()),
		WithThemes("acme", "dark", manifest),
	)
	if _, err := orch.Generate(context.Background(), Request{Type: orderType}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	cfg := renderer.options.Theme
	if cfg == nil {
		t.Fatalf("expected theme config passed to renderer")
	}
	if cfg.Theme != "acme" || cfg.Variant != "dark" {
		t.Fatalf("unexpected selection %s/%s", cfg.Theme, cfg.Variant)
	}
	if cfg.Partials["forms.input"] != "themes/acme/input.tmpl" {
		t.Fatalf("expected base template override, got %s", cfg.Partials["forms.input"])
	}
	if cfg.Partials["forms.checkbox"] != "themes/acme/dark/checkbox.tmpl" {
		t.Fatalf("expected variant template override, got %s", cfg.Partials["forms.checkbox"])
	}
	if cfg.Partials["forms.select"] != defaultThemeFallbacks()["forms.select"] {
		t.Fatalf("fallback partial not applied for select")
	}
	if cfg.Tokens["brand"] != "#654321" || cfg.CSSVars["--brand"] != "#654321" {
		t.Fatalf("tokens not merged with variant override: %+v", cfg.Tokens)
	}
	if got := cfg.AssetURL("preact.vendor"); got != "/assets/themes/acme/vendor.dark.js" {
		t.Fatalf("unexpected vendor asset url: %s", got)
	}
	if got := cfg.AssetURL("preact.stylesheet"); got != "/assets/themes/acme/theme.css" {
		t.Fatalf("unexpected stylesheet asset url: %s", got)
	}
}

func TestStaticThemes_Select(t *testing.T) {
	themes := NewStaticThemes("", "", &theme.Manifest{Name: "beta"}, &theme.Manifest{Name: "alpha"})
	if diff := cmp.Diff([]string{"alpha", "beta"}, themes.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	selection, err := themes.Select("", "")
	if err != nil || selection.Theme != "alpha" {
		t.Fatalf("expected alpha default, got %+v %v", selection, err)
	}
	if _, err := themes.Select("gamma", ""); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("expected ErrThemeNotFound, got %v", err)
	}
	if _, err := themes.Select("beta", "dark"); !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
}

func TestJSONPresetTransformer(t *testing.T) {
	preset, err := NewJSONPresetTransformer([]byte(`{
		"elements": {
			"orderId": {"label": "Reference", "help": "Assigned by the shop"},
			"tags[0]": {"hide": true}
		},
		"fields": {
			"org.acme.sales@1.0.0.Order.rush": {"toggle": true, "readOnly": true}
		}
	}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}

	orch := New(WithModels(testsupport.LoadModelManager(t)), WithTransformers(preset))
	form, err := orch.Build(context.Background(), Request{Type: orderType, Document: testsupport.LoadDocument(t, "order.json")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	orderID := ui.Find(form.Root, "orderId")
	if orderID.Props.Label != "Reference" || orderID.Props.Help != "Assigned by the shop" {
		t.Fatalf("element patch not applied: %+v", orderID.Props)
	}
	if got := len(ui.Find(form.Root, "tags").Children); got != 2 {
		t.Fatalf("expected hidden tag element removed, got %d children", got)
	}
	rush := ui.Find(form.Root, "rush")
	if !rush.Props.Toggle || !rush.Props.ReadOnly || rush.Props.OnChange != nil {
		t.Fatalf("field patch not applied: %+v", rush.Props)
	}

	stale, _ := NewJSONPresetTransformer([]byte(`{"elements": {"missing": {"label": "x"}}}`))
	orch = New(WithModels(testsupport.LoadModelManager(t)), WithTransformers(stale))
	if _, err := orch.Build(context.Background(), Request{Type: orderType}); err == nil {
		t.Fatalf("expected error for stale preset key")
	}
	if _, err := NewJSONPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty preset")
	}
}

func TestJSONPresetTransformer_VisibleIf(t *testing.T) {
	preset, err := NewJSONPresetTransformer([]byte(`{
		"elements": {
			"paymentTerms": {"visibleIf": "status == \"DRAFT\""},
			"shippingAddress": {"visibleIf": "rush && items[0].quantity != 0"}
		}
	}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}

	orch := New(WithModels(testsupport.LoadModelManager(t)), WithTransformers(preset))
	form, err := orch.Build(context.Background(), Request{Type: orderType, Document: testsupport.LoadDocument(t, "order.json")})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ui.Find(form.Root, "paymentTerms") != nil {
		t.Fatalf("expected paymentTerms hidden for a signed order")
	}
	if ui.Find(form.Root, "shippingAddress") == nil {
		t.Fatalf("expected shippingAddress visible for a rush order")
	}

	if err := form.Document.Set("rush", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := form.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if ui.Find(form.Root, "shippingAddress") != nil {
		t.Fatalf("expected shippingAddress hidden once rush is cleared")
	}

	if _, err := NewJSONPresetTransformer([]byte(`{"elements": {"rush": {"visibleIf": "status =="}}}`)); !errors.Is(err, visibility.ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", err)
	}
}

type captureRenderer struct {
	root    *ui.Element
	options render.RenderOptions
}

func (r *captureRenderer) Name() string {
	return "capture"
}

func (r *captureRenderer) ContentType() string {
	return "text/plain"
}

func (r *captureRenderer) Render(_ context.Context, root *ui.Element, opts render.RenderOptions) ([]byte, error) {
	r.root = root
	r.options = opts
	return []byte("ok"), nil
}

type selectorCall struct {
	name    string
	variant string
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []selectorCall
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, selectorCall{name: name, variant: variant})
	return s.selection, s.err
}
