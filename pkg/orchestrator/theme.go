package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/renderers/vanilla"
)

// StaticThemes is a theme.ThemeSelector over a fixed set of manifests.
type StaticThemes struct {
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

// NewStaticThemes indexes manifests by name. Empty selections resolve to
// defaultTheme and defaultVariant; when defaultTheme is empty the first
// manifest name in sorted order is used.
func NewStaticThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) *StaticThemes {
	s := &StaticThemes{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   defaultTheme,
		defaultVariant: defaultVariant,
	}
	for _, manifest := range manifests {
		if manifest == nil || manifest.Name == "" {
			continue
		}
		s.manifests[manifest.Name] = manifest
	}
	if s.defaultTheme == "" {
		if names := s.Names(); len(names) > 0 {
			s.defaultTheme = names[0]
		}
	}
	return s
}

// Names lists the registered theme names in sorted order.
func (s *StaticThemes) Names() []string {
	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select implements theme.ThemeSelector.
func (s *StaticThemes) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = s.defaultTheme
		if variant == "" {
			variant = s.defaultVariant
		}
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("%w: %q in theme %q", ErrVariantNotFound, variant, name)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// defaultThemeFallbacks maps partial keys to the built-in element templates
// so a theme only overrides the widgets it cares about.
func defaultThemeFallbacks() map[string]string {
	return vanilla.DefaultPartials()
}

// rendererConfig flattens a selection into the configuration renderers read:
// variant tokens, templates and asset files override the manifest ones, and
// fallbacks fill partials neither defines.
func rendererConfig(selection *theme.Selection, fallbacks map[string]string) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}
	for key, value := range fallbacks {
		cfg.Partials[key] = value
	}

	manifest := selection.Manifest
	if manifest == nil {
		cfg.AssetURL = func(string) string { return "" }
		return cfg
	}

	var variant theme.Variant
	if selection.Variant != "" {
		variant = manifest.Variants[selection.Variant]
	}
	for _, tokens := range []map[string]string{manifest.Tokens, variant.Tokens} {
		for key, value := range tokens {
			cfg.Tokens[key] = value
		}
	}
	for _, templates := range []map[string]string{manifest.Templates, variant.Templates} {
		for key, value := range templates {
			cfg.Partials[key] = value
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}

	prefix := manifest.Assets.Prefix
	if variant.Assets.Prefix != "" {
		prefix = variant.Assets.Prefix
	}
	files := map[string]string{}
	for _, set := range []map[string]string{manifest.Assets.Files, variant.Assets.Files} {
		for key, value := range set {
			files[key] = value
		}
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") || prefix == "" {
			return file
		}
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
	}
	return cfg
}
