// Package config loads the YAML (or JSON) file read by the modelform command
// and preview server.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

// DefaultAddr is the preview server address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// DefaultRenderer is the renderer used when none is configured.
const DefaultRenderer = "vanilla"

// Config is the decoded configuration file. Zero values mean "not set" so
// command line flags can be layered on top with Merge.
type Config struct {
	Models    []string `yaml:"models"`
	OpenAPI   string   `yaml:"openapi"`
	Namespace string   `yaml:"namespace"`
	Type      string   `yaml:"type"`
	Data      string   `yaml:"data"`
	Renderer  string   `yaml:"renderer"`
	Output    string   `yaml:"output"`
	Presets   string   `yaml:"presets"`

	Visitor       VisitorConfig          `yaml:"visitor"`
	Selectors     map[string][]ui.Option `yaml:"selectors"`
	Relationships map[string][]ui.Option `yaml:"relationships"`
	Themes        []ThemeConfig          `yaml:"themes"`
	Theme         ThemeSelection         `yaml:"theme"`
	Server        ServerConfig           `yaml:"server"`
}

// VisitorConfig mirrors the traversal flags of visitor.Params.
type VisitorConfig struct {
	Disabled              bool   `yaml:"disabled"`
	TextOnly              bool   `yaml:"textOnly"`
	HideIdentifiers       bool   `yaml:"hideIdentifiers"`
	CheckboxStyle         string `yaml:"checkboxStyle"`
	IncludeOptionalFields bool   `yaml:"includeOptionalFields"`
	IncludeSampleData     bool   `yaml:"includeSampleData"`
}

// ThemeConfig declares a theme manifest inline.
type ThemeConfig struct {
	Name      string                   `yaml:"name"`
	Version   string                   `yaml:"version"`
	Tokens    map[string]string        `yaml:"tokens"`
	Templates map[string]string        `yaml:"templates"`
	Assets    AssetsConfig             `yaml:"assets"`
	Variants  map[string]VariantConfig `yaml:"variants"`
}

// VariantConfig overrides parts of a theme.
type VariantConfig struct {
	Tokens    map[string]string `yaml:"tokens"`
	Templates map[string]string `yaml:"templates"`
	Assets    AssetsConfig      `yaml:"assets"`
}

// AssetsConfig lists asset files resolved against Prefix.
type AssetsConfig struct {
	Prefix string            `yaml:"prefix"`
	Files  map[string]string `yaml:"files"`
}

// ThemeSelection names the theme and variant used by default.
type ThemeSelection struct {
	Name    string `yaml:"name"`
	Variant string `yaml:"variant"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes data and validates the result. source names the input in
// error messages.
func Parse(data []byte, source string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(string(data)) == "" {
		return Config{}, fmt.Errorf("config: file %s is empty", source)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", source, err)
	}
	return cfg, nil
}

// Validate reports structural problems that would only surface later as
// confusing render errors.
func (c Config) Validate() error {
	var errs []error
	if c.OpenAPI != "" && strings.TrimSpace(c.Namespace) == "" {
		errs = append(errs, errors.New("namespace is required with openapi"))
	}
	switch c.Visitor.CheckboxStyle {
	case "", "checkbox", visitor.CheckboxToggle:
	default:
		errs = append(errs, fmt.Errorf("unknown checkbox style %q", c.Visitor.CheckboxStyle))
	}
	for key, options := range c.Selectors {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, errors.New("selector with empty key"))
		}
		for i, option := range options {
			if option.Value == "" {
				errs = append(errs, fmt.Errorf("selector %q option %d has no value", key, i))
			}
		}
	}
	seen := map[string]bool{}
	for i, t := range c.Themes {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Errorf("theme %d has no name", i))
			continue
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("duplicate theme %q", t.Name))
		}
		seen[t.Name] = true
	}
	if c.Theme.Name != "" && !seen[c.Theme.Name] {
		errs = append(errs, fmt.Errorf("selected theme %q is not declared", c.Theme.Name))
	}
	return errors.Join(errs...)
}

// Merge returns c with every non-zero field of override applied on top.
// Boolean visitor flags are ORed.
func (c Config) Merge(override Config) Config {
	out := c
	if len(override.Models) > 0 {
		out.Models = append([]string(nil), override.Models...)
	}
	setString(&out.OpenAPI, override.OpenAPI)
	setString(&out.Namespace, override.Namespace)
	setString(&out.Type, override.Type)
	setString(&out.Data, override.Data)
	setString(&out.Renderer, override.Renderer)
	setString(&out.Output, override.Output)
	setString(&out.Presets, override.Presets)
	setString(&out.Theme.Name, override.Theme.Name)
	setString(&out.Theme.Variant, override.Theme.Variant)
	setString(&out.Server.Addr, override.Server.Addr)
	setString(&out.Visitor.CheckboxStyle, override.Visitor.CheckboxStyle)

	out.Visitor.Disabled = out.Visitor.Disabled || override.Visitor.Disabled
	out.Visitor.TextOnly = out.Visitor.TextOnly || override.Visitor.TextOnly
	out.Visitor.HideIdentifiers = out.Visitor.HideIdentifiers || override.Visitor.HideIdentifiers
	out.Visitor.IncludeOptionalFields = out.Visitor.IncludeOptionalFields || override.Visitor.IncludeOptionalFields
	out.Visitor.IncludeSampleData = out.Visitor.IncludeSampleData || override.Visitor.IncludeSampleData
	return out
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// RendererName returns the configured renderer or DefaultRenderer.
func (c Config) RendererName() string {
	if c.Renderer == "" {
		return DefaultRenderer
	}
	return c.Renderer
}

// Addr returns the configured server address or DefaultAddr.
func (c Config) Addr() string {
	if c.Server.Addr == "" {
		return DefaultAddr
	}
	return c.Server.Addr
}

// Params builds the traversal flags. Models, Document and callbacks are left
// to the orchestrator.
func (c Config) Params() visitor.Params {
	return visitor.Params{
		Disabled:              c.Visitor.Disabled,
		TextOnly:              c.Visitor.TextOnly,
		HideIdentifiers:       c.Visitor.HideIdentifiers,
		CheckboxStyle:         c.Visitor.CheckboxStyle,
		IncludeOptionalFields: c.Visitor.IncludeOptionalFields,
		IncludeSampleData:     c.Visitor.IncludeSampleData,
	}
}

// RelationshipProvider returns the static relationship options, or nil when
// none are configured.
func (c Config) RelationshipProvider() ui.RelationshipProvider {
	if len(c.Relationships) == 0 {
		return nil
	}
	return ui.StaticRelationships(c.Relationships)
}

// Manifests converts the declared themes, sorted by name.
func (c Config) Manifests() []*theme.Manifest {
	out := make([]*theme.Manifest, 0, len(c.Themes))
	for _, t := range c.Themes {
		manifest := &theme.Manifest{
			Name:      t.Name,
			Version:   t.Version,
			Tokens:    t.Tokens,
			Templates: t.Templates,
			Assets:    theme.Assets{Prefix: t.Assets.Prefix, Files: t.Assets.Files},
		}
		if len(t.Variants) > 0 {
			manifest.Variants = make(map[string]theme.Variant, len(t.Variants))
			for name, v := range t.Variants {
				manifest.Variants[name] = theme.Variant{
					Tokens:    v.Tokens,
					Templates: v.Templates,
					Assets:    theme.Assets{Prefix: v.Assets.Prefix, Files: v.Assets.Files},
				}
			}
		}
		out = append(out, manifest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
