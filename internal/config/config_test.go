package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

const sample = `
models:
  - models/sales.yaml
type: org.acme.sales@1.0.0.Order
renderer: preact
visitor:
  hideIdentifiers: true
  checkboxStyle: toggle
selectors:
  priorities:
    - {key: low, value: LOW, text: Low}
    - {key: high, value: HIGH, text: High}
relationships:
  org.acme.sales@1.0.0.Customer:
    - {key: c1, value: "resource:org.acme.sales@1.0.0.Customer#c1", text: Ada}
themes:
  - name: acme
    tokens:
      primary: "#0055ff"
    assets:
      prefix: /static
      files:
        logo: logo.svg
    variants:
      dark:
        tokens:
          primary: "#111111"
theme:
  name: acme
  variant: dark
server:
  addr: ":9000"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelform.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"models/sales.yaml"}, cfg.Models)
	assert.Equal(t, "preact", cfg.RendererName())
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Len(t, cfg.Selectors["priorities"], 2)

	params := cfg.Params()
	assert.True(t, params.HideIdentifiers)
	assert.Equal(t, visitor.CheckboxToggle, params.CheckboxStyle)

	provider := cfg.RelationshipProvider()
	require.NotNil(t, provider)
	options, err := provider.Options("org.acme.sales@1.0.0.Customer")
	require.NoError(t, err)
	assert.Equal(t, []ui.Option{{Key: "c1", Value: "resource:org.acme.sales@1.0.0.Customer#c1", Text: "Ada"}}, options)

	manifests := cfg.Manifests()
	require.Len(t, manifests, 1)
	assert.Equal(t, "acme", manifests[0].Name)
	assert.Equal(t, "/static", manifests[0].Assets.Prefix)
	assert.Equal(t, "#111111", manifests[0].Variants["dark"].Tokens["primary"])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("type: Order\n"), "inline")
	require.NoError(t, err)

	assert.Equal(t, DefaultRenderer, cfg.RendererName())
	assert.Equal(t, DefaultAddr, cfg.Addr())
	assert.Nil(t, cfg.RelationshipProvider())
	assert.Empty(t, cfg.Manifests())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "  \n",
		"syntax":         "models: [unterminated",
		"namespace":      "openapi: api.yaml\n",
		"checkbox style": "visitor:\n  checkboxStyle: radio\n",
		"option value":   "selectors:\n  k:\n    - {text: Missing}\n",
		"theme name":     "themes:\n  - tokens: {a: b}\n",
		"duplicate":      "themes:\n  - name: a\n  - name: a\n",
		"unknown theme":  "theme:\n  name: missing\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input), "inline")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestMerge(t *testing.T) {
	base := Config{
		Models:   []string{"a.yaml"},
		Renderer: "vanilla",
		Visitor:  VisitorConfig{TextOnly: true},
		Server:   ServerConfig{Addr: ":8000"},
	}
	merged := base.Merge(Config{
		Models:  []string{"b.yaml", "c.yaml"},
		Type:    "Order",
		Visitor: VisitorConfig{Disabled: true},
	})

	assert.Equal(t, []string{"b.yaml", "c.yaml"}, merged.Models)
	assert.Equal(t, "Order", merged.Type)
	assert.Equal(t, "vanilla", merged.Renderer)
	assert.Equal(t, ":8000", merged.Addr())
	assert.True(t, merged.Visitor.TextOnly)
	assert.True(t, merged.Visitor.Disabled)
	assert.Equal(t, []string{"a.yaml"}, base.Models)
}
