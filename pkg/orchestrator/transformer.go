package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visibility"
)

type documentKey struct{}

// WithDocument attaches the document under edit to ctx. Build does this
// before running transformers.
func WithDocument(ctx context.Context, doc *document.Document) context.Context {
	return context.WithValue(ctx, documentKey{}, doc)
}

// DocumentFromContext returns the document attached by WithDocument.
func DocumentFromContext(ctx context.Context) (*document.Document, bool) {
	doc, ok := ctx.Value(documentKey{}).(*document.Document)
	return doc, ok && doc != nil
}

// Transformer mutates the element tree after the visit and before rendering.
// Implementations can relabel elements, attach help or drop subtrees.
type Transformer interface {
	Transform(ctx context.Context, root *ui.Element) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, root *ui.Element) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, root *ui.Element) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, root)
}

// JSONPresetTransformer applies declarative patches loaded from JSON. Patches
// are keyed by element key; "*" entries under "fields" match every element
// bound to a fully qualified property name:
//
//	{
//	  "elements": {
//	    "orderId": {"label": "Reference", "help": "Assigned by the shop"},
//	    "items[0]": {"hide": true},
//	    "paymentTerms": {"visibleIf": "status == \"SIGNED\""}
//	  },
//	  "fields": {
//	    "org.acme.sales@1.0.0.Order.rush": {"toggle": true}
//	  }
//	}
//
// visibleIf rules use the syntax of package visibility and are evaluated
// against the document attached to the transform context.
type JSONPresetTransformer struct {
	document presetDocument
	rules    map[string]*visibility.Rule
}

type presetDocument struct {
	Elements map[string]elementPatch `json:"elements"`
	Fields   map[string]elementPatch `json:"fields"`
}

type elementPatch struct {
	Label    string `json:"label"`
	Help     string `json:"help"`
	Hide     bool   `json:"hide"`
	ReadOnly *bool  `json:"readOnly"`
	Toggle   *bool  `json:"toggle"`

	// VisibleIf hides the element when the rule evaluates to false.
	VisibleIf string `json:"visibleIf"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document presetDocument
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	rules := make(map[string]*visibility.Rule)
	for _, patches := range []map[string]elementPatch{document.Elements, document.Fields} {
		for key, patch := range patches {
			if patch.VisibleIf == "" {
				continue
			}
			rule, err := visibility.Compile(patch.VisibleIf)
			if err != nil {
				return nil, fmt.Errorf("json preset transformer: %s: %w", key, err)
			}
			rules[patch.VisibleIf] = rule
		}
	}
	return &JSONPresetTransformer{document: document, rules: rules}, nil
}

// NewJSONPresetTransformerFromFS loads a preset document from fsys.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the patches onto root. Element keys that match nothing
// are reported so stale presets surface early.
func (t *JSONPresetTransformer) Transform(ctx context.Context, root *ui.Element) error {
	if root == nil {
		return errors.New("json preset transformer: element tree is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for key := range t.document.Elements {
		if ui.Find(root, key) == nil {
			return fmt.Errorf("json preset transformer: element %q not found", key)
		}
	}

	var values visibility.Context
	if doc, ok := DocumentFromContext(ctx); ok {
		values.Values = doc.Get
	}
	return t.apply(root, values)
}

func (t *JSONPresetTransformer) apply(el *ui.Element, values visibility.Context) error {
	kept := el.Children[:0]
	for _, child := range el.Children {
		hidden, err := t.hidden(child, values)
		if err != nil {
			return err
		}
		if !hidden {
			kept = append(kept, child)
		}
	}
	el.Children = kept

	if patch, ok := t.document.Fields[el.Props.Field]; ok && el.Kind != ui.KindArrayElement {
		applyPatch(el, patch)
	}
	if patch, ok := t.document.Elements[el.Key]; ok {
		applyPatch(el, patch)
	}
	for _, child := range el.Children {
		if err := t.apply(child, values); err != nil {
			return err
		}
	}
	return nil
}

func (t *JSONPresetTransformer) hidden(el *ui.Element, values visibility.Context) (bool, error) {
	patches := make([]elementPatch, 0, 2)
	if patch, ok := t.document.Elements[el.Key]; ok {
		patches = append(patches, patch)
	}
	if patch, ok := t.document.Fields[el.Props.Field]; ok && el.Kind != ui.KindArrayElement {
		patches = append(patches, patch)
	}
	for _, patch := range patches {
		if patch.Hide {
			return true, nil
		}
		if patch.VisibleIf == "" {
			continue
		}
		visible, err := t.rules[patch.VisibleIf].Eval(values)
		if err != nil {
			return false, fmt.Errorf("json preset transformer: %s: %w", el.Key, err)
		}
		if !visible {
			return true, nil
		}
	}
	return false, nil
}

func applyPatch(el *ui.Element, patch elementPatch) {
	if patch.Label != "" {
		el.Props.Label = patch.Label
	}
	if patch.Help != "" {
		el.Props.Help = patch.Help
	}
	if patch.ReadOnly != nil {
		el.Props.ReadOnly = *patch.ReadOnly
		if *patch.ReadOnly {
			el.Props.OnChange = nil
			el.Props.Add = nil
			el.Props.Remove = nil
		}
	}
	if patch.Toggle != nil && el.Kind == ui.KindCheckbox {
		el.Props.Toggle = *patch.Toggle
	}
}
