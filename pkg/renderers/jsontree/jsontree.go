// Package jsontree serialises element trees for clients that render forms
// themselves. The payload carries the tree, the bound document and the
// validation state so a client can rebuild the form without a second request.
package jsontree

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/ui"
)

// Node is the serialised form of a ui.Element. Callbacks are reduced to the
// affordances they enable.
type Node struct {
	Kind      ui.Kind  `json:"kind"`
	Key       string   `json:"key,omitempty"`
	Props     ui.Props `json:"props"`
	CanAdd    bool     `json:"canAdd,omitempty"`
	CanRemove bool     `json:"canRemove,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Children  []Node   `json:"children,omitempty"`
}

// Theme is the subset of the go-theme renderer configuration clients need.
type Theme struct {
	Name    string            `json:"name,omitempty"`
	Variant string            `json:"variant,omitempty"`
	Tokens  map[string]string `json:"tokens,omitempty"`
	CSSVars map[string]string `json:"cssVars,omitempty"`
}

// Payload is the top level JSON document.
type Payload struct {
	Title        string               `json:"title,omitempty"`
	Action       string               `json:"action,omitempty"`
	Method       string               `json:"method,omitempty"`
	Locale       string               `json:"locale,omitempty"`
	Tree         *Node                `json:"tree"`
	Document     json.RawMessage      `json:"document"`
	FormErrors   []string             `json:"formErrors,omitempty"`
	HiddenFields []render.HiddenField `json:"hiddenFields,omitempty"`
	Theme        *Theme               `json:"theme,omitempty"`
}

// Renderer implements render.Renderer with a JSON payload.
type Renderer struct {
	indent bool
}

// Option configures the renderer.
type Option func(*Renderer)

// WithIndent pretty prints the payload.
func WithIndent() Option {
	return func(r *Renderer) { r.indent = true }
}

// New constructs a JSON tree renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string        { return "json" }
func (r *Renderer) ContentType() string { return "application/json" }

func (r *Renderer) Render(ctx context.Context, root *ui.Element, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload := BuildPayload(root, opts)
	var (
		out []byte
		err error
	)
	if r.indent {
		out, err = json.MarshalIndent(payload, "", "  ")
	} else {
		out, err = json.Marshal(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("jsontree: marshal payload: %w", err)
	}
	return out, nil
}

// BuildPayload localises root, maps opts.Errors onto it and assembles the
// payload.
func BuildPayload(root *ui.Element, opts render.RenderOptions) Payload {
	render.LocalizeTree(root, opts)
	mapped := render.MapErrorPayload(root, opts.Errors)

	payload := Payload{
		Title:        opts.Title,
		Action:       opts.Action,
		Method:       opts.Method,
		Locale:       opts.Locale,
		Tree:         encode(root, mapped.Fields),
		Document:     json.RawMessage("null"),
		FormErrors:   mapped.Form,
		HiddenFields: render.SortedHiddenFields(opts.HiddenFields),
	}
	if opts.Document != nil {
		payload.Document = json.RawMessage(opts.Document.Bytes())
	}
	if cfg := opts.Theme; cfg != nil {
		payload.Theme = &Theme{
			Name:    cfg.Theme,
			Variant: cfg.Variant,
			Tokens:  copyStringMap(cfg.Tokens),
			CSSVars: copyStringMap(cfg.CSSVars),
		}
	}
	return payload
}

func encode(el *ui.Element, errors map[string][]string) *Node {
	if el == nil {
		return nil
	}
	node := &Node{
		Kind:      el.Kind,
		Key:       el.Key,
		Props:     el.Props,
		CanAdd:    el.Props.Add != nil,
		CanRemove: el.Props.Remove != nil,
		Errors:    errors[el.Key],
	}
	for _, child := range el.Children {
		if encoded := encode(child, errors); encoded != nil {
			node.Children = append(node.Children, *encoded)
		}
	}
	return node
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
