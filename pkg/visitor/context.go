package visitor

import (
	"sort"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/document"
)

// traversal holds the state shared by every Context derived from the same
// NewContext call.
type traversal struct {
	params  Params
	hidden  map[string]struct{}
	factory *concerto.Factory
}

// Context is the value threaded through a traversal. It is immutable: the
// with* helpers return derived copies, so a child visit can never change the
// path, label or ancestry its caller sees. The set of hidden identifier
// fields is the only state shared across the traversal.
type Context struct {
	t         *traversal
	path      document.Path
	skipLabel bool
	ancestry  []string
}

// NewContext starts a traversal rooted at the document root.
func NewContext(params Params) Context {
	return Context{
		t: &traversal{
			params: params,
			hidden: make(map[string]struct{}),
		},
	}
}

// Path returns the current document location.
func (c Context) Path() document.Path { return c.path }

// Key renders Path as a lookup key.
func (c Context) Key() string { return c.path.String() }

// SkipLabel reports whether widgets rendered here omit their label.
func (c Context) SkipLabel() bool { return c.skipLabel }

// Params returns a copy of the traversal parameters.
func (c Context) Params() Params {
	if c.t == nil {
		return Params{}
	}
	return c.t.params
}

// Hidden reports whether the property with the qualified name fqn has been
// recorded as a hidden identifier during this traversal.
func (c Context) Hidden(fqn string) bool {
	if c.t == nil {
		return false
	}
	_, ok := c.t.hidden[fqn]
	return ok
}

// HiddenFields lists the recorded hidden identifiers in sorted order.
func (c Context) HiddenFields() []string {
	if c.t == nil {
		return nil
	}
	out := make([]string, 0, len(c.t.hidden))
	for fqn := range c.t.hidden {
		out = append(out, fqn)
	}
	sort.Strings(out)
	return out
}

// WithPath returns a context positioned at p.
func (c Context) WithPath(p document.Path) Context {
	c.path = p
	return c
}

// WithSkipLabel returns a context with the label flag set to skip.
func (c Context) WithSkipLabel(skip bool) Context {
	c.skipLabel = skip
	return c
}

func (c Context) withField(name string) Context {
	c.path = c.path.Field(name)
	return c
}

func (c Context) withIndex(i int) Context {
	c.path = c.path.Index(i)
	return c
}

func (c Context) withAncestor(fqn string) Context {
	next := make([]string, len(c.ancestry), len(c.ancestry)+1)
	copy(next, c.ancestry)
	c.ancestry = append(next, fqn)
	return c
}

func (c Context) expanding(fqn string) bool {
	for _, ancestor := range c.ancestry {
		if ancestor == fqn {
			return true
		}
	}
	return false
}

func (c Context) hide(fqn string) {
	if c.t != nil && fqn != "" {
		c.t.hidden[fqn] = struct{}{}
	}
}

func (c Context) params() *Params { return &c.t.params }

func (c Context) lookup(key string) (any, bool) {
	if c.t == nil || c.t.params.Document == nil {
		return nil, false
	}
	value, ok := c.t.params.Document.Get(key)
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func (c Context) length(key string) int {
	if c.t == nil || c.t.params.Document == nil {
		return 0
	}
	return c.t.params.Document.Len(key)
}

func (c Context) documentClass(key string) string {
	if c.t == nil || c.t.params.Document == nil {
		return ""
	}
	class, _ := c.t.params.Document.Class(key)
	return class
}
