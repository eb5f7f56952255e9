// Package visibility evaluates the small rule language used to show or hide
// form elements depending on the document under edit.
//
// Rules reference document keys in the same syntax the element tree uses:
//
//	rush
//	status == "SIGNED"
//	items[0].quantity != 0 && !(shippingAddress.city == null)
//
// A bare key is true when the value is present and truthy. Comparisons
// support == and != between keys and string, number, boolean or null
// literals. Keys prefixed with "extras." are read from Context.Extras.
package visibility

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSyntax is wrapped by every rule parse failure.
var ErrSyntax = errors.New("visibility: invalid rule")

// Lookup resolves a document key to its decoded value.
type Lookup func(key string) (any, bool)

// Context carries the values a rule is evaluated against.
type Context struct {
	Values Lookup
	Extras map[string]any
}

// Evaluator decides whether the element bound to key is visible.
type Evaluator interface {
	Eval(key, rule string, ctx Context) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(key, rule string, ctx Context) (bool, error)

// Eval delegates to the wrapped function.
func (fn EvaluatorFunc) Eval(key, rule string, ctx Context) (bool, error) {
	return fn(key, rule, ctx)
}

// Rule is a compiled visibility rule. The zero value is always visible.
type Rule struct {
	source string
	root   node
}

// Compile parses rule. An empty rule compiles to an always-visible Rule.
func Compile(rule string) (*Rule, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return &Rule{}, nil
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.peek().text, trimmed)
	}
	return &Rule{source: trimmed, root: root}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(rule string) *Rule {
	r, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the rule source.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Eval evaluates the rule against ctx.
func (r *Rule) Eval(ctx Context) (bool, error) {
	if r == nil || r.root == nil {
		return true, nil
	}
	return r.root.eval(ctx)
}

// New returns an Evaluator that compiles each distinct rule once.
func New() Evaluator {
	return &cachingEvaluator{}
}

type cachingEvaluator struct {
	rules sync.Map
}

func (e *cachingEvaluator) Eval(key, rule string, ctx Context) (bool, error) {
	if cached, ok := e.rules.Load(rule); ok {
		return cached.(*Rule).Eval(ctx)
	}
	compiled, err := Compile(rule)
	if err != nil {
		return false, fmt.Errorf("visibility: %s: %w", key, err)
	}
	e.rules.Store(rule, compiled)
	return compiled.Eval(ctx)
}

// MapLookup adapts a flat map into a Lookup.
func MapLookup(values map[string]any) Lookup {
	return func(key string) (any, bool) {
		value, ok := values[key]
		return value, ok
	}
}
