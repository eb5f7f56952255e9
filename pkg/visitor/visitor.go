package visitor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/ui"
)

const defaultMaxDepth = 64

// Option configures a Visitor.
type Option func(*Visitor)

// WithComposite registers an additional composite widget. Composites are
// matched in registration order after the defaults.
func WithComposite(composite Composite) Option {
	return func(v *Visitor) {
		if composite.Pattern != nil {
			v.composites = append(v.composites, composite)
		}
	}
}

// WithoutDefaultComposites renders money, time and party types as plain
// classes.
func WithoutDefaultComposites() Option {
	return func(v *Visitor) {
		v.composites = nil
	}
}

// WithClock overrides the time source used for DateTime defaults.
func WithClock(now func() time.Time) Option {
	return func(v *Visitor) {
		if now != nil {
			v.now = now
		}
	}
}

// WithIDGenerator overrides the identifier source used for sample resources.
func WithIDGenerator(fn func() string) Option {
	return func(v *Visitor) {
		if fn != nil {
			v.newID = fn
		}
	}
}

// WithMaxDepth bounds class nesting.
func WithMaxDepth(depth int) Option {
	return func(v *Visitor) {
		if depth > 0 {
			v.maxDepth = depth
		}
	}
}

// Visitor turns model nodes into ui.Element trees bound to a document. A
// Visitor is stateless between calls and may be shared by concurrent
// traversals as long as each uses its own Context.
type Visitor struct {
	composites []Composite
	now        func() time.Time
	newID      func() string
	maxDepth   int
}

// New constructs a Visitor.
func New(options ...Option) *Visitor {
	v := &Visitor{
		composites: DefaultComposites(),
		now:        time.Now,
		newID:      uuid.NewString,
		maxDepth:   defaultMaxDepth,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	return v
}

// Visit renders node at the position described by ctx. It returns nil for
// nodes that produce no widget (abstract classes, hidden properties).
func (v *Visitor) Visit(node concerto.Node, ctx Context) (*ui.Element, error) {
	if ctx.t == nil {
		ctx = NewContext(Params{})
	}
	switch typed := node.(type) {
	case *concerto.ClassDeclaration:
		if typed != nil {
			return v.visitClass(typed, ctx)
		}
	case *concerto.EnumDeclaration:
		if typed != nil {
			return v.visitEnum(typed, ctx), nil
		}
	case *concerto.Field:
		if typed != nil {
			return v.visitField(typed, ctx, true)
		}
	case *concerto.Relationship:
		if typed != nil {
			return v.visitRelationship(typed, ctx, true)
		}
	default:
		if node != nil {
			return nil, &NodeError{Name: node.FullyQualifiedName(), Type: fmt.Sprintf("%T", node)}
		}
	}
	return nil, &NodeError{Type: fmt.Sprintf("%T", node)}
}

func (v *Visitor) visitClass(class *concerto.ClassDeclaration, ctx Context) (*ui.Element, error) {
	params := ctx.params()
	if params.HideIdentifiers {
		if idField := class.IdentifierFieldName(); idField != "" {
			if prop, ok := class.Property(idField); ok {
				ctx.hide(prop.FullyQualifiedName())
			} else {
				ctx.hide(class.FullyQualifiedName() + "." + idField)
			}
		}
	}
	if class.IsAbstract() {
		return nil, nil
	}
	if len(ctx.ancestry) >= v.maxDepth {
		return nil, fmt.Errorf("%w: %s at %q", ErrMaxDepth, class.FullyQualifiedName(), ctx.Key())
	}
	ctx = ctx.withAncestor(class.FullyQualifiedName())

	if composite, ok := v.composite(class.FullyQualifiedName()); ok {
		return v.visitComposite(class, composite, ctx)
	}

	group := &ui.Element{
		Kind:  ui.KindGroup,
		Key:   ctx.Key(),
		Props: ui.Props{Label: concerto.Label(class.Name()), SkipLabel: ctx.skipLabel, Type: class.FullyQualifiedName()},
	}
	for _, prop := range class.Properties() {
		child, err := v.visitProperty(prop, ctx, true)
		if err != nil {
			return nil, err
		}
		if child != nil {
			group.Children = append(group.Children, child)
		}
	}
	return group, nil
}

func (v *Visitor) composite(fqn string) (Composite, bool) {
	for _, composite := range v.composites {
		if composite.matches(fqn) {
			return composite, true
		}
	}
	return Composite{}, false
}

// visitComposite renders the fixed field list of a composite with labels
// suppressed. Hidden fields are dropped like anywhere else, so the wrapper
// can hold fewer widgets than the composite lists.
func (v *Visitor) visitComposite(class *concerto.ClassDeclaration, composite Composite, ctx Context) (*ui.Element, error) {
	wrapper := &ui.Element{
		Kind: composite.Kind,
		Key:  ctx.Key(),
		Props: ui.Props{
			Label:     concerto.Label(class.Name()),
			SkipLabel: ctx.skipLabel,
			Type:      class.FullyQualifiedName(),
		},
	}
	inner := ctx.WithSkipLabel(true)
	for _, name := range composite.Fields {
		prop, ok := class.Property(name)
		if !ok {
			continue
		}
		child, err := v.visitProperty(prop, inner, true)
		if err != nil {
			return nil, err
		}
		if child != nil {
			wrapper.Children = append(wrapper.Children, child)
		}
	}
	return wrapper, nil
}

func (v *Visitor) visitProperty(prop concerto.Property, ctx Context, checkHidden bool) (*ui.Element, error) {
	switch typed := prop.(type) {
	case *concerto.Field:
		return v.visitField(typed, ctx, checkHidden)
	case *concerto.Relationship:
		return v.visitRelationship(typed, ctx, checkHidden)
	default:
		return nil, &NodeError{Name: prop.FullyQualifiedName(), Type: fmt.Sprintf("%T", prop)}
	}
}

func (v *Visitor) visitEnum(enum *concerto.EnumDeclaration, ctx Context) *ui.Element {
	value, _ := ctx.lookup(ctx.Key())
	literals := enum.Literals()
	options := make([]ui.Option, 0, len(literals))
	for _, literal := range literals {
		options = append(options, ui.LiteralOption(literal))
	}
	return &ui.Element{
		Kind: ui.KindSelect,
		Key:  ctx.Key(),
		Props: ui.Props{
			Label:     concerto.Label(enum.Name()),
			SkipLabel: ctx.skipLabel,
			Value:     value,
			Type:      enum.FullyQualifiedName(),
			Options:   options,
		},
	}
}

// factory returns the traversal's instance factory, built on first use so
// the visitor clock and ID source apply to every default it computes.
func (v *Visitor) factory(ctx Context) *concerto.Factory {
	if ctx.t.factory == nil {
		ctx.t.factory = concerto.NewFactory(ctx.params().Models,
			concerto.WithClock(v.now),
			concerto.WithIDGenerator(v.newID),
		)
	}
	return ctx.t.factory
}
