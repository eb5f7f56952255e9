package visitor

import (
	"fmt"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/ui"
)

func (v *Visitor) visitField(f *concerto.Field, ctx Context, checkHidden bool) (*ui.Element, error) {
	if checkHidden && ctx.isHidden(f) {
		return nil, nil
	}
	fctx := ctx.withField(f.Name())
	if !f.IsArray() {
		return v.singleton(f, fctx)
	}
	def := func() (any, error) { return v.defaultValue(f, fctx) }
	return v.array(f, fctx, def, func(ectx Context) (*ui.Element, error) {
		return v.singleton(f, ectx)
	})
}

func (v *Visitor) visitRelationship(r *concerto.Relationship, ctx Context, checkHidden bool) (*ui.Element, error) {
	if checkHidden && ctx.isHidden(r) {
		return nil, nil
	}
	rctx := ctx.withField(r.Name())
	if !r.IsArray() {
		return v.relationshipPicker(r, rctx)
	}
	sample, err := v.sampleReference(r, rctx)
	if err != nil {
		return nil, err
	}
	def := func() (any, error) { return sample, nil }
	return v.array(r, rctx, def, func(ectx Context) (*ui.Element, error) {
		return v.relationshipPicker(r, ectx)
	})
}

// props builds the bundle shared by every widget bound to prop at ctx.
func (v *Visitor) props(prop concerto.Property, ctx Context, value any) ui.Props {
	params := ctx.params()
	props := ui.Props{
		Label:     concerto.Label(prop.Name()),
		SkipLabel: ctx.skipLabel || prop.IsArray(),
		Field:     prop.FullyQualifiedName(),
		Value:     value,
		Type:      MapType(prop.TypeName()),
		Required:  !prop.IsOptional(),
		ReadOnly:  params.Disabled,
		TextOnly:  params.TextOnly,
		Help:      formEditorString(prop, "help"),
	}
	if !params.Disabled && params.OnFieldValueChange != nil {
		props.OnChange = params.OnFieldValueChange
	}
	return props
}

// array renders the container of an array-valued property. Each entry is
// wrapped in an array-element keyed "<key>[i]" holding the widget built by
// item.
func (v *Visitor) array(prop concerto.Property, ctx Context, def ui.DefaultFunc, item func(Context) (*ui.Element, error)) (*ui.Element, error) {
	params := ctx.params()
	key := ctx.Key()
	value, _ := ctx.lookup(key)

	props := v.props(prop, ctx, value)
	props.SkipLabel = ctx.skipLabel
	props.Default = def
	if params.AddElement != nil && !params.Disabled {
		add := params.AddElement
		props.Add = func() error {
			value, err := def()
			if err != nil {
				return err
			}
			return add(key, value)
		}
	}
	container := &ui.Element{Kind: ui.KindArray, Key: key, Props: props}

	inner := ctx.WithSkipLabel(true)
	for i, n := 0, ctx.length(key); i < n; i++ {
		ectx := inner.withIndex(i)
		child, err := item(ectx)
		if err != nil {
			return nil, err
		}
		wrapper := &ui.Element{
			Kind: ui.KindArrayElement,
			Key:  ectx.Key(),
			Props: ui.Props{
				SkipLabel: true,
				Field:     prop.FullyQualifiedName(),
				Index:     i,
				ReadOnly:  params.Disabled,
			},
		}
		if params.RemoveElement != nil && !params.Disabled {
			remove, index := params.RemoveElement, i
			wrapper.Props.Remove = func() error { return remove(key, index) }
		}
		if child != nil {
			wrapper.Children = []*ui.Element{child}
		}
		container.Children = append(container.Children, wrapper)
	}
	return container, nil
}

// singleton renders one value of f at ctx: the field itself or one entry of
// an array field.
func (v *Visitor) singleton(f *concerto.Field, ctx Context) (*ui.Element, error) {
	value, _ := ctx.lookup(ctx.Key())
	props := v.props(f, ctx, value)
	if f.IsPrimitive() {
		return v.primitive(f, ctx, props)
	}

	decl, err := v.resolve(f, ctx)
	if err != nil {
		return nil, err
	}
	switch typed := decl.(type) {
	case *concerto.EnumDeclaration:
		props.Options = v.visitEnum(typed, ctx).Props.Options
		return &ui.Element{Kind: ui.KindSelect, Key: ctx.Key(), Props: props}, nil
	case *concerto.ClassDeclaration:
		return v.object(f, typed, ctx, props)
	default:
		return nil, &NodeError{Name: decl.FullyQualifiedName(), Type: fmt.Sprintf("%T", decl)}
	}
}

func (v *Visitor) primitive(f *concerto.Field, ctx Context, props ui.Props) (*ui.Element, error) {
	params := ctx.params()
	key := ctx.Key()
	switch props.Type {
	case TypeBoolean:
		props.Toggle = params.CheckboxStyle == CheckboxToggle
		return &ui.Element{Kind: ui.KindCheckbox, Key: key, Props: props}, nil
	case TypeDateTime:
		props.InputType = InputType(props.Type)
		return &ui.Element{Kind: ui.KindDateTime, Key: key, Props: props}, nil
	}

	if selector := formEditorString(f, "selectOptions"); selector != "" {
		options, ok := params.CustomSelectors[selector]
		if !ok {
			return nil, &SelectorError{Field: f.FullyQualifiedName(), Key: selector}
		}
		props.Options = append([]ui.Option(nil), options...)
		return &ui.Element{Kind: ui.KindSelect, Key: key, Props: props}, nil
	}

	props.InputType = InputType(props.Type)
	return &ui.Element{Kind: ui.KindInput, Key: key, Props: props}, nil
}

// object renders an embedded class value as a labelled wrapper around the
// visit of its most specific concrete type.
func (v *Visitor) object(f *concerto.Field, declared *concerto.ClassDeclaration, ctx Context, props ui.Props) (*ui.Element, error) {
	class := v.concreteClass(declared, ctx)
	if ctx.expanding(class.FullyQualifiedName()) {
		// Recursive types only expand while the document has data for them.
		if _, ok := ctx.lookup(ctx.Key()); !ok {
			return nil, nil
		}
	}
	if title := formEditorString(f, "title"); title != "" {
		props.Label = title
	}
	props.Type = class.FullyQualifiedName()

	child, err := v.visitClass(class, ctx.WithSkipLabel(false))
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, nil
	}
	return &ui.Element{Kind: ui.KindObject, Key: ctx.Key(), Props: props, Children: []*ui.Element{child}}, nil
}

// concreteClass prefers the $class recorded in the document, then the
// declared type, then its first concrete subclass.
func (v *Visitor) concreteClass(declared *concerto.ClassDeclaration, ctx Context) *concerto.ClassDeclaration {
	mm := ctx.params().Models
	fqn := declared.FullyQualifiedName()
	if recorded := ctx.documentClass(ctx.Key()); recorded != "" && recorded != fqn && mm.IsAssignableTo(recorded, fqn) {
		if candidate, err := mm.ClassDeclaration(recorded); err == nil && !candidate.IsAbstract() {
			return candidate
		}
	}
	if !declared.IsAbstract() {
		return declared
	}
	if candidates := mm.ConcreteSubclasses(fqn); len(candidates) > 0 {
		return candidates[0]
	}
	return declared
}

func (v *Visitor) resolve(prop concerto.Property, ctx Context) (concerto.Declaration, error) {
	mm := ctx.params().Models
	if mm == nil {
		return nil, fmt.Errorf("%w: resolving %s", ErrNoModels, prop.FullyQualifiedTypeName())
	}
	decl, err := mm.Type(prop.FullyQualifiedTypeName())
	if err != nil {
		return nil, fmt.Errorf("visitor: %s: %w", prop.FullyQualifiedName(), err)
	}
	return decl, nil
}

func (v *Visitor) relationshipPicker(r *concerto.Relationship, ctx Context) (*ui.Element, error) {
	params := ctx.params()
	value, _ := ctx.lookup(ctx.Key())
	props := v.props(r, ctx, value)
	props.Type = TypeText
	props.InputType = InputType(TypeText)
	props.RelationshipType = r.FullyQualifiedTypeName()
	if provider := params.RelationshipProvider; provider != nil {
		options, err := provider.Options(props.RelationshipType)
		if err != nil {
			return nil, fmt.Errorf("visitor: relationship options for %s: %w", r.FullyQualifiedName(), err)
		}
		props.Provider = provider
		props.Options = options
	}
	return &ui.Element{Kind: ui.KindRelationship, Key: ctx.Key(), Props: props}, nil
}

// sampleReference builds one resource of the relationship target to obtain
// the reference appended by the add affordance.
func (v *Visitor) sampleReference(r *concerto.Relationship, ctx Context) (string, error) {
	if ctx.params().Models == nil {
		return "", fmt.Errorf("%w: resolving %s", ErrNoModels, r.FullyQualifiedTypeName())
	}
	factory := v.factory(ctx)
	namespace, name := concerto.SplitFQN(r.FullyQualifiedTypeName())
	resource, err := factory.NewResource(namespace, name, "", ctx.params().generateOptions())
	if err != nil {
		return "", fmt.Errorf("visitor: sample resource for %s: %w", r.FullyQualifiedName(), err)
	}
	id, _ := factory.Identifier(resource)
	class, _ := resource["$class"].(string)
	return concerto.RelationshipURI(class, id), nil
}

// defaultValue computes the value appended to an array field.
func (v *Visitor) defaultValue(f *concerto.Field, ctx Context) (any, error) {
	if value, ok := f.Default(); ok {
		return value, nil
	}
	mode := ctx.params().generateOptions().Mode
	if f.IsPrimitive() {
		return v.factory(ctx).PrimitiveValue(f.TypeName(), f.Name(), mode), nil
	}
	decl, err := v.resolve(f, ctx)
	if err != nil {
		return nil, err
	}
	switch typed := decl.(type) {
	case *concerto.EnumDeclaration:
		if literals := typed.Literals(); len(literals) > 0 {
			return literals[0], nil
		}
		return "", nil
	case *concerto.ClassDeclaration:
		namespace, name := concerto.SplitFQN(typed.FullyQualifiedName())
		instance, err := v.factory(ctx).NewConcept(namespace, name, ctx.params().generateOptions())
		if err != nil {
			return nil, fmt.Errorf("visitor: default for %s: %w", f.FullyQualifiedName(), err)
		}
		return instance, nil
	default:
		return nil, nil
	}
}
