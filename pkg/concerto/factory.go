package concerto

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateMode selects how the factory fills property values.
type GenerateMode string

const (
	// GenerateEmpty fills properties with zero values.
	GenerateEmpty GenerateMode = "empty"
	// GenerateSample fills properties with readable sample values.
	GenerateSample GenerateMode = "sample"
)

// GenerateOptions controls instance construction.
type GenerateOptions struct {
	IncludeOptionalFields bool
	Mode                  GenerateMode
}

const defaultFactoryDepth = 8

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDGenerator overrides the identifier generator used when callers do not
// supply an id.
func WithIDGenerator(fn func() string) FactoryOption {
	return func(f *Factory) {
		if fn != nil {
			f.newID = fn
		}
	}
}

// WithClock overrides the time source used for DateTime values.
func WithClock(fn func() time.Time) FactoryOption {
	return func(f *Factory) {
		if fn != nil {
			f.now = fn
		}
	}
}

// WithMaxDepth bounds nested concept generation.
func WithMaxDepth(depth int) FactoryOption {
	return func(f *Factory) {
		if depth > 0 {
			f.maxDepth = depth
		}
	}
}

// Factory builds JSON-shaped instances of model declarations.
type Factory struct {
	mm       *ModelManager
	newID    func() string
	now      func() time.Time
	maxDepth int
}

// NewFactory returns a factory bound to mm.
func NewFactory(mm *ModelManager, options ...FactoryOption) *Factory {
	f := &Factory{
		mm:       mm,
		newID:    uuid.NewString,
		now:      time.Now,
		maxDepth: defaultFactoryDepth,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// NewResource builds an identified instance of namespace.name. An empty id is
// replaced by a generated one. Abstract types are substituted by their first
// concrete subclass.
func (f *Factory) NewResource(namespace, name, id string, opts GenerateOptions) (map[string]any, error) {
	class, err := f.concreteClass(qualify(namespace, name))
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = f.newID()
	}
	return f.instance(class, id, opts, 0)
}

// NewConcept builds an instance of namespace.name without forcing an id.
// Identified declarations still receive a generated identifier.
func (f *Factory) NewConcept(namespace, name string, opts GenerateOptions) (map[string]any, error) {
	class, err := f.concreteClass(qualify(namespace, name))
	if err != nil {
		return nil, err
	}
	return f.instance(class, "", opts, 0)
}

// Identifier extracts the identifier value from an instance produced by the
// factory.
func (f *Factory) Identifier(instance map[string]any) (string, bool) {
	if instance == nil {
		return "", false
	}
	fqn, _ := instance["$class"].(string)
	class, err := f.mm.ClassDeclaration(fqn)
	if err != nil {
		return "", false
	}
	field := class.IdentifierFieldName()
	if field == "" {
		return "", false
	}
	id, ok := instance[field].(string)
	return id, ok && id != ""
}

// PrimitiveValue returns the empty or sample value for a primitive type.
func (f *Factory) PrimitiveValue(typeName, propertyName string, mode GenerateMode) any {
	switch typeName {
	case TypeBoolean:
		return false
	case TypeInteger, TypeLong:
		if mode == GenerateSample {
			return 1
		}
		return 0
	case TypeDouble:
		if mode == GenerateSample {
			return 1.5
		}
		return 0.0
	case TypeDateTime:
		return f.now().UTC().Format(time.RFC3339)
	default:
		if mode == GenerateSample {
			return strings.ToLower(Label(propertyName))
		}
		return ""
	}
}

// RelationshipURI renders the reference key of an identified instance.
func RelationshipURI(fqn, id string) string {
	return "resource:" + fqn + "#" + id
}

func (f *Factory) concreteClass(fqn string) (*ClassDeclaration, error) {
	if f == nil || f.mm == nil {
		return nil, fmt.Errorf("concerto: factory has no model manager")
	}
	class, err := f.mm.ClassDeclaration(fqn)
	if err != nil {
		return nil, err
	}
	if !class.IsAbstract() {
		return class, nil
	}
	candidates := f.mm.ConcreteSubclasses(fqn)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("concerto: no concrete subclass of %s", fqn)
	}
	return candidates[0], nil
}

func (f *Factory) instance(class *ClassDeclaration, id string, opts GenerateOptions, depth int) (map[string]any, error) {
	out := map[string]any{"$class": class.FullyQualifiedName()}
	idField := class.IdentifierFieldName()
	if idField != "" {
		if id == "" {
			id = f.newID()
		}
		out[idField] = id
	}

	for _, prop := range class.Properties() {
		if prop.Name() == idField {
			continue
		}
		if prop.IsOptional() && !opts.IncludeOptionalFields {
			continue
		}
		value, ok, err := f.propertyValue(prop, opts, depth)
		if err != nil {
			return nil, err
		}
		if ok {
			out[prop.Name()] = value
		}
	}
	return out, nil
}

func (f *Factory) propertyValue(prop Property, opts GenerateOptions, depth int) (any, bool, error) {
	if field, ok := prop.(*Field); ok {
		if value, declared := field.Default(); declared {
			return value, true, nil
		}
	}
	if prop.IsArray() {
		if opts.Mode != GenerateSample {
			return []any{}, true, nil
		}
		item, ok, err := f.singleValue(prop, opts, depth)
		if err != nil || !ok {
			return []any{}, true, err
		}
		return []any{item}, true, nil
	}
	return f.singleValue(prop, opts, depth)
}

func (f *Factory) singleValue(prop Property, opts GenerateOptions, depth int) (any, bool, error) {
	if _, isRel := prop.(*Relationship); isRel {
		return RelationshipURI(prop.FullyQualifiedTypeName(), f.newID()), true, nil
	}
	if prop.IsPrimitive() {
		return f.PrimitiveValue(prop.TypeName(), prop.Name(), opts.Mode), true, nil
	}

	decl, err := f.mm.Type(prop.FullyQualifiedTypeName())
	if err != nil {
		return nil, false, err
	}
	switch typed := decl.(type) {
	case *EnumDeclaration:
		literals := typed.Literals()
		if len(literals) == 0 {
			return nil, false, nil
		}
		return literals[0], true, nil
	case *ClassDeclaration:
		if depth+1 >= f.maxDepth {
			return nil, false, nil
		}
		class, err := f.concreteClass(typed.FullyQualifiedName())
		if err != nil {
			return nil, false, err
		}
		nested, err := f.instance(class, "", opts, depth+1)
		if err != nil {
			return nil, false, err
		}
		return nested, true, nil
	default:
		return nil, false, nil
	}
}
