package concerto

import (
	"strings"
)

// Primitive type names understood by the model layer.
const (
	TypeString   = "String"
	TypeBoolean  = "Boolean"
	TypeDateTime = "DateTime"
	TypeInteger  = "Integer"
	TypeLong     = "Long"
	TypeDouble   = "Double"
)

// SystemIdentifierField is the implicit identifier of declarations marked
// `identified` without naming a property.
const SystemIdentifierField = "$identifier"

// ClassKind distinguishes the flavours of class declarations.
type ClassKind string

const (
	KindConcept     ClassKind = "concept"
	KindAsset       ClassKind = "asset"
	KindParticipant ClassKind = "participant"
	KindTransaction ClassKind = "transaction"
	KindEvent       ClassKind = "event"
)

// IsPrimitive reports whether typeName names a primitive type.
func IsPrimitive(typeName string) bool {
	switch typeName {
	case TypeString, TypeBoolean, TypeDateTime, TypeInteger, TypeLong, TypeDouble:
		return true
	default:
		return false
	}
}

// Node is anything the form visitor can be asked to visit. The four variants
// declared in this package are ClassDeclaration, EnumDeclaration, Field and
// Relationship.
type Node interface {
	Name() string
	FullyQualifiedName() string
}

// Declaration is a top-level type declared inside a model file.
type Declaration interface {
	Node
	Namespace() string
	Decorator(name string) (Decorator, bool)
}

// Property is implemented by the members of a class declaration.
type Property interface {
	Node
	TypeName() string
	FullyQualifiedTypeName() string
	IsArray() bool
	IsOptional() bool
	IsPrimitive() bool
	Parent() *ClassDeclaration
	Decorator(name string) (Decorator, bool)
	Decorators() []Decorator
}

// Decorator is an annotation such as @FormEditor("title", "Amount").
type Decorator struct {
	Name      string
	Arguments []any
}

// Argument returns the i-th argument or nil.
func (d Decorator) Argument(i int) any {
	if i < 0 || i >= len(d.Arguments) {
		return nil
	}
	return d.Arguments[i]
}

// StringArgument returns the i-th argument when it is a string.
func (d Decorator) StringArgument(i int) (string, bool) {
	value, ok := d.Argument(i).(string)
	return value, ok
}

func findDecorator(decorators []Decorator, name string) (Decorator, bool) {
	for _, decorator := range decorators {
		if decorator.Name == name {
			return decorator, true
		}
	}
	return Decorator{}, false
}

// ClassDeclaration describes concepts, assets, participants, transactions and
// events.
type ClassDeclaration struct {
	file       *ModelFile
	name       string
	kind       ClassKind
	abstract   bool
	superType  string
	identifier string
	identified bool
	properties []Property
	decorators []Decorator
}

// NewClassDeclaration constructs a class declaration. Properties are attached
// with AddField/AddRelationship and the declaration is registered with a model
// file through ModelFile.AddDeclaration.
func NewClassDeclaration(name string, kind ClassKind) *ClassDeclaration {
	if kind == "" {
		kind = KindConcept
	}
	return &ClassDeclaration{name: name, kind: kind}
}

// SetAbstract marks the declaration abstract.
func (c *ClassDeclaration) SetAbstract(abstract bool) *ClassDeclaration {
	c.abstract = abstract
	return c
}

// SetSuperType records the (possibly unqualified) super type name.
func (c *ClassDeclaration) SetSuperType(name string) *ClassDeclaration {
	c.superType = name
	return c
}

// IdentifiedBy names the identifying property. An empty name selects the
// system identifier.
func (c *ClassDeclaration) IdentifiedBy(field string) *ClassDeclaration {
	c.identified = true
	c.identifier = field
	return c
}

// AddDecorator appends a decorator.
func (c *ClassDeclaration) AddDecorator(decorator Decorator) *ClassDeclaration {
	c.decorators = append(c.decorators, decorator)
	return c
}

// AddField appends a field property and returns it for further configuration.
func (c *ClassDeclaration) AddField(name, typeName string) *Field {
	field := &Field{propertyBase: propertyBase{parent: c, name: name, typeName: typeName}}
	c.properties = append(c.properties, field)
	return field
}

// AddRelationship appends a relationship property.
func (c *ClassDeclaration) AddRelationship(name, typeName string) *Relationship {
	rel := &Relationship{propertyBase: propertyBase{parent: c, name: name, typeName: typeName}}
	c.properties = append(c.properties, rel)
	return rel
}

func (c *ClassDeclaration) Name() string { return c.name }

// Kind reports the declaration flavour.
func (c *ClassDeclaration) Kind() ClassKind { return c.kind }

// Namespace returns the owning model file namespace.
func (c *ClassDeclaration) Namespace() string {
	if c.file == nil {
		return ""
	}
	return c.file.Namespace
}

func (c *ClassDeclaration) FullyQualifiedName() string {
	return qualify(c.Namespace(), c.name)
}

func (c *ClassDeclaration) IsAbstract() bool { return c.abstract }

// IsIdentified reports whether instances carry an identifier, either declared
// here or inherited.
func (c *ClassDeclaration) IsIdentified() bool {
	return c.IdentifierFieldName() != ""
}

// IdentifierFieldName returns the name of the identifying property, walking the
// super type chain. System identified declarations return "$identifier".
func (c *ClassDeclaration) IdentifierFieldName() string {
	seen := make(map[*ClassDeclaration]struct{})
	for current := c; current != nil; current = current.superDeclaration() {
		if _, loop := seen[current]; loop {
			break
		}
		seen[current] = struct{}{}
		if current.identified {
			if current.identifier == "" {
				return SystemIdentifierField
			}
			return current.identifier
		}
	}
	return ""
}

// SuperType returns the fully qualified super type name or "".
func (c *ClassDeclaration) SuperType() string {
	if c.superType == "" {
		return ""
	}
	if c.file == nil {
		return c.superType
	}
	return c.file.resolveTypeName(c.superType)
}

func (c *ClassDeclaration) superDeclaration() *ClassDeclaration {
	fqn := c.SuperType()
	if fqn == "" || c.file == nil || c.file.manager == nil {
		return nil
	}
	decl, err := c.file.manager.Type(fqn)
	if err != nil {
		return nil
	}
	super, _ := decl.(*ClassDeclaration)
	return super
}

// OwnProperties returns the properties declared directly on this type.
func (c *ClassDeclaration) OwnProperties() []Property {
	return append([]Property(nil), c.properties...)
}

// Properties returns inherited properties first (root-most super type first)
// followed by the properties declared here, each in declaration order.
func (c *ClassDeclaration) Properties() []Property {
	var chain []*ClassDeclaration
	seen := make(map[*ClassDeclaration]struct{})
	for current := c; current != nil; current = current.superDeclaration() {
		if _, loop := seen[current]; loop {
			break
		}
		seen[current] = struct{}{}
		chain = append(chain, current)
	}

	var out []Property
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].properties...)
	}
	return out
}

// Property looks up a property by name including inherited ones.
func (c *ClassDeclaration) Property(name string) (Property, bool) {
	for _, prop := range c.Properties() {
		if prop.Name() == name {
			return prop, true
		}
	}
	return nil, false
}

func (c *ClassDeclaration) Decorators() []Decorator {
	return append([]Decorator(nil), c.decorators...)
}

func (c *ClassDeclaration) Decorator(name string) (Decorator, bool) {
	return findDecorator(c.decorators, name)
}

// EnumDeclaration lists the literals of an enumeration.
type EnumDeclaration struct {
	file       *ModelFile
	name       string
	literals   []string
	decorators []Decorator
}

// NewEnumDeclaration constructs an enumeration with the provided literals.
func NewEnumDeclaration(name string, literals ...string) *EnumDeclaration {
	return &EnumDeclaration{name: name, literals: append([]string(nil), literals...)}
}

func (e *EnumDeclaration) Name() string { return e.name }

func (e *EnumDeclaration) Namespace() string {
	if e.file == nil {
		return ""
	}
	return e.file.Namespace
}

func (e *EnumDeclaration) FullyQualifiedName() string {
	return qualify(e.Namespace(), e.name)
}

// Literals returns the literal names in declaration order.
func (e *EnumDeclaration) Literals() []string {
	return append([]string(nil), e.literals...)
}

// AddDecorator appends a decorator.
func (e *EnumDeclaration) AddDecorator(decorator Decorator) *EnumDeclaration {
	e.decorators = append(e.decorators, decorator)
	return e
}

func (e *EnumDeclaration) Decorator(name string) (Decorator, bool) {
	return findDecorator(e.decorators, name)
}

type propertyBase struct {
	parent     *ClassDeclaration
	name       string
	typeName   string
	array      bool
	optional   bool
	decorators []Decorator
}

func (p *propertyBase) Name() string { return p.name }

func (p *propertyBase) FullyQualifiedName() string {
	if p.parent == nil {
		return p.name
	}
	return p.parent.FullyQualifiedName() + "." + p.name
}

func (p *propertyBase) TypeName() string { return p.typeName }

func (p *propertyBase) FullyQualifiedTypeName() string {
	if IsPrimitive(p.typeName) {
		return p.typeName
	}
	if p.parent == nil || p.parent.file == nil {
		return p.typeName
	}
	return p.parent.file.resolveTypeName(p.typeName)
}

func (p *propertyBase) IsArray() bool    { return p.array }
func (p *propertyBase) IsOptional() bool { return p.optional }

func (p *propertyBase) Parent() *ClassDeclaration { return p.parent }

func (p *propertyBase) Decorators() []Decorator {
	return append([]Decorator(nil), p.decorators...)
}

func (p *propertyBase) Decorator(name string) (Decorator, bool) {
	return findDecorator(p.decorators, name)
}

// Field is a property holding a primitive value or an embedded concept/enum.
type Field struct {
	propertyBase
	defaultValue any
}

func (f *Field) IsPrimitive() bool { return IsPrimitive(f.typeName) }

// Default returns the declared default value, if any.
func (f *Field) Default() (any, bool) {
	return f.defaultValue, f.defaultValue != nil
}

// Array marks the field array-valued.
func (f *Field) Array() *Field { f.array = true; return f }

// Optional marks the field optional.
func (f *Field) Optional() *Field { f.optional = true; return f }

// WithDefault records a declared default value.
func (f *Field) WithDefault(value any) *Field { f.defaultValue = value; return f }

// WithDecorator appends a decorator.
func (f *Field) WithDecorator(name string, args ...any) *Field {
	f.decorators = append(f.decorators, Decorator{Name: name, Arguments: args})
	return f
}

// Relationship is a property that references another identified declaration
// by key rather than embedding it.
type Relationship struct {
	propertyBase
}

func (r *Relationship) IsPrimitive() bool { return false }

// Array marks the relationship array-valued.
func (r *Relationship) Array() *Relationship { r.array = true; return r }

// Optional marks the relationship optional.
func (r *Relationship) Optional() *Relationship { r.optional = true; return r }

// WithDecorator appends a decorator.
func (r *Relationship) WithDecorator(name string, args ...any) *Relationship {
	r.decorators = append(r.decorators, Decorator{Name: name, Arguments: args})
	return r
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// SplitFQN splits a qualified name into namespace and short name. Versioned
// namespaces (org.acme@1.0.0) are handled because the short name never
// contains a dot.
func SplitFQN(fqn string) (namespace, name string) {
	idx := strings.LastIndex(fqn, ".")
	if idx < 0 {
		return "", fqn
	}
	return fqn[:idx], fqn[idx+1:]
}

// UnversionedNamespace strips the @version suffix of a namespace.
func UnversionedNamespace(namespace string) string {
	if idx := strings.Index(namespace, "@"); idx >= 0 {
		return namespace[:idx]
	}
	return namespace
}
