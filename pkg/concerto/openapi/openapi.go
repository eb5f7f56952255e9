// Package openapi converts the component schemas of an OpenAPI 3 document
// into a concerto model file so forms can be generated for APIs that have no
// Concerto model of their own.
//
// Mapping:
//
//	string enum schema            → enumeration
//	object schema                 → concept (asset with x-identifier)
//	allOf: [{$ref}, {...}]        → super type plus own properties
//	$ref property                 → object field
//	x-relationship: true          → relationship to the referenced type
//	string/date-time              → DateTime
//	integer (int64)               → Integer (Long)
//	number                        → Double
//	array                         → array flag on the item mapping
//	required                      → optionality
//	x-abstract: true              → abstract class
//	x-form-editor: {key: value}   → @FormEditor(key, value) decorators
//
// Inline enums and inline objects get synthesized declarations named after
// the owning class and property.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/inflect"

	"github.com/goliatone/go-modelform/pkg/concerto"
)

// Extension keys read from schemas.
const (
	ExtIdentifier   = "x-identifier"
	ExtRelationship = "x-relationship"
	ExtAbstract     = "x-abstract"
	ExtFormEditor   = "x-form-editor"
)

const formEditorDecorator = "FormEditor"

// ErrNoSchemas is returned for documents without component schemas.
var ErrNoSchemas = errors.New("openapi: document has no component schemas")

// Load parses an OpenAPI document (JSON or YAML) and converts its component
// schemas into a model file for namespace.
func Load(ctx context.Context, data []byte, namespace string) (*concerto.ModelFile, error) {
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return Convert(spec, namespace)
}

// LoadFS reads path from fsys and converts it like Load.
func LoadFS(ctx context.Context, fsys fs.FS, path, namespace string) (*concerto.ModelFile, error) {
	if fsys == nil {
		return nil, errors.New("openapi: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Load(ctx, data, namespace)
}

// Convert maps the component schemas of spec onto declarations of namespace.
func Convert(spec *openapi3.T, namespace string) (*concerto.ModelFile, error) {
	if spec == nil || spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, ErrNoSchemas
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, errors.New("openapi: namespace is required")
	}

	c := &converter{file: concerto.NewModelFile(namespace), pending: map[string]bool{}}
	names := make([]string, 0, len(spec.Components.Schemas))
	for name := range spec.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.pending[name] = true
	}
	for _, name := range names {
		if err := c.declare(name, spec.Components.Schemas[name]); err != nil {
			return nil, err
		}
	}
	return c.file, nil
}

type converter struct {
	file *concerto.ModelFile
	// pending holds component names so $ref targets resolve before they are
	// declared.
	pending map[string]bool
}

func (c *converter) declare(name string, ref *openapi3.SchemaRef) error {
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("openapi: schema %q is empty", name)
	}
	schema := ref.Value
	if isEnum(schema) {
		return c.add(concerto.NewEnumDeclaration(name, literals(schema)...))
	}
	if !isObject(schema) {
		return fmt.Errorf("openapi: schema %q: unsupported type %v", name, typeList(schema))
	}

	kind := concerto.KindConcept
	identifier, _ := schema.Extensions[ExtIdentifier].(string)
	if identifier != "" {
		kind = concerto.KindAsset
	}
	class := concerto.NewClassDeclaration(name, kind)
	if identifier != "" {
		class.IdentifiedBy(identifier)
	}
	if abstract, _ := schema.Extensions[ExtAbstract].(bool); abstract {
		class.SetAbstract(true)
	}
	for _, decorator := range formEditorDecorators(schema) {
		class.AddDecorator(decorator)
	}

	properties := map[string]*openapi3.SchemaRef{}
	required := map[string]bool{}
	collect := func(s *openapi3.Schema) {
		for key, value := range s.Properties {
			properties[key] = value
		}
		for _, key := range s.Required {
			required[key] = true
		}
	}
	collect(schema)
	for _, member := range schema.AllOf {
		if member == nil {
			continue
		}
		if member.Ref != "" {
			if class.SuperType() == "" {
				class.SetSuperType(refName(member.Ref))
			}
			continue
		}
		if member.Value != nil {
			collect(member.Value)
		}
	}

	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := c.property(class, key, properties[key], required[key]); err != nil {
			return err
		}
	}
	return c.add(class)
}

func (c *converter) property(class *concerto.ClassDeclaration, name string, ref *openapi3.SchemaRef, required bool) error {
	if ref == nil {
		return fmt.Errorf("openapi: %s.%s: schema is empty", class.Name(), name)
	}
	target := ref
	array := false
	if ref.Ref == "" && ref.Value != nil && ref.Value.Type.Is(openapi3.TypeArray) {
		if ref.Value.Items == nil {
			return fmt.Errorf("openapi: %s.%s: array without items", class.Name(), name)
		}
		target = ref.Value.Items
		array = true
	}
	// Extensions next to a $ref are dropped by the loader, so references
	// carrying hints are written as a single-member allOf.
	if target.Ref == "" && target.Value != nil && len(target.Value.AllOf) == 1 && len(target.Value.Properties) == 0 {
		if member := target.Value.AllOf[0]; member != nil && member.Ref != "" {
			target = member
		}
	}

	decorators := formEditorDecorators(ref.Value)
	if ref.Value != nil && ref.Value.Description != "" && !hasDecoratorKey(decorators, "help") {
		decorators = append(decorators, concerto.Decorator{Name: formEditorDecorator, Arguments: []any{"help", ref.Value.Description}})
	}

	if isRelationship(ref) || isRelationship(target) {
		if target.Ref == "" {
			return fmt.Errorf("openapi: %s.%s: relationship must reference a schema", class.Name(), name)
		}
		rel := class.AddRelationship(name, refName(target.Ref))
		if array {
			rel.Array()
		}
		if !required {
			rel.Optional()
		}
		for _, decorator := range decorators {
			rel.WithDecorator(decorator.Name, decorator.Arguments...)
		}
		return nil
	}

	typeName, err := c.typeName(class.Name(), name, target)
	if err != nil {
		return err
	}
	field := class.AddField(name, typeName)
	if array {
		field.Array()
	}
	if !required {
		field.Optional()
	}
	if target.Ref == "" && target.Value != nil && target.Value.Default != nil {
		field.WithDefault(target.Value.Default)
	}
	for _, decorator := range decorators {
		field.WithDecorator(decorator.Name, decorator.Arguments...)
	}
	return nil
}

// typeName maps a property schema onto a primitive or declared type name,
// synthesizing declarations for inline enums and objects.
func (c *converter) typeName(owner, property string, ref *openapi3.SchemaRef) (string, error) {
	if ref.Ref != "" {
		return refName(ref.Ref), nil
	}
	schema := ref.Value
	if schema == nil {
		return "", fmt.Errorf("openapi: %s.%s: schema is empty", owner, property)
	}
	switch {
	case isEnum(schema):
		name := owner + inflect.Capitalize(property)
		if err := c.add(concerto.NewEnumDeclaration(name, literals(schema)...)); err != nil {
			return "", err
		}
		return name, nil
	case schema.Type.Is(openapi3.TypeString):
		if schema.Format == "date-time" {
			return concerto.TypeDateTime, nil
		}
		return concerto.TypeString, nil
	case schema.Type.Is(openapi3.TypeInteger):
		if schema.Format == "int64" {
			return concerto.TypeLong, nil
		}
		return concerto.TypeInteger, nil
	case schema.Type.Is(openapi3.TypeNumber):
		return concerto.TypeDouble, nil
	case schema.Type.Is(openapi3.TypeBoolean):
		return concerto.TypeBoolean, nil
	case isObject(schema):
		name := owner + inflect.Capitalize(property)
		if c.pending[name] {
			return "", fmt.Errorf("openapi: %s.%s: inline object collides with schema %q", owner, property, name)
		}
		if err := c.declare(name, ref); err != nil {
			return "", err
		}
		return name, nil
	default:
		return "", fmt.Errorf("openapi: %s.%s: unsupported type %v", owner, property, typeList(schema))
	}
}

func (c *converter) add(decl concerto.Declaration) error {
	if err := c.file.AddDeclaration(decl); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

func isEnum(schema *openapi3.Schema) bool {
	return len(schema.Enum) > 0 && (schema.Type == nil || schema.Type.Is(openapi3.TypeString))
}

func isObject(schema *openapi3.Schema) bool {
	if schema.Type != nil && schema.Type.Is(openapi3.TypeObject) {
		return true
	}
	return (schema.Type == nil || len(schema.Type.Slice()) == 0) && (len(schema.Properties) > 0 || len(schema.AllOf) > 0)
}

func isRelationship(ref *openapi3.SchemaRef) bool {
	if ref == nil || ref.Value == nil {
		return false
	}
	flag, _ := ref.Value.Extensions[ExtRelationship].(bool)
	return flag
}

func literals(schema *openapi3.Schema) []string {
	out := make([]string, 0, len(schema.Enum))
	for _, value := range schema.Enum {
		out = append(out, fmt.Sprint(value))
	}
	return out
}

func typeList(schema *openapi3.Schema) []string {
	if schema.Type == nil {
		return nil
	}
	return schema.Type.Slice()
}

func refName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

func formEditorDecorators(schema *openapi3.Schema) []concerto.Decorator {
	if schema == nil {
		return nil
	}
	raw, ok := schema.Extensions[ExtFormEditor].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]concerto.Decorator, 0, len(keys))
	for _, key := range keys {
		out = append(out, concerto.Decorator{Name: formEditorDecorator, Arguments: []any{key, raw[key]}})
	}
	return out
}

func hasDecoratorKey(decorators []concerto.Decorator, key string) bool {
	for _, decorator := range decorators {
		if first, _ := decorator.StringArgument(0); first == key {
			return true
		}
	}
	return false
}
