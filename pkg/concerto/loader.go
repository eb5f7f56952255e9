package concerto

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// MetamodelNamespace prefixes the $class tags of the JSON metamodel AST.
const MetamodelNamespace = "concerto.metamodel@1.0.0"

type astModel struct {
	Class        string           `json:"$class" yaml:"$class"`
	Namespace    string           `json:"namespace" yaml:"namespace"`
	Imports      []astImport      `json:"imports,omitempty" yaml:"imports,omitempty"`
	Declarations []astDeclaration `json:"declarations" yaml:"declarations"`
}

type astModels struct {
	Models []astModel `json:"models" yaml:"models"`
}

type astImport struct {
	Class     string   `json:"$class" yaml:"$class"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Types     []string `json:"types,omitempty" yaml:"types,omitempty"`
}

type astTypeIdentifier struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

type astIdentified struct {
	Class string `json:"$class" yaml:"$class"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

type astDeclaration struct {
	Class      string             `json:"$class" yaml:"$class"`
	Name       string             `json:"name" yaml:"name"`
	IsAbstract bool               `json:"isAbstract,omitempty" yaml:"isAbstract,omitempty"`
	SuperType  *astTypeIdentifier `json:"superType,omitempty" yaml:"superType,omitempty"`
	Identified *astIdentified     `json:"identified,omitempty" yaml:"identified,omitempty"`
	Properties []astProperty      `json:"properties" yaml:"properties"`
	Decorators []astDecorator     `json:"decorators,omitempty" yaml:"decorators,omitempty"`
}

type astProperty struct {
	Class        string             `json:"$class" yaml:"$class"`
	Name         string             `json:"name" yaml:"name"`
	IsArray      bool               `json:"isArray,omitempty" yaml:"isArray,omitempty"`
	IsOptional   bool               `json:"isOptional,omitempty" yaml:"isOptional,omitempty"`
	Type         *astTypeIdentifier `json:"type,omitempty" yaml:"type,omitempty"`
	DefaultValue any                `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Decorators   []astDecorator     `json:"decorators,omitempty" yaml:"decorators,omitempty"`
}

type astDecorator struct {
	Class     string              `json:"$class" yaml:"$class"`
	Name      string              `json:"name" yaml:"name"`
	Arguments []astDecoratorValue `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

type astDecoratorValue struct {
	Class string             `json:"$class" yaml:"$class"`
	Value any                `json:"value,omitempty" yaml:"value,omitempty"`
	Type  *astTypeIdentifier `json:"type,omitempty" yaml:"type,omitempty"`
}

// ParseJSON decodes a single model (or a {"models": [...]} bundle) from the
// JSON metamodel AST.
func ParseJSON(data []byte) ([]*ModelFile, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("concerto: decode model json: %w", err)
	}
	if _, bundle := probe["models"]; bundle {
		var models astModels
		if err := json.Unmarshal(data, &models); err != nil {
			return nil, fmt.Errorf("concerto: decode model bundle: %w", err)
		}
		return convertModels(models.Models)
	}
	var model astModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("concerto: decode model json: %w", err)
	}
	return convertModels([]astModel{model})
}

// ParseYAML decodes the same AST written as YAML.
func ParseYAML(data []byte) ([]*ModelFile, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("concerto: decode model yaml: %w", err)
	}
	if _, bundle := probe["models"]; bundle {
		var models astModels
		if err := yaml.Unmarshal(data, &models); err != nil {
			return nil, fmt.Errorf("concerto: decode model bundle: %w", err)
		}
		return convertModels(models.Models)
	}
	var model astModel
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("concerto: decode model yaml: %w", err)
	}
	return convertModels([]astModel{model})
}

// LoadFile reads a model file from disk, choosing the decoder by extension.
func LoadFile(path string) ([]*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("concerto: read %s: %w", path, err)
	}
	return parseByExtension(path, data)
}

// LoadFS reads every file in fsys matching one of the glob patterns.
func LoadFS(fsys fs.FS, patterns ...string) ([]*ModelFile, error) {
	if fsys == nil {
		return nil, fmt.Errorf("concerto: filesystem is nil")
	}
	if len(patterns) == 0 {
		patterns = []string{"*.json", "*.yaml", "*.yml"}
	}
	var out []*ModelFile
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("concerto: glob %q: %w", pattern, err)
		}
		for _, name := range matches {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return nil, fmt.Errorf("concerto: read %s: %w", name, err)
			}
			files, err := parseByExtension(name, data)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
		}
	}
	return out, nil
}

// NewModelManagerFromFiles registers files in order and validates references.
func NewModelManagerFromFiles(files ...*ModelFile) (*ModelManager, error) {
	mm := NewModelManager()
	for _, file := range files {
		if err := mm.AddModelFile(file); err != nil {
			return nil, err
		}
	}
	if err := mm.Validate(); err != nil {
		return nil, err
	}
	return mm, nil
}

func parseByExtension(name string, data []byte) ([]*ModelFile, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func convertModels(models []astModel) ([]*ModelFile, error) {
	out := make([]*ModelFile, 0, len(models))
	for _, model := range models {
		file, err := convertModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, file)
	}
	return out, nil
}

func convertModel(model astModel) (*ModelFile, error) {
	if model.Namespace == "" {
		return nil, fmt.Errorf("concerto: model namespace is required")
	}
	file := NewModelFile(model.Namespace)
	for _, imp := range model.Imports {
		entry := Import{Namespace: imp.Namespace}
		switch {
		case imp.Name != "":
			entry.Names = []string{imp.Name}
		case len(imp.Types) > 0:
			entry.Names = append([]string(nil), imp.Types...)
		}
		file.Imports = append(file.Imports, entry)
	}

	for _, raw := range model.Declarations {
		decl, err := convertDeclaration(raw)
		if err != nil {
			return nil, fmt.Errorf("concerto: %s.%s: %w", model.Namespace, raw.Name, err)
		}
		if err := file.AddDeclaration(decl); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func convertDeclaration(raw astDeclaration) (Declaration, error) {
	kind := shortClass(raw.Class)
	if kind == "EnumDeclaration" {
		literals := make([]string, 0, len(raw.Properties))
		for _, prop := range raw.Properties {
			literals = append(literals, prop.Name)
		}
		enum := NewEnumDeclaration(raw.Name, literals...)
		for _, decorator := range raw.Decorators {
			enum.AddDecorator(convertDecorator(decorator))
		}
		return enum, nil
	}

	classKind, ok := classKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported declaration %q", raw.Class)
	}
	class := NewClassDeclaration(raw.Name, classKind).SetAbstract(raw.IsAbstract)
	if raw.SuperType != nil {
		class.SetSuperType(typeReference(raw.SuperType))
	}
	if raw.Identified != nil {
		class.IdentifiedBy(raw.Identified.Name)
	}
	for _, decorator := range raw.Decorators {
		class.AddDecorator(convertDecorator(decorator))
	}

	for _, prop := range raw.Properties {
		if err := convertProperty(class, prop); err != nil {
			return nil, err
		}
	}
	return class, nil
}

var classKinds = map[string]ClassKind{
	"ConceptDeclaration":     KindConcept,
	"AssetDeclaration":       KindAsset,
	"ParticipantDeclaration": KindParticipant,
	"TransactionDeclaration": KindTransaction,
	"EventDeclaration":       KindEvent,
}

var primitiveProperties = map[string]string{
	"StringProperty":   TypeString,
	"BooleanProperty":  TypeBoolean,
	"DateTimeProperty": TypeDateTime,
	"IntegerProperty":  TypeInteger,
	"LongProperty":     TypeLong,
	"DoubleProperty":   TypeDouble,
}

func convertProperty(class *ClassDeclaration, raw astProperty) error {
	kind := shortClass(raw.Class)
	var decorators []Decorator
	for _, decorator := range raw.Decorators {
		decorators = append(decorators, convertDecorator(decorator))
	}

	if kind == "RelationshipProperty" {
		if raw.Type == nil {
			return fmt.Errorf("relationship %q missing type", raw.Name)
		}
		rel := class.AddRelationship(raw.Name, typeReference(raw.Type))
		rel.array, rel.optional, rel.decorators = raw.IsArray, raw.IsOptional, decorators
		return nil
	}

	typeName, primitive := primitiveProperties[kind]
	if !primitive {
		if kind != "ObjectProperty" || raw.Type == nil {
			return fmt.Errorf("unsupported property %q (%s)", raw.Name, raw.Class)
		}
		typeName = typeReference(raw.Type)
	}
	field := class.AddField(raw.Name, typeName)
	field.array, field.optional, field.decorators = raw.IsArray, raw.IsOptional, decorators
	field.defaultValue = raw.DefaultValue
	return nil
}

func convertDecorator(raw astDecorator) Decorator {
	decorator := Decorator{Name: raw.Name}
	for _, arg := range raw.Arguments {
		if shortClass(arg.Class) == "DecoratorTypeReference" && arg.Type != nil {
			decorator.Arguments = append(decorator.Arguments, typeReference(arg.Type))
			continue
		}
		decorator.Arguments = append(decorator.Arguments, arg.Value)
	}
	return decorator
}

func typeReference(id *astTypeIdentifier) string {
	if id == nil {
		return ""
	}
	return qualify(id.Namespace, id.Name)
}

func shortClass(class string) string {
	if idx := strings.LastIndex(class, "."); idx >= 0 {
		return class[idx+1:]
	}
	return class
}
