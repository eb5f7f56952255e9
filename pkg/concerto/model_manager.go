package concerto

import (
	"fmt"
	"sort"
	"sync"
)

// Import records a type imported from another namespace.
type Import struct {
	Namespace string
	Names     []string
}

// ModelFile groups the declarations of a single namespace.
type ModelFile struct {
	Namespace    string
	Imports      []Import
	declarations []Declaration
	byName       map[string]Declaration
	manager      *ModelManager
}

// NewModelFile returns an empty model file for namespace.
func NewModelFile(namespace string) *ModelFile {
	return &ModelFile{
		Namespace: namespace,
		byName:    make(map[string]Declaration),
	}
}

// AddDeclaration attaches a class or enum declaration to the file.
func (m *ModelFile) AddDeclaration(decl Declaration) error {
	if decl == nil {
		return fmt.Errorf("concerto: declaration is nil")
	}
	if _, exists := m.byName[decl.Name()]; exists {
		return fmt.Errorf("concerto: duplicate declaration %q in %s", decl.Name(), m.Namespace)
	}
	switch typed := decl.(type) {
	case *ClassDeclaration:
		typed.file = m
	case *EnumDeclaration:
		typed.file = m
	default:
		return fmt.Errorf("concerto: unsupported declaration %T", decl)
	}
	m.byName[decl.Name()] = decl
	m.declarations = append(m.declarations, decl)
	return nil
}

// MustAddDeclaration panics when AddDeclaration fails. Handy when building
// fixtures in code.
func (m *ModelFile) MustAddDeclaration(decls ...Declaration) *ModelFile {
	for _, decl := range decls {
		if err := m.AddDeclaration(decl); err != nil {
			panic(err)
		}
	}
	return m
}

// Declarations returns the declarations in source order.
func (m *ModelFile) Declarations() []Declaration {
	return append([]Declaration(nil), m.declarations...)
}

// resolveTypeName qualifies a short type name using the file namespace and its
// imports. Names that are already qualified are returned unchanged.
func (m *ModelFile) resolveTypeName(name string) string {
	if name == "" || IsPrimitive(name) {
		return name
	}
	if ns, _ := SplitFQN(name); ns != "" {
		return name
	}
	if _, ok := m.byName[name]; ok {
		return qualify(m.Namespace, name)
	}
	for _, imp := range m.Imports {
		if len(imp.Names) == 0 {
			if m.manager != nil {
				if _, err := m.manager.Type(qualify(imp.Namespace, name)); err == nil {
					return qualify(imp.Namespace, name)
				}
			}
			continue
		}
		for _, imported := range imp.Names {
			if imported == name {
				return qualify(imp.Namespace, name)
			}
		}
	}
	return qualify(m.Namespace, name)
}

// ModelManager indexes model files by namespace and resolves qualified type
// names. It is safe for concurrent reads once loading has finished.
type ModelManager struct {
	mu    sync.RWMutex
	files map[string]*ModelFile
	types map[string]Declaration
}

// NewModelManager returns an empty manager.
func NewModelManager() *ModelManager {
	return &ModelManager{
		files: make(map[string]*ModelFile),
		types: make(map[string]Declaration),
	}
}

// AddModelFile registers a model file. Namespaces must be unique.
func (mm *ModelManager) AddModelFile(file *ModelFile) error {
	if file == nil {
		return fmt.Errorf("concerto: model file is nil")
	}
	if file.Namespace == "" {
		return fmt.Errorf("concerto: model file namespace is required")
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, exists := mm.files[file.Namespace]; exists {
		return fmt.Errorf("concerto: namespace %q already registered", file.Namespace)
	}
	file.manager = mm
	mm.files[file.Namespace] = file
	for _, decl := range file.declarations {
		mm.types[decl.FullyQualifiedName()] = decl
	}
	return nil
}

// Namespaces returns the registered namespaces sorted.
func (mm *ModelManager) Namespaces() []string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	out := make([]string, 0, len(mm.files))
	for ns := range mm.files {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Type resolves a fully qualified declaration name.
func (mm *ModelManager) Type(fqn string) (Declaration, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	decl, ok := mm.types[fqn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, fqn)
	}
	return decl, nil
}

// ClassDeclaration resolves fqn and asserts it is a class declaration.
func (mm *ModelManager) ClassDeclaration(fqn string) (*ClassDeclaration, error) {
	decl, err := mm.Type(fqn)
	if err != nil {
		return nil, err
	}
	class, ok := decl.(*ClassDeclaration)
	if !ok {
		return nil, fmt.Errorf("concerto: %s is not a class declaration", fqn)
	}
	return class, nil
}

// Declarations returns every registered declaration sorted by qualified name.
func (mm *ModelManager) Declarations() []Declaration {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	out := make([]Declaration, 0, len(mm.types))
	for _, decl := range mm.types {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FullyQualifiedName() < out[j].FullyQualifiedName()
	})
	return out
}

// IsAssignableTo reports whether the class named candidate is fqn or extends
// it, directly or transitively.
func (mm *ModelManager) IsAssignableTo(candidate, fqn string) bool {
	seen := make(map[string]struct{})
	for current := candidate; current != ""; {
		if current == fqn {
			return true
		}
		if _, loop := seen[current]; loop {
			return false
		}
		seen[current] = struct{}{}
		class, err := mm.ClassDeclaration(current)
		if err != nil {
			return false
		}
		current = class.SuperType()
	}
	return false
}

// ConcreteSubclasses lists the non-abstract declarations assignable to fqn
// sorted by qualified name. When fqn itself is concrete it comes first.
func (mm *ModelManager) ConcreteSubclasses(fqn string) []*ClassDeclaration {
	var (
		self *ClassDeclaration
		out  []*ClassDeclaration
	)
	for _, decl := range mm.Declarations() {
		class, ok := decl.(*ClassDeclaration)
		if !ok || class.IsAbstract() {
			continue
		}
		name := class.FullyQualifiedName()
		if name == fqn {
			self = class
			continue
		}
		if mm.IsAssignableTo(name, fqn) {
			out = append(out, class)
		}
	}
	if self != nil {
		out = append([]*ClassDeclaration{self}, out...)
	}
	return out
}

// Validate resolves every super type and property type, reporting the first
// dangling reference.
func (mm *ModelManager) Validate() error {
	for _, decl := range mm.Declarations() {
		class, ok := decl.(*ClassDeclaration)
		if !ok {
			continue
		}
		if super := class.SuperType(); super != "" {
			if _, err := mm.ClassDeclaration(super); err != nil {
				return fmt.Errorf("concerto: %s super type: %w", class.FullyQualifiedName(), err)
			}
		}
		for _, prop := range class.OwnProperties() {
			if prop.IsPrimitive() {
				continue
			}
			if _, err := mm.Type(prop.FullyQualifiedTypeName()); err != nil {
				return fmt.Errorf("concerto: property %s: %w", prop.FullyQualifiedName(), err)
			}
		}
	}
	return nil
}
