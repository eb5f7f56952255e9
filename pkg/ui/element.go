package ui

// Kind names the widget an Element renders as.
type Kind string

const (
	KindGroup          Kind = "group"
	KindSelect         Kind = "select"
	KindCheckbox       Kind = "checkbox"
	KindDateTime       Kind = "datetime"
	KindInput          Kind = "input"
	KindObject         Kind = "object"
	KindArray          Kind = "array"
	KindArrayElement   Kind = "array-element"
	KindRelationship   Kind = "relationship"
	KindMonetaryAmount Kind = "monetary-amount"
	KindDuration       Kind = "duration"
	KindParty          Kind = "party"
)

// Element is a node of the rendered form tree.
type Element struct {
	Kind     Kind       `json:"kind"`
	Key      string     `json:"key,omitempty"`
	Props    Props      `json:"props"`
	Children []*Element `json:"children,omitempty"`
}

// Option is a selectable entry of a select or relationship picker.
type Option struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
	Text  string `json:"text" yaml:"text"`
}

// LiteralOption builds an option whose key, value and text are all name.
func LiteralOption(name string) Option {
	return Option{Key: name, Value: name, Text: name}
}

// ChangeFunc writes value at key in the document under edit.
type ChangeFunc func(key string, value any) error

// DefaultFunc computes the value appended by an array add affordance.
type DefaultFunc func() (any, error)

// RelationshipProvider lists candidate targets for a relationship picker.
type RelationshipProvider interface {
	Options(typeName string) ([]Option, error)
}

// StaticRelationships is a RelationshipProvider backed by a map keyed by the
// fully qualified target type.
type StaticRelationships map[string][]Option

func (s StaticRelationships) Options(typeName string) ([]Option, error) {
	return append([]Option(nil), s[typeName]...), nil
}

// Props is the prop bundle shared by every widget. Callbacks and the
// relationship provider are bound to the traversal that produced the element
// and are not serialised.
type Props struct {
	Label            string   `json:"label,omitempty"`
	SkipLabel        bool     `json:"skipLabel,omitempty"`
	Field            string   `json:"field,omitempty"`
	Value            any      `json:"value,omitempty"`
	Type             string   `json:"type,omitempty"`
	InputType        string   `json:"inputType,omitempty"`
	Required         bool     `json:"required,omitempty"`
	ReadOnly         bool     `json:"readOnly,omitempty"`
	TextOnly         bool     `json:"textOnly,omitempty"`
	Toggle           bool     `json:"toggle,omitempty"`
	Options          []Option `json:"options,omitempty"`
	RelationshipType string   `json:"relationshipType,omitempty"`
	Help             string   `json:"help,omitempty"`
	Index            int      `json:"index,omitempty"`

	OnChange ChangeFunc           `json:"-"`
	Add      func() error         `json:"-"`
	Remove   func() error         `json:"-"`
	Default  DefaultFunc          `json:"-"`
	Provider RelationshipProvider `json:"-"`
}

// IsLeaf reports whether the element edits a single value.
func (e *Element) IsLeaf() bool {
	switch e.Kind {
	case KindSelect, KindCheckbox, KindDateTime, KindInput, KindRelationship:
		return true
	default:
		return false
	}
}

// Walk visits root and its descendants depth first. Returning false from fn
// skips the children of the current element.
func Walk(root *Element, fn func(*Element) bool) {
	if root == nil || fn == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.Children {
		Walk(child, fn)
	}
}

// Find returns the first element bound to key.
func Find(root *Element, key string) *Element {
	var found *Element
	Walk(root, func(e *Element) bool {
		if found != nil {
			return false
		}
		if e.Key == key && e.IsLeaf() {
			found = e
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	Walk(root, func(e *Element) bool {
		if found == nil && e.Key == key {
			found = e
		}
		return found == nil
	})
	return found
}

// Count reports how many elements of kind the tree contains.
func Count(root *Element, kind Kind) int {
	n := 0
	Walk(root, func(e *Element) bool {
		if e.Kind == kind {
			n++
		}
		return true
	})
	return n
}

// Leaves returns the value-editing elements in document order.
func Leaves(root *Element) []*Element {
	var out []*Element
	Walk(root, func(e *Element) bool {
		if e.IsLeaf() {
			out = append(out, e)
		}
		return true
	})
	return out
}
