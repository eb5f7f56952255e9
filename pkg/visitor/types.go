package visitor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/ui"
)

// FormEditorDecorator is the decorator carrying per-property form hints:
// @FormEditor("title", "..."), @FormEditor("hide", true),
// @FormEditor("selectOptions", "key") and @FormEditor("help", "...").
const FormEditorDecorator = "FormEditor"

// Mapped type tags.
const (
	TypeText     = "Text"
	TypeNumber   = "Number"
	TypeBoolean  = "Boolean"
	TypeDateTime = "DateTime"
)

// MapType maps a model type name onto the tag used by widgets.
func MapType(typeName string) string {
	switch typeName {
	case concerto.TypeString:
		return TypeText
	case concerto.TypeInteger, concerto.TypeLong, concerto.TypeDouble:
		return TypeNumber
	case concerto.TypeBoolean:
		return TypeBoolean
	case concerto.TypeDateTime:
		return TypeDateTime
	default:
		return typeName
	}
}

// InputType derives the HTML-style input mode for a mapped type tag.
func InputType(mapped string) string {
	switch mapped {
	case TypeNumber:
		return "number"
	case TypeDateTime:
		return "datetime-local"
	default:
		return "text"
	}
}

// Composite renders a class matched by Pattern as a single widget built from
// the listed fields.
type Composite struct {
	Pattern *regexp.Regexp
	Kind    ui.Kind
	Fields  []string
}

func (c Composite) matches(fqn string) bool {
	return c.Pattern != nil && c.Pattern.MatchString(fqn)
}

const versionSuffix = `(@[0-9A-Za-z.+\-]+)?`

// DefaultComposites covers the accordproject money, time and party types.
func DefaultComposites() []Composite {
	return []Composite{
		{
			Pattern: regexp.MustCompile(`^org\.accordproject\.money` + versionSuffix + `\.MonetaryAmount$`),
			Kind:    ui.KindMonetaryAmount,
			Fields:  []string{"doubleValue", "currencyCode"},
		},
		{
			Pattern: regexp.MustCompile(`^org\.accordproject\.time` + versionSuffix + `\.Duration$`),
			Kind:    ui.KindDuration,
			Fields:  []string{"amount", "unit"},
		},
		{
			Pattern: regexp.MustCompile(`^org\.accordproject\.party` + versionSuffix + `\.Party$`),
			Kind:    ui.KindParty,
			Fields:  []string{"partyId"},
		},
	}
}

// formEditor returns the second argument of the first @FormEditor decorator
// whose first argument is hint.
func formEditor(prop concerto.Property, hint string) (any, bool) {
	for _, decorator := range prop.Decorators() {
		if decorator.Name != FormEditorDecorator {
			continue
		}
		if name, _ := decorator.StringArgument(0); name == hint {
			return decorator.Argument(1), true
		}
	}
	return nil, false
}

func formEditorString(prop concerto.Property, hint string) string {
	value, _ := formEditor(prop, hint)
	s, _ := value.(string)
	return s
}

// hiddenByPolicy covers system properties and @FormEditor("hide", true).
func hiddenByPolicy(prop concerto.Property) bool {
	if strings.HasPrefix(prop.Name(), "$") {
		return true
	}
	value, ok := formEditor(prop, "hide")
	if !ok {
		return false
	}
	switch hide := value.(type) {
	case bool:
		return hide
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(hide))
		return err == nil && parsed
	default:
		return false
	}
}

func (c Context) isHidden(prop concerto.Property) bool {
	return hiddenByPolicy(prop) || c.Hidden(prop.FullyQualifiedName())
}
