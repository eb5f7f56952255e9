package visitor

import (
	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
)

// CheckboxToggle renders Boolean fields as toggles instead of checkboxes.
const CheckboxToggle = "toggle"

// Params configures one traversal. Callbacks receive lookup keys in the
// "a.b[0].c" form used by document.Document.
type Params struct {
	Document *document.Document
	Models   *concerto.ModelManager

	Disabled        bool
	TextOnly        bool
	HideIdentifiers bool
	CheckboxStyle   string

	// CustomSelectors maps the key named by @FormEditor("selectOptions", key)
	// to the options offered for that field.
	CustomSelectors map[string][]ui.Option

	IncludeOptionalFields bool
	IncludeSampleData     bool

	RelationshipProvider ui.RelationshipProvider

	AddElement         func(key string, value any) error
	RemoveElement      func(key string, index int) error
	OnFieldValueChange func(key string, value any) error
}

func (p *Params) generateOptions() concerto.GenerateOptions {
	mode := concerto.GenerateEmpty
	if p.IncludeSampleData {
		mode = concerto.GenerateSample
	}
	return concerto.GenerateOptions{
		IncludeOptionalFields: p.IncludeOptionalFields,
		Mode:                  mode,
	}
}
