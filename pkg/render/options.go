package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
)

// RenderOptions carry per-request data renderers use without touching the
// element tree.
type RenderOptions struct {
	// Title is shown above the form.
	Title string
	// Action and Method describe the submission target of HTML forms.
	Action string
	Method string
	// Document is the JSON document the tree is bound to. Interactive
	// renderers emit it after editing.
	Document *document.Document
	// Rerender rebuilds the tree after a structural edit (adding or removing
	// an array element) so new entries get widgets.
	Rerender func() (*ui.Element, error)
	// Errors surfaces validation feedback keyed by element key.
	Errors map[string][]string
	// HiddenFields are emitted as hidden inputs (CSRF tokens, versions).
	HiddenFields map[string]string
	// Theme is the resolved go-theme renderer configuration, if any.
	Theme *theme.RendererConfig

	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
