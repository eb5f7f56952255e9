package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
)

// Action prefixes understood by Form.Apply. HTML renderers post them as the
// value of the "_action" submit button.
const (
	ActionSubmit = "submit"
	ActionAdd    = "add:"
	ActionRemove = "remove:"
)

// Form is an element tree bound to the document it edits. Every edit made
// through the tree callbacks lands in Document; structural edits need a
// Rebuild so the tree gains or loses the matching widgets.
type Form struct {
	Type     string
	Root     *ui.Element
	Document *document.Document

	build func() (*ui.Element, error)
}

// Rebuild re-runs the traversal against the current document and replaces
// Root.
func (f *Form) Rebuild() (*ui.Element, error) {
	root, err := f.build()
	if err != nil {
		return nil, err
	}
	f.Root = root
	return root, nil
}

// Apply runs a form action: "add:<key>" appends the default entry to the
// array bound to key, "remove:<key>" removes the array element bound to key,
// "submit" and "" do nothing. Structural actions rebuild the tree.
func (f *Form) Apply(action string) error {
	switch {
	case action == "" || action == ActionSubmit:
		return nil
	case strings.HasPrefix(action, ActionAdd):
		key := strings.TrimPrefix(action, ActionAdd)
		el := findKind(f.Root, key, ui.KindArray)
		if el == nil || el.Props.Add == nil {
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
		if err := el.Props.Add(); err != nil {
			return fmt.Errorf("orchestrator: add %s: %w", key, err)
		}
	case strings.HasPrefix(action, ActionRemove):
		key := strings.TrimPrefix(action, ActionRemove)
		el := findKind(f.Root, key, ui.KindArrayElement)
		if el == nil || el.Props.Remove == nil {
			return fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
		if err := el.Props.Remove(); err != nil {
			return fmt.Errorf("orchestrator: remove %s: %w", key, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	_, err := f.Rebuild()
	return err
}

// ApplyValues writes submitted form values into the document through the
// leaf callbacks. Values are keyed by element key; leaves without a submitted
// value keep their current value. The last value of a key wins, which lets a
// checked checkbox override its hidden "false" companion.
func (f *Form) ApplyValues(values map[string][]string) error {
	for _, leaf := range ui.Leaves(f.Root) {
		raw, ok := values[leaf.Key]
		if !ok || len(raw) == 0 || leaf.Props.OnChange == nil {
			continue
		}
		value, err := CoerceValue(leaf, raw[len(raw)-1])
		if err != nil {
			return &ValueError{Key: leaf.Key, Err: err}
		}
		if err := leaf.Props.OnChange(leaf.Key, value); err != nil {
			return fmt.Errorf("orchestrator: %s: %w", leaf.Key, err)
		}
	}
	return nil
}

// CoerceValue converts a submitted string into the JSON value the leaf
// stores: booleans for checkboxes, numbers for number inputs and RFC3339
// timestamps for datetime inputs. Empty optional values become null.
func CoerceValue(leaf *ui.Element, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case leaf.Kind == ui.KindCheckbox:
		if raw == "" {
			return false, nil
		}
		return strconv.ParseBool(raw)
	case leaf.Kind == ui.KindDateTime:
		if raw == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC().Format(time.RFC3339), nil
			}
		}
		return nil, fmt.Errorf("invalid datetime %q", raw)
	case leaf.Props.InputType == "number":
		if raw == "" {
			return nil, nil
		}
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func findKind(root *ui.Element, key string, kind ui.Kind) *ui.Element {
	var found *ui.Element
	ui.Walk(root, func(e *ui.Element) bool {
		if found == nil && e.Key == key && e.Kind == kind {
			found = e
		}
		return found == nil
	})
	return found
}
