package render

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
)

var (
	ErrUnknownRenderer   = errors.New("render: renderer not found")
	ErrDuplicateRenderer = errors.New("render: renderer already registered")
	ErrMissingTranslator = errors.New("render: translator not configured")
)

// ErrorMapping splits a validation payload into element-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates message lists, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps validation errors keyed by JSON pointers ("/items/0/
// quantity"), JSONPath ("$.items[0].quantity") or element keys onto the keys
// of root. Paths that match no element, or only a prefix of one, fall back to
// the closest enclosing element; unknown paths become form-level errors.
func MapErrorPayload(root *ui.Element, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}

	keys := make(map[string]struct{})
	ui.Walk(root, func(el *ui.Element) bool {
		if el.Key != "" {
			keys[el.Key] = struct{}{}
		}
		return true
	})

	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		key, ok := matchErrorKey(raw, keys)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[key] = append(mapping.Fields[key], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func matchErrorKey(raw string, keys map[string]struct{}) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	path := errorPath(raw)
	for p := path; p.Depth() > 0; p = p.Parent() {
		if _, ok := keys[p.String()]; ok {
			return p.String(), true
		}
	}
	return "", false
}

// errorPath normalises the accepted path spellings into a document.Path.
func errorPath(raw string) document.Path {
	clean := strings.TrimSpace(raw)
	for _, prefix := range []string{"#/", "$.", "$/", "#", "$", "/"} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.NewReplacer("[", "/", "]", "", ".", "/").Replace(clean)

	p := document.Root
	for _, part := range strings.Split(clean, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if idx, err := strconv.Atoi(part); err == nil && idx >= 0 {
			p = p.Index(idx)
			continue
		}
		p = p.Field(part)
	}
	return p
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
