package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-modelform/pkg/ui"
)

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides the string used when a key cannot be
// translated. args carries {"default": fallback} when a fallback exists.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

func missingTranslationDefault(_ string, key string, args []any, _ error) string {
	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}

// LocalizeTree translates element labels in place. Each element is looked up
// by the qualified name of the property it edits (Props.Field) and, for
// groups and composites, by the qualified type name (Props.Type). Labels keep
// their value when no translation exists.
func LocalizeTree(root *ui.Element, opts RenderOptions) {
	if root == nil || opts.Translator == nil {
		return
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	ui.Walk(root, func(el *ui.Element) bool {
		key := el.Props.Field
		if key == "" {
			key = el.Props.Type
		}
		if key != "" && el.Props.Label != "" {
			el.Props.Label = translate(opts.Locale, key, el.Props.Label, opts.Translator, onMissing)
		}
		if el.Props.Help != "" && el.Props.Field != "" {
			el.Props.Help = translate(opts.Locale, el.Props.Field+".help", el.Props.Help, opts.Translator, onMissing)
		}
		return true
	})
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	args := []any{map[string]any{"default": fallback}}
	if t == nil {
		return onMissing(locale, key, args, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, args, err)
}

// TemplateI18nFuncs returns template helpers for engines such as the pongo2
// adapter:
//
//	translate(locale, key, ...args) string
//	current_locale(locale) string
func TemplateI18nFuncs(t Translator, onMissing MissingTranslationHandler) map[string]any {
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return map[string]any{
		"translate": func(locale any, key string, args ...any) string {
			key = strings.TrimSpace(key)
			if key == "" {
				return ""
			}
			loc := localeString(locale)
			if t == nil {
				return onMissing(loc, key, args, ErrMissingTranslator)
			}
			msg, err := t.Translate(loc, key, args...)
			if err != nil || strings.TrimSpace(msg) == "" {
				return onMissing(loc, key, args, err)
			}
			return msg
		},
		"current_locale": localeString,
	}
}

func localeString(src any) string {
	switch v := src.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if locale, ok := v["locale"]; ok {
			return strings.TrimSpace(fmt.Sprint(locale))
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
