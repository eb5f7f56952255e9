package concerto

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Label converts an identifier such as "doubleValue" or "currency_code" into
// a display label ("Double Value", "Currency Code").
func Label(name string) string {
	trimmed := strings.TrimSpace(strings.TrimLeft(name, "$"))
	if trimmed == "" {
		return ""
	}
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(inflect.Underscore(trimmed)))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
