package tui

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

func (r *Renderer) serialize(value any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(value)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(value)), nil
	default:
		return json.Marshal(value)
	}
}

func flattenForm(value any) string {
	flattened := url.Values{}
	walkLeaves("", value, func(key string, leaf any) {
		flattened.Add(key, scalarString(leaf))
	})
	return flattened.Encode()
}

func prettyPrint(value any) string {
	var b strings.Builder
	walkLeaves("", value, func(key string, leaf any) {
		fmt.Fprintf(&b, "%s=%s\n", key, scalarString(leaf))
	})
	return b.String()
}

// walkLeaves visits scalar values in key order using the "a.b[0].c" key form.
func walkLeaves(prefix string, value any, fn func(key string, leaf any)) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			walkLeaves(next, v[key], fn)
		}
	case []any:
		for idx, item := range v {
			walkLeaves(fmt.Sprintf("%s[%d]", prefix, idx), item, fn)
		}
	default:
		if prefix != "" {
			fn(prefix, v)
		}
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
