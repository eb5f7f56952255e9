package render

import (
	"strings"

	"github.com/goliatone/go-modelform/pkg/ui"
)

// Subset returns a copy of root restricted to the elements whose key equals
// one of keys or lies beneath it. Ancestors of kept elements are retained so
// the tree stays well formed. An empty key list returns root unchanged.
func Subset(root *ui.Element, keys ...string) *ui.Element {
	var wanted []string
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			wanted = append(wanted, trimmed)
		}
	}
	if root == nil || len(wanted) == 0 {
		return root
	}
	pruned, _ := prune(root, wanted)
	return pruned
}

func prune(el *ui.Element, keys []string) (*ui.Element, bool) {
	if el.Key != "" && selected(el.Key, keys) {
		return el, true
	}
	clone := *el
	clone.Children = nil
	for _, child := range el.Children {
		if kept, ok := prune(child, keys); ok {
			clone.Children = append(clone.Children, kept)
		}
	}
	return &clone, len(clone.Children) > 0
}

func selected(key string, keys []string) bool {
	for _, want := range keys {
		if key == want || strings.HasPrefix(key, want+".") || strings.HasPrefix(key, want+"[") {
			return true
		}
	}
	return false
}
