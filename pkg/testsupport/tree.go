package testsupport

import (
	"testing"
	"time"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

// FixedNow is the clock used by FixtureVisitor.
var FixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// FixtureVisitor returns a visitor with a fixed clock and identifier source so
// generated defaults are deterministic.
func FixtureVisitor(options ...visitor.Option) *visitor.Visitor {
	base := []visitor.Option{
		visitor.WithClock(func() time.Time { return FixedNow }),
		visitor.WithIDGenerator(func() string { return "id-1" }),
	}
	return visitor.New(append(base, options...)...)
}

// OrderTree builds the element tree of the sales Order fixture bound to a
// fresh copy of order.json. configure may adjust the traversal parameters.
func OrderTree(t *testing.T, configure func(*visitor.Params)) *ui.Element {
	t.Helper()
	return ClassTree(t, "Order", LoadDocument(t, "order.json"), configure)
}

// ClassTree builds the element tree of a class of the sales namespace bound
// to doc.
func ClassTree(t *testing.T, name string, doc *document.Document, configure func(*visitor.Params)) *ui.Element {
	t.Helper()

	mm := LoadModelManager(t)
	params := visitor.Params{Models: mm, Document: doc}
	if configure != nil {
		configure(&params)
	}
	root, err := FixtureVisitor().Visit(MustClass(t, mm, SalesNamespace+"."+name), visitor.NewContext(params))
	if err != nil {
		t.Fatalf("visit %s: %v", name, err)
	}
	return root
}
