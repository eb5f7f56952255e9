package openapi_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/concerto/openapi"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/testsupport"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

const shopNamespace = "org.acme.api@1.0.0"

func loadShop(t *testing.T) *concerto.ModelManager {
	t.Helper()
	file, err := openapi.LoadFS(context.Background(), os.DirFS("testdata"), "shop.yaml", shopNamespace)
	if err != nil {
		t.Fatalf("load shop: %v", err)
	}
	mm, err := concerto.NewModelManagerFromFiles(file)
	if err != nil {
		t.Fatalf("model manager: %v", err)
	}
	return mm
}

func TestLoad_Declarations(t *testing.T) {
	mm := loadShop(t)

	var names []string
	for _, decl := range mm.Declarations() {
		names = append(names, decl.Name())
	}
	want := []string{"Base", "Customer", "Order", "OrderPriority", "OrderShipping", "Status"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("declarations mismatch (-want +got):\n%s", diff)
	}

	base := testsupport.MustClass(t, mm, shopNamespace+".Base")
	if !base.IsAbstract() {
		t.Fatalf("expected Base to be abstract")
	}
	customer := testsupport.MustClass(t, mm, shopNamespace+".Customer")
	if customer.Kind() != concerto.KindAsset || customer.IdentifierFieldName() != "customerId" {
		t.Fatalf("unexpected customer kind %s identified by %q", customer.Kind(), customer.IdentifierFieldName())
	}
	order := testsupport.MustClass(t, mm, shopNamespace+".Order")
	if got := order.SuperType(); got != shopNamespace+".Base" {
		t.Fatalf("unexpected super type %q", got)
	}
	if order.Kind() != concerto.KindAsset {
		t.Fatalf("expected Order to be an asset, got %s", order.Kind())
	}
}

func TestLoad_PropertyMapping(t *testing.T) {
	mm := loadShop(t)
	order := testsupport.MustClass(t, mm, shopNamespace+".Order")

	type row struct {
		Name     string
		Type     string
		Array    bool
		Optional bool
	}
	var got []row
	for _, prop := range order.Properties() {
		got = append(got, row{prop.Name(), prop.TypeName(), prop.IsArray(), prop.IsOptional()})
	}
	want := []row{
		{"note", concerto.TypeString, false, true},
		{"customer", "Customer", false, false},
		{"orderId", concerto.TypeString, false, false},
		{"placedAt", concerto.TypeDateTime, false, true},
		{"priority", "OrderPriority", false, true},
		{"quantity", concerto.TypeLong, false, true},
		{"rush", concerto.TypeBoolean, false, true},
		{"secret", concerto.TypeString, false, true},
		{"shipping", "OrderShipping", false, true},
		{"status", "Status", false, false},
		{"tags", concerto.TypeString, true, true},
		{"total", concerto.TypeDouble, false, true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("properties mismatch (-want +got):\n%s", diff)
	}

	customer, _ := order.Property("customer")
	if _, ok := customer.(*concerto.Relationship); !ok {
		t.Fatalf("expected customer to be a relationship, got %T", customer)
	}
	rush, _ := order.Property("rush")
	if value, ok := rush.(*concerto.Field).Default(); !ok || value != false {
		t.Fatalf("expected rush default false, got %v (%v)", value, ok)
	}
	total, _ := order.Property("total")
	decorator, ok := total.Decorator("FormEditor")
	if !ok || decorator.Argument(1) != "Gross amount" {
		t.Fatalf("expected description as help, got %#v", decorator)
	}
}

func TestLoad_VisitGeneratedOrder(t *testing.T) {
	mm := loadShop(t)
	instance, err := concerto.NewFactory(mm, concerto.WithIDGenerator(func() string { return "o-1" })).
		NewResource(shopNamespace, "Order", "", concerto.GenerateOptions{})
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	doc, err := document.FromValue(instance)
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	root, err := testsupport.FixtureVisitor().Visit(
		testsupport.MustClass(t, mm, shopNamespace+".Order"),
		visitor.NewContext(visitor.Params{Models: mm, Document: doc}),
	)
	if err != nil {
		t.Fatalf("visit: %v", err)
	}

	kinds := map[string]ui.Kind{}
	var keys []string
	for _, child := range root.Children {
		keys = append(keys, child.Key)
		kinds[child.Key] = child.Kind
	}
	wantKeys := []string{
		"note", "customer", "orderId", "placedAt", "priority", "quantity",
		"rush", "shipping", "status", "tags", "total",
	}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	wantKinds := map[string]ui.Kind{
		"customer": ui.KindRelationship,
		"placedAt": ui.KindDateTime,
		"priority": ui.KindSelect,
		"rush":     ui.KindCheckbox,
		"shipping": ui.KindObject,
		"status":   ui.KindSelect,
		"tags":     ui.KindArray,
	}
	for key, want := range wantKinds {
		if kinds[key] != want {
			t.Errorf("%s: expected %s, got %s", key, want, kinds[key])
		}
	}
	if got, _ := doc.StringAt("orderId"); got != "o-1" {
		t.Fatalf("expected generated identifier, got %q", got)
	}
}

func TestConvert_Errors(t *testing.T) {
	if _, err := openapi.Convert(nil, shopNamespace); !errors.Is(err, openapi.ErrNoSchemas) {
		t.Fatalf("expected ErrNoSchemas, got %v", err)
	}

	spec := &openapi3.T{Components: &openapi3.Components{Schemas: openapi3.Schemas{
		"Flag": openapi3.NewBoolSchema().NewRef(),
	}}}
	if _, err := openapi.Convert(spec, shopNamespace); err == nil {
		t.Fatalf("expected unsupported schema error")
	}
	if _, err := openapi.Convert(spec, " "); err == nil {
		t.Fatalf("expected namespace error")
	}
}

func TestLoad_InvalidDocument(t *testing.T) {
	if _, err := openapi.Load(context.Background(), []byte("openapi: [broken"), shopNamespace); err == nil {
		t.Fatalf("expected load error")
	}
}
