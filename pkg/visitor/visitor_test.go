package visitor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/testsupport"
	"github.com/goliatone/go-modelform/pkg/ui"
	"github.com/goliatone/go-modelform/pkg/visitor"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newVisitor(options ...visitor.Option) *visitor.Visitor {
	base := []visitor.Option{
		visitor.WithClock(func() time.Time { return fixedNow }),
		visitor.WithIDGenerator(func() string { return "id-1" }),
	}
	return visitor.New(append(base, options...)...)
}

type fixture struct {
	models *concerto.ModelManager
	doc    *document.Document
}

func loadFixture(t *testing.T) fixture {
	t.Helper()
	return fixture{
		models: testsupport.LoadModelManager(t),
		doc:    testsupport.LoadDocument(t, "order.json"),
	}
}

func (f fixture) class(t *testing.T, name string) *concerto.ClassDeclaration {
	t.Helper()
	return testsupport.MustClass(t, f.models, testsupport.SalesNamespace+"."+name)
}

func (f fixture) params() visitor.Params {
	return visitor.Params{Document: f.doc, Models: f.models}
}

func childKeys(el *ui.Element) []string {
	var keys []string
	for _, child := range el.Children {
		keys = append(keys, child.Key)
	}
	return keys
}

func mustVisit(t *testing.T, v *visitor.Visitor, node concerto.Node, ctx visitor.Context) *ui.Element {
	t.Helper()
	el, err := v.Visit(node, ctx)
	if err != nil {
		t.Fatalf("visit %s: %v", node.FullyQualifiedName(), err)
	}
	if el == nil {
		t.Fatalf("visit %s returned nil", node.FullyQualifiedName())
	}
	return el
}

func TestVisit_OrderTopLevelFields(t *testing.T) {
	f := loadFixture(t)
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(f.params()))

	if root.Kind != ui.KindGroup {
		t.Fatalf("expected group, got %s", root.Kind)
	}
	want := []string{
		"orderId", "status", "placedAt", "rush", "total", "paymentTerms",
		"customer", "shippingAddress", "items", "tags", "related",
	}
	if diff := cmp.Diff(want, childKeys(root)); diff != "" {
		t.Fatalf("top level keys mismatch (-want +got):\n%s", diff)
	}

	kinds := map[string]ui.Kind{}
	for _, child := range root.Children {
		kinds[child.Key] = child.Kind
	}
	wantKinds := map[string]ui.Kind{
		"orderId":         ui.KindInput,
		"status":          ui.KindSelect,
		"placedAt":        ui.KindDateTime,
		"rush":            ui.KindCheckbox,
		"total":           ui.KindObject,
		"paymentTerms":    ui.KindObject,
		"customer":        ui.KindRelationship,
		"shippingAddress": ui.KindObject,
		"items":           ui.KindArray,
		"tags":            ui.KindArray,
		"related":         ui.KindArray,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_HiddenFieldsNeverRendered(t *testing.T) {
	f := loadFixture(t)
	params := f.params()
	params.HideIdentifiers = true
	ctx := visitor.NewContext(params)

	root := mustVisit(t, newVisitor(), f.class(t, "Order"), ctx)

	for _, key := range []string{"orderId", "internalNote"} {
		if el := ui.Find(root, key); el != nil {
			t.Fatalf("hidden field %q rendered as %s", key, el.Kind)
		}
	}
	if !ctx.Hidden(testsupport.SalesNamespace + ".Order.orderId") {
		t.Fatalf("identifier not recorded, hidden=%v", ctx.HiddenFields())
	}

	// The recorded identifier stays hidden for later visits in the same traversal.
	field, _ := f.class(t, "Order").Property("orderId")
	el, err := newVisitor().Visit(field, ctx)
	if err != nil || el != nil {
		t.Fatalf("expected hidden identifier to render nil, got %v, %v", el, err)
	}

	fresh, err := newVisitor().Visit(field, visitor.NewContext(f.params()))
	if err != nil || fresh == nil {
		t.Fatalf("identifier should render in a fresh traversal, got %v, %v", fresh, err)
	}
}

func TestVisit_EnumSelect(t *testing.T) {
	f := loadFixture(t)
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(f.params()))

	status := ui.Find(root, "status")
	if status == nil || status.Kind != ui.KindSelect {
		t.Fatalf("expected status select, got %#v", status)
	}
	if status.Props.Value != "SIGNED" {
		t.Fatalf("unexpected status value %#v", status.Props.Value)
	}
	want := []ui.Option{
		{Key: "DRAFT", Value: "DRAFT", Text: "DRAFT"},
		{Key: "SIGNED", Value: "SIGNED", Text: "SIGNED"},
		{Key: "CANCELLED", Value: "CANCELLED", Text: "CANCELLED"},
	}
	if diff := cmp.Diff(want, status.Props.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	enum, err := f.models.Type(testsupport.SalesNamespace + ".Status")
	if err != nil {
		t.Fatalf("resolve enum: %v", err)
	}
	ctx := visitor.NewContext(f.params()).WithPath(document.Root.Field("status"))
	direct := mustVisit(t, newVisitor(), enum, ctx)
	if direct.Key != "status" || direct.Props.Value != "SIGNED" || len(direct.Props.Options) != 3 {
		t.Fatalf("direct enum visit mismatch: %#v", direct)
	}
}

func TestVisit_ArrayFieldElements(t *testing.T) {
	f := loadFixture(t)

	type added struct {
		Key   string
		Value any
	}
	var adds []added
	var removes []string
	params := f.params()
	params.AddElement = func(key string, value any) error {
		adds = append(adds, added{Key: key, Value: value})
		return nil
	}
	params.RemoveElement = func(key string, index int) error {
		removes = append(removes, document.MustParseKey(key).Index(index).String())
		return nil
	}

	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(params))

	tags := ui.Find(root, "tags")
	if diff := cmp.Diff([]string{"tags[0]", "tags[1]", "tags[2]"}, childKeys(tags)); diff != "" {
		t.Fatalf("tags elements mismatch (-want +got):\n%s", diff)
	}
	for i, wrapper := range tags.Children {
		if wrapper.Kind != ui.KindArrayElement || wrapper.Props.Index != i {
			t.Fatalf("unexpected wrapper %d: %#v", i, wrapper)
		}
		if len(wrapper.Children) != 1 || wrapper.Children[0].Kind != ui.KindInput {
			t.Fatalf("wrapper %d should hold one input", i)
		}
		if !wrapper.Children[0].Props.SkipLabel {
			t.Fatalf("array entries should skip labels")
		}
	}
	if got := ui.Find(root, "tags[1]").Props.Value; got != "fragile" {
		t.Fatalf("unexpected tags[1] value %#v", got)
	}

	items := ui.Find(root, "items")
	if diff := cmp.Diff([]string{"items[0]", "items[1]"}, childKeys(items)); diff != "" {
		t.Fatalf("items elements mismatch (-want +got):\n%s", diff)
	}
	if el := ui.Find(root, "items[1].quantity"); el == nil || el.Props.Value != 1.0 {
		t.Fatalf("sibling key computation broken: %#v", el)
	}
	if el := ui.Find(root, "items[0].product"); el == nil || el.Kind != ui.KindRelationship {
		t.Fatalf("expected nested relationship picker, got %#v", el)
	}

	if err := tags.Props.Add(); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if err := items.Props.Add(); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := items.Children[1].Props.Remove(); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	wantAdds := []added{
		{Key: "tags", Value: ""},
		{Key: "items", Value: map[string]any{
			"$class":   testsupport.SalesNamespace + ".LineItem",
			"product":  "resource:" + testsupport.SalesNamespace + ".Product#id-1",
			"quantity": 0,
		}},
	}
	if diff := cmp.Diff(wantAdds, adds); diff != "" {
		t.Fatalf("add callbacks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"items[1]"}, removes); diff != "" {
		t.Fatalf("remove callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_ArrayRelationshipDefault(t *testing.T) {
	f := loadFixture(t)
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(f.params()))

	related := ui.Find(root, "related")
	if len(related.Children) != 1 || related.Children[0].Key != "related[0]" {
		t.Fatalf("unexpected related elements %v", childKeys(related))
	}
	picker := related.Children[0].Children[0]
	if picker.Kind != ui.KindRelationship || picker.Props.Value != "resource:"+testsupport.SalesNamespace+".Product#p-9" {
		t.Fatalf("unexpected picker %#v", picker.Props)
	}
	if picker.Props.RelationshipType != testsupport.SalesNamespace+".Product" {
		t.Fatalf("unexpected relationship type %q", picker.Props.RelationshipType)
	}

	value, err := related.Props.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if value != "resource:"+testsupport.SalesNamespace+".Product#id-1" {
		t.Fatalf("unexpected relationship default %#v", value)
	}
	if related.Props.Add != nil {
		t.Fatalf("add affordance should be absent without an AddElement callback")
	}
}

func TestVisit_MissingCustomSelector(t *testing.T) {
	f := loadFixture(t)
	ticket := f.class(t, "Ticket")

	el, err := newVisitor().Visit(ticket, visitor.NewContext(f.params()))
	if !errors.Is(err, visitor.ErrMissingCustomSelector) {
		t.Fatalf("expected ErrMissingCustomSelector, got %v", err)
	}
	if el != nil {
		t.Fatalf("expected no element, got %#v", el)
	}
	var selectorErr *visitor.SelectorError
	if !errors.As(err, &selectorErr) || selectorErr.Key != "priorities" {
		t.Fatalf("expected SelectorError for priorities, got %#v", err)
	}

	params := f.params()
	params.CustomSelectors = map[string][]ui.Option{
		"priorities": {ui.LiteralOption("low"), ui.LiteralOption("high")},
	}
	root := mustVisit(t, newVisitor(), ticket, visitor.NewContext(params))
	priority := ui.Find(root, "priority")
	if priority.Kind != ui.KindSelect || len(priority.Props.Options) != 2 {
		t.Fatalf("expected custom select, got %#v", priority)
	}
	if summary := ui.Find(root, "summary"); summary.Props.Help == "" {
		t.Fatalf("expected help text on summary")
	}
}

func TestVisit_AbstractClassRendersNil(t *testing.T) {
	f := loadFixture(t)
	el, err := newVisitor().Visit(f.class(t, "Address"), visitor.NewContext(f.params()))
	if err != nil || el != nil {
		t.Fatalf("expected nil for abstract class, got %#v, %v", el, err)
	}
}

func TestVisit_PolymorphicFieldUsesConcreteType(t *testing.T) {
	f := loadFixture(t)
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(f.params()))

	address := ui.Find(root, "shippingAddress")
	if address.Props.Type != testsupport.SalesNamespace+".PostalAddress" {
		t.Fatalf("expected concrete subclass, got %q", address.Props.Type)
	}
	inner := address.Children[0]
	want := []string{"shippingAddress.street", "shippingAddress.city", "shippingAddress.zip"}
	if diff := cmp.Diff(want, childKeys(inner)); diff != "" {
		t.Fatalf("address keys mismatch (-want +got):\n%s", diff)
	}
	if ui.Find(root, "shippingAddress.city").Props.Value != "Springfield" {
		t.Fatalf("address value not bound")
	}
	if ui.Find(root, "shippingAddress.zip").Props.Required {
		t.Fatalf("optional field marked required")
	}
}

func TestVisit_Composites(t *testing.T) {
	f := loadFixture(t)
	v := newVisitor()

	tests := []struct {
		fqn  string
		kind ui.Kind
		keys []string
	}{
		{testsupport.MoneyNamespace + ".MonetaryAmount", ui.KindMonetaryAmount, []string{"doubleValue", "currencyCode"}},
		{testsupport.TimeNamespace + ".Duration", ui.KindDuration, []string{"amount", "unit"}},
	}
	for _, tt := range tests {
		class := testsupport.MustClass(t, f.models, tt.fqn)
		el := mustVisit(t, v, class, visitor.NewContext(f.params()))
		if el.Kind != tt.kind {
			t.Fatalf("%s: expected %s, got %s", tt.fqn, tt.kind, el.Kind)
		}
		if diff := cmp.Diff(tt.keys, childKeys(el)); diff != "" {
			t.Fatalf("%s keys mismatch (-want +got):\n%s", tt.fqn, diff)
		}
		for _, child := range el.Children {
			if !child.Props.SkipLabel {
				t.Fatalf("%s: child %s should skip its label", tt.fqn, child.Key)
			}
		}
	}

	root := mustVisit(t, v, f.class(t, "Order"), visitor.NewContext(f.params()))
	terms := ui.Find(root, "paymentTerms")
	if terms.Props.Label != "Payment Terms (net)" {
		t.Fatalf("title decorator ignored: %q", terms.Props.Label)
	}
	if terms.Children[0].Kind != ui.KindDuration {
		t.Fatalf("expected duration composite, got %s", terms.Children[0].Kind)
	}
	if got := ui.Find(root, "total.currencyCode").Props.Value; got != "EUR" {
		t.Fatalf("unexpected currency %#v", got)
	}
	if ui.Find(root, "total.doubleValue").Props.Label == "" {
		t.Fatalf("composite children keep their label text for hosts that show it")
	}
}

func TestVisit_PartyComposite(t *testing.T) {
	file := concerto.NewModelFile("org.accordproject.party")
	party := concerto.NewClassDeclaration("Party", concerto.KindParticipant).IdentifiedBy("partyId")
	party.AddField("partyId", concerto.TypeString)
	file.MustAddDeclaration(party)
	mm, err := concerto.NewModelManagerFromFiles(file)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	doc := testsupport.MustDocument(t, map[string]any{"partyId": "acme"})

	shown := mustVisit(t, newVisitor(), party, visitor.NewContext(visitor.Params{Models: mm, Document: doc}))
	if shown.Kind != ui.KindParty || len(shown.Children) != 1 {
		t.Fatalf("expected party wrapper with one widget, got %s with %d", shown.Kind, len(shown.Children))
	}
	if shown.Children[0].Props.Value != "acme" || !shown.Children[0].Props.SkipLabel {
		t.Fatalf("unexpected party widget %#v", shown.Children[0].Props)
	}

	ctx := visitor.NewContext(visitor.Params{Models: mm, Document: doc, HideIdentifiers: true})
	hidden := mustVisit(t, newVisitor(), party, ctx)
	if hidden.Kind != ui.KindParty || len(hidden.Children) != 0 {
		t.Fatalf("hidden identifier rendered inside party wrapper: %s with %d", hidden.Kind, len(hidden.Children))
	}
	if !ctx.Hidden("org.accordproject.party.Party.partyId") {
		t.Fatalf("identifier not recorded, hidden=%v", ctx.HiddenFields())
	}
}

func TestVisit_CompositeDropsHiddenField(t *testing.T) {
	file := concerto.NewModelFile("org.accordproject.money")
	amount := concerto.NewClassDeclaration("MonetaryAmount", concerto.KindConcept)
	amount.AddField("doubleValue", concerto.TypeDouble)
	amount.AddField("currencyCode", concerto.TypeString).WithDecorator(visitor.FormEditorDecorator, "hide", true)
	file.MustAddDeclaration(amount)
	mm, err := concerto.NewModelManagerFromFiles(file)
	if err != nil {
		t.Fatalf("models: %v", err)
	}

	doc := testsupport.MustDocument(t, map[string]any{"doubleValue": 9.5, "currencyCode": "EUR"})
	el := mustVisit(t, newVisitor(), amount, visitor.NewContext(visitor.Params{Models: mm, Document: doc}))
	if el.Kind != ui.KindMonetaryAmount {
		t.Fatalf("expected monetary amount wrapper, got %s", el.Kind)
	}
	if diff := cmp.Diff([]string{"doubleValue"}, childKeys(el)); diff != "" {
		t.Fatalf("composite children mismatch (-want +got):\n%s", diff)
	}
}

func TestVisit_HideDecoratorValues(t *testing.T) {
	tests := []struct {
		arg  any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"false", false},
		{" TRUE ", true},
		{"maybe", false},
		{1, false},
	}
	for _, tt := range tests {
		file := concerto.NewModelFile("org.acme.hide")
		note := concerto.NewClassDeclaration("Note", concerto.KindConcept)
		note.AddField("body", concerto.TypeString).WithDecorator(visitor.FormEditorDecorator, "hide", tt.arg)
		file.MustAddDeclaration(note)
		mm, err := concerto.NewModelManagerFromFiles(file)
		if err != nil {
			t.Fatalf("models: %v", err)
		}

		doc := testsupport.MustDocument(t, map[string]any{"body": "hello"})
		el := mustVisit(t, newVisitor(), note, visitor.NewContext(visitor.Params{Models: mm, Document: doc}))
		if got := ui.Find(el, "body") == nil; got != tt.want {
			t.Errorf("hide %#v: expected hidden=%v, got %v", tt.arg, tt.want, got)
		}
	}
}

func TestContext_HiddenFieldsSorted(t *testing.T) {
	file := concerto.NewModelFile("org.acme.hidden")
	inner := concerto.NewClassDeclaration("Inner", concerto.KindAsset).IdentifiedBy("innerId")
	inner.AddField("innerId", concerto.TypeString)
	outer := concerto.NewClassDeclaration("Outer", concerto.KindAsset).IdentifiedBy("outerId")
	outer.AddField("outerId", concerto.TypeString)
	outer.AddField("inner", "Inner")
	file.MustAddDeclaration(inner)
	file.MustAddDeclaration(outer)
	mm, err := concerto.NewModelManagerFromFiles(file)
	if err != nil {
		t.Fatalf("models: %v", err)
	}

	doc := testsupport.MustDocument(t, map[string]any{
		"outerId": "o-1",
		"inner":   map[string]any{"innerId": "i-1"},
	})
	ctx := visitor.NewContext(visitor.Params{Models: mm, Document: doc, HideIdentifiers: true})
	mustVisit(t, newVisitor(), outer, ctx)

	want := []string{"org.acme.hidden.Inner.innerId", "org.acme.hidden.Outer.outerId"}
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(want, ctx.HiddenFields()); diff != "" {
			t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestVisit_ContextUnchangedByVisit(t *testing.T) {
	f := loadFixture(t)
	ctx := visitor.NewContext(f.params()).WithPath(document.Root.Field("items").Index(0))
	before := ctx.Key()

	lineItem := f.class(t, "LineItem")
	el := mustVisit(t, newVisitor(), lineItem, ctx)
	if ctx.Key() != before || ctx.Path().Depth() != 2 {
		t.Fatalf("context path changed: %q -> %q", before, ctx.Key())
	}
	if diff := cmp.Diff([]string{"items[0].product", "items[0].quantity"}, childKeys(el)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	// Errors leave the caller's context untouched too.
	ticketCtx := visitor.NewContext(f.params()).WithPath(document.Root.Field("ticket"))
	if _, err := newVisitor().Visit(f.class(t, "Ticket"), ticketCtx); err == nil {
		t.Fatalf("expected selector error")
	}
	if ticketCtx.Key() != "ticket" {
		t.Fatalf("context path changed after error: %q", ticketCtx.Key())
	}
}

type foreignNode struct{}

func (foreignNode) Name() string               { return "Foreign" }
func (foreignNode) FullyQualifiedName() string { return "org.other.Foreign" }

func TestVisit_UnrecognizedNode(t *testing.T) {
	v := newVisitor()
	_, err := v.Visit(foreignNode{}, visitor.NewContext(visitor.Params{}))
	if !errors.Is(err, visitor.ErrUnrecognizedNode) {
		t.Fatalf("expected ErrUnrecognizedNode, got %v", err)
	}
	var nodeErr *visitor.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.Name != "org.other.Foreign" {
		t.Fatalf("expected NodeError naming the node, got %#v", err)
	}

	if _, err := v.Visit(nil, visitor.NewContext(visitor.Params{})); !errors.Is(err, visitor.ErrUnrecognizedNode) {
		t.Fatalf("expected ErrUnrecognizedNode for nil, got %v", err)
	}
	var nilClass *concerto.ClassDeclaration
	if _, err := v.Visit(nilClass, visitor.NewContext(visitor.Params{})); !errors.Is(err, visitor.ErrUnrecognizedNode) {
		t.Fatalf("expected ErrUnrecognizedNode for typed nil, got %v", err)
	}
}

func TestVisit_RecursiveTypeFollowsDocument(t *testing.T) {
	f := loadFixture(t)
	category := f.class(t, "Category")

	doc := testsupport.MustDocument(t, map[string]any{
		"label":  "leaf",
		"parent": map[string]any{"label": "middle", "parent": map[string]any{"label": "root"}},
	})
	params := visitor.Params{Models: f.models, Document: doc}
	root := mustVisit(t, newVisitor(), category, visitor.NewContext(params))

	if el := ui.Find(root, "parent.parent.label"); el == nil || el.Props.Value != "root" {
		t.Fatalf("expected nested category bound to document, got %#v", el)
	}
	if ui.Find(root, "parent.parent.parent") != nil {
		t.Fatalf("recursion should stop where the document ends")
	}

	_, err := newVisitor(visitor.WithMaxDepth(2)).Visit(category, visitor.NewContext(params))
	if !errors.Is(err, visitor.ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
}

func TestVisit_FlagsAndCallbacks(t *testing.T) {
	f := loadFixture(t)

	var changes []string
	params := f.params()
	params.CheckboxStyle = visitor.CheckboxToggle
	params.OnFieldValueChange = func(key string, value any) error {
		changes = append(changes, key)
		return nil
	}
	params.AddElement = func(string, any) error { return nil }
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(params))

	rush := ui.Find(root, "rush")
	if !rush.Props.Toggle || rush.Props.Value != true {
		t.Fatalf("unexpected rush props %#v", rush.Props)
	}
	if err := rush.Props.OnChange(rush.Key, false); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if diff := cmp.Diff([]string{"rush"}, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	if ui.Find(root, "items[0].quantity").Props.InputType != "number" {
		t.Fatalf("numeric fields should use number inputs")
	}

	params.Disabled = true
	params.TextOnly = true
	disabled := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(params))
	ui.Walk(disabled, func(el *ui.Element) bool {
		if el.Props.OnChange != nil || el.Props.Add != nil || el.Props.Remove != nil {
			t.Fatalf("disabled form exposes callbacks at %s", el.Key)
		}
		if el.IsLeaf() && (!el.Props.ReadOnly || !el.Props.TextOnly) {
			t.Fatalf("disabled leaf %s not read-only", el.Key)
		}
		return true
	})
}

func TestVisit_RelationshipProvider(t *testing.T) {
	f := loadFixture(t)
	params := f.params()
	params.RelationshipProvider = ui.StaticRelationships{
		testsupport.SalesNamespace + ".Customer": {ui.LiteralOption("c-1"), ui.LiteralOption("c-2")},
	}
	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(params))

	customer := ui.Find(root, "customer")
	if len(customer.Props.Options) != 2 || customer.Props.Provider == nil {
		t.Fatalf("provider options not attached: %#v", customer.Props)
	}
	if customer.Props.Value != "resource:"+testsupport.SalesNamespace+".Customer#c-1" {
		t.Fatalf("unexpected customer reference %#v", customer.Props.Value)
	}
}

func TestVisit_SampleDefaults(t *testing.T) {
	f := loadFixture(t)
	params := visitor.Params{Models: f.models, IncludeSampleData: true}
	doc := testsupport.MustDocument(t, map[string]any{"tags": []any{}, "placedAt": nil})
	params.Document = doc

	root := mustVisit(t, newVisitor(), f.class(t, "Order"), visitor.NewContext(params))
	tags := ui.Find(root, "tags")
	if len(tags.Children) != 0 {
		t.Fatalf("expected empty tags container")
	}
	value, err := tags.Props.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if value != "tags" {
		t.Fatalf("unexpected sample default %#v", value)
	}
	if ui.Find(root, "placedAt").Props.Value != nil {
		t.Fatalf("null values should read as absent")
	}
}

func TestMapType(t *testing.T) {
	tests := map[string]string{
		concerto.TypeString:   visitor.TypeText,
		concerto.TypeInteger:  visitor.TypeNumber,
		concerto.TypeLong:     visitor.TypeNumber,
		concerto.TypeDouble:   visitor.TypeNumber,
		concerto.TypeBoolean:  visitor.TypeBoolean,
		concerto.TypeDateTime: visitor.TypeDateTime,
		"Status":              "Status",
	}
	for in, want := range tests {
		if got := visitor.MapType(in); got != want {
			t.Fatalf("MapType(%q) = %q, want %q", in, got, want)
		}
	}
}
