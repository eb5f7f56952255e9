package server

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-modelform/pkg/orchestrator"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/renderers/jsontree"
	"github.com/goliatone/go-modelform/pkg/renderers/tui"
	"github.com/goliatone/go-modelform/pkg/renderers/vanilla"
	"github.com/goliatone/go-modelform/pkg/testsupport"
)

const orderType = testsupport.SalesNamespace + ".Order"

type payload struct {
	Tree struct {
		Children []struct {
			Key    string   `json:"key"`
			Errors []string `json:"errors"`
		} `json:"children"`
	} `json:"tree"`
	Document     map[string]any       `json:"document"`
	HiddenFields []render.HiddenField `json:"hiddenFields"`
	FormErrors   []string             `json:"formErrors"`
}

func newOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	registry := render.NewRegistry()
	html, err := vanilla.New()
	require.NoError(t, err)
	terminal, err := tui.New()
	require.NoError(t, err)
	registry.MustRegister(html)
	registry.MustRegister(jsontree.New())
	registry.MustRegister(terminal)
	return orchestrator.New(
		orchestrator.WithModels(testsupport.LoadModelManager(t)),
		orchestrator.WithRegistry(registry),
	)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(newOrchestrator(t),
		WithLogger(log.New(io.Discard, "", 0)),
		WithAssets("/assets/vanilla", vanilla.AssetsFS()),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func orderJSON(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(testsupport.DocumentPath("order.json"))
	require.NoError(t, err)
	return string(data)
}

func decodePayload(t *testing.T, body io.Reader) payload {
	t.Helper()
	var out payload
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestServer_Types(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/types")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body typesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Types, orderType)
	assert.Equal(t, []string{"json", "vanilla"}, body.Renderers)
}

func TestServer_GetForm(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/Order?renderer=json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decodePayload(t, resp.Body)
	assert.Equal(t, orderType, body.Document["$class"])
	require.Len(t, body.HiddenFields, 1)
	assert.Equal(t, DocumentField, body.HiddenFields[0].Name)
	assert.NotEmpty(t, body.Tree.Children)
}

func TestServer_GetFormHTML(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/" + url.PathEscape(orderType))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), `name="_document"`)
	assert.Contains(t, string(html), `name="_action" value="submit"`)
}

func TestServer_GetFormErrors(t *testing.T) {
	_, ts := newTestServer(t)

	cases := map[string]int{
		"/forms/Missing":             http.StatusNotFound,
		"/forms/Order?renderer=tui":  http.StatusBadRequest,
		"/forms/Order?renderer=nope": http.StatusBadRequest,
	}
	for path, status := range cases {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, status, resp.StatusCode)
		})
	}
}

func TestServer_PostFormValuesAndAction(t *testing.T) {
	_, ts := newTestServer(t)

	form := url.Values{
		DocumentField:       {orderJSON(t)},
		ActionField:         {"add:tags"},
		"items[1].quantity": {"5"},
		"rush":              {"true", "false"},
	}
	resp, err := http.PostForm(ts.URL+"/forms/Order?renderer=json", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodePayload(t, resp.Body)
	items := body.Document["items"].([]any)
	assert.Equal(t, float64(5), items[1].(map[string]any)["quantity"])
	assert.Equal(t, false, body.Document["rush"])
	assert.Len(t, body.Document["tags"], 4)
}

func TestServer_PostFormSubmitReturnsDocument(t *testing.T) {
	_, ts := newTestServer(t)

	form := url.Values{
		DocumentField: {orderJSON(t)},
		ActionField:   {orchestrator.ActionSubmit},
		"orderId":     {"ord-9"},
	}
	resp, err := http.PostForm(ts.URL+"/forms/Order", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "ord-9", doc["orderId"])
	assert.Equal(t, "SIGNED", doc["status"])
}

func TestServer_PostFormInvalidValue(t *testing.T) {
	_, ts := newTestServer(t)

	form := url.Values{
		DocumentField:       {orderJSON(t)},
		"items[0].quantity": {"lots"},
	}
	resp, err := http.PostForm(ts.URL+"/forms/Order?renderer=json", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "invalid syntax")
}

func TestServer_PostFormBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	cases := map[string]url.Values{
		"bad document":   {DocumentField: {"{"}},
		"unknown action": {DocumentField: {orderJSON(t)}, ActionField: {"explode"}},
		"missing array":  {DocumentField: {orderJSON(t)}, ActionField: {"add:nothing"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.PostForm(ts.URL+"/forms/Order", form)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_PostJSON(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"action":"remove:tags[0]","document":` + orderJSON(t) + `}`
	resp, err := http.Post(ts.URL+"/forms/Order", "application/json; charset=utf-8", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	out := decodePayload(t, resp.Body)
	assert.Equal(t, []any{"fragile", "priority"}, out.Document["tags"])
}

func TestServer_MetricsAndSwap(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/Order?renderer=json")
	require.NoError(t, err)
	resp.Body.Close()

	srv.Swap(orchestrator.New())
	resp, err = http.Get(ts.URL + "/forms/Order?renderer=json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	metrics := string(raw)
	assert.Contains(t, metrics, `modelform_renders_total{outcome="ok",renderer="json"} 1`)
	assert.Contains(t, metrics, `modelform_renders_total{outcome="not_found",renderer="json"} 1`)
	assert.Contains(t, metrics, "modelform_render_duration_seconds_bucket")
}

func TestServer_Assets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/assets/vanilla/" + vanilla.StylesheetName)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}
