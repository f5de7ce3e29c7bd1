package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/qrgen/internal/files"
	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/scan"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	store, err := files.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	srv, err := NewServer(Options{
		Store:    files.Instrument(store, m),
		Renderer: render.New(render.Options{DefaultSize: 256, MaxSize: 1024, Metrics: m}),
		Metrics:  m,
		Gatherer: reg,
		Location: time.UTC,
	})
	require.NoError(t, err)
	return srv, srv.Router()
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case []byte:
		rd = bytes.NewReader(b)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndTime(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = do(t, h, "GET", "/time", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	_, err := time.Parse(time.RFC3339, body["time"])
	assert.NoError(t, err)
}

func TestPayloadEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	cases := []struct {
		body string
		want string
	}{
		{`{"type":"url","content":{"url":"https://example.com"}}`, "https://example.com"},
		{`{"type":"phone-call","content":{"phone":"+1-555-0100"}}`, "tel:+1-555-0100"},
		{`{"type":"wifi","content":{"ssid":"Home","password":"secret1","security":"WPA"}}`, "WIFI:T:WPA;S:Home;P:secret1;H:false;;"},
		{`{"type":"location","content":{"latitude":37.7749,"longitude":-122.4194}}`, "geo:37.7749,-122.4194"},
		{`{"type":"email","content":{"to":"a@b.c","subject":"Hi there","body":"x"}}`, "mailto:a@b.c?subject=Hi%20there&body=x"},
		{`{"type":"calendar","content":{"eventTitle":"Launch","startDate":"2025-06-01T09:00"}}`, "DTSTART:20250601T090000Z"},
	}
	for _, tc := range cases {
		rec := do(t, h, "POST", "/payload", "", tc.body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, decode[map[string]string](t, rec)["payload"], tc.want)
	}

	rec := do(t, h, "POST", "/payload", "", `{"type":"fax","content":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "unknown type")

	rec = do(t, h, "POST", "/payload", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderEndpoint(t *testing.T) {
	srv, h := newTestServer(t)
	body := map[string]any{
		"type":     "url",
		"content":  map[string]string{"url": "https://example.com/render"},
		"filename": "My Menu",
	}

	rec := do(t, h, "POST", "/render", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="My-Menu.png"`, rec.Header().Get("Content-Disposition"))
	text, err := scan.Bytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/render", text)
	assert.Equal(t, 1, srv.images.Len())

	again := do(t, h, "POST", "/render", "", body)
	assert.Equal(t, rec.Body.Bytes(), again.Body.Bytes())
	assert.Equal(t, 1, srv.images.Len())

	rec = do(t, h, "POST", "/render?format=svg", "", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))

	rec = do(t, h, "POST", "/render?format=gif", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/render", "", map[string]any{"type": "url", "content": map[string]string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, "POST", "/render", "", map[string]any{"payload": "x", "designSettings": map[string]any{"size": 99999}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, "POST", "/render", "", map[string]any{"payload": strings.Repeat("A", 5000)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	srv, h := newTestServer(t)

	rec := do(t, h, "POST", "/preview", "", `{"payload":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/preview?session=s1", "", `{"type":"sms","content":{"number":"+1","message":"hi"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	text, err := scan.Bytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "sms:+1?body=hi", text)

	slot, ok := srv.slots.Get("s1")
	require.True(t, ok)
	latest, seq := slot.Latest()
	assert.Equal(t, rec.Body.Bytes(), latest)
	assert.Equal(t, uint64(1), seq)
}

func TestPreviewSupersededMapsToConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, render.ErrSuperseded)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	writeError(rec, context.Canceled)
	assert.Equal(t, 499, rec.Code)
}

func TestScanEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	img := do(t, h, "POST", "/render", "", `{"type":"wifi","content":{"ssid":"Cafe","password":"latte","security":"WPA"}}`)
	require.Equal(t, http.StatusOK, img.Code)

	rec := do(t, h, "POST", "/scan", "", img.Body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WIFI:T:WPA;S:Cafe;P:latte;H:false;;", resp.Payload)
	assert.EqualValues(t, "wifi", resp.Type)
	require.NotNil(t, resp.Content)
	assert.Equal(t, "Cafe", resp.Content.SSID)

	rec = do(t, h, "POST", "/scan", "", []byte("garbage"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCodesLifecycle(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, "POST", "/codes", "", `{"name":"x","type":"url","content":{"url":"https://e.com"}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, "POST", "/codes", "u1", map[string]any{
		"name":    "Menu",
		"type":    "url",
		"content": map[string]string{"url": "https://example.com/menu"},
		"designSettings": map[string]any{
			"foregroundColor": "#112233", "backgroundColor": "#ffffff", "size": 300,
		},
		"isDynamic":    true,
		"passwordHash": "opaque",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[codeView](t, rec)
	assert.True(t, strings.HasPrefix(created.ID, "qr--"))
	assert.Equal(t, "https://example.com/menu", created.Payload)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.ShortURL)
	assert.NotContains(t, rec.Body.String(), "opaque")
	assert.JSONEq(t, `{"url":"https://example.com/menu"}`, string(created.Content))

	rec = do(t, h, "POST", "/codes", "u1", map[string]any{
		"name": "Call us", "type": "phone", "content": map[string]string{"phone": "+1-555-0100"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	call := decode[codeView](t, rec)

	rec = do(t, h, "POST", "/codes", "u1", map[string]any{"name": "", "type": "url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, "POST", "/codes", "u1", map[string]any{"name": "x", "type": "fax"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decode[[]codeView](t, do(t, h, "GET", "/codes", "u1", nil))
	require.Len(t, list, 2)
	assert.Equal(t, call.ID, list[0].ID)

	list = decode[[]codeView](t, do(t, h, "GET", "/codes?type=url", "u1", nil))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	list = decode[[]codeView](t, do(t, h, "GET", "/codes?q=CALL", "u1", nil))
	require.Len(t, list, 1)
	assert.Equal(t, call.ID, list[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/codes?type=fax", "u1", nil).Code)
	assert.Empty(t, decode[[]codeView](t, do(t, h, "GET", "/codes", "u2", nil)))

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/codes/"+created.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/codes/qr--missing", "u1", nil).Code)

	rec = do(t, h, "POST", "/codes/"+created.ID+"/toggle", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[codeView](t, rec).IsActive)

	list = decode[[]codeView](t, do(t, h, "GET", "/codes?active=true", "u1", nil))
	require.Len(t, list, 1)
	assert.Equal(t, call.ID, list[0].ID)

	rec = do(t, h, "PUT", "/codes/"+created.ID, "u1", map[string]any{
		"name": "Dinner menu", "type": "url", "content": map[string]string{"url": "https://example.com/dinner"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[codeView](t, rec)
	assert.Equal(t, "Dinner menu", updated.Name)
	assert.Equal(t, "https://example.com/dinner", updated.Payload)
	assert.False(t, updated.IsActive)
	assert.Equal(t, created.ShortURL, updated.ShortURL)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	rec = do(t, h, "GET", "/codes/"+created.ID+"/image?format=png", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Dinner-menu.png"`, rec.Header().Get("Content-Disposition"))
	text, err := scan.Bytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dinner", text)

	rec = do(t, h, "GET", "/codes/"+created.ID+"/image?format=svg&filename=print", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="print.svg"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), `fill="#112233"`)

	rec = do(t, h, "GET", "/export", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[exportDocument](t, rec)
	assert.Equal(t, "u1", doc.UserID)
	require.Len(t, doc.Codes, 2)
	assert.Equal(t, call.ID, doc.Codes[0].ID)

	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/codes/"+created.ID, "u2", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/codes/"+created.ID, "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/codes/"+created.ID, "u1", nil).Code)
}

func TestCodesStoreCalendarTimesWithZone(t *testing.T) {
	srv, h := newTestServer(t)
	srv.loc = time.FixedZone("CEST", 2*3600)

	rec := do(t, h, "POST", "/codes", "u1", map[string]any{
		"name": "Launch", "type": "calendar",
		"content": map[string]string{"eventTitle": "Launch", "startDate": "2025-06-01T09:00"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[codeView](t, rec)
	assert.JSONEq(t, `{"eventTitle":"Launch","startDate":"2025-06-01T09:00:00+02:00"}`, string(created.Content))
	assert.Contains(t, created.Payload, "DTSTART:20250601T070000Z\n")

	srv.loc = time.UTC
	got := decode[codeView](t, do(t, h, "GET", "/codes/"+created.ID, "u1", nil))
	assert.Equal(t, created.Payload, got.Payload)

	rec = do(t, h, "PUT", "/codes/"+created.ID, "u1", map[string]any{
		"name": "Launch", "type": "calendar",
		"content": map[string]string{"eventTitle": "Launch", "startDate": "2025-06-01T09:00"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[codeView](t, rec).Payload, "DTSTART:20250601T090000Z\n")
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, "POST", "/payload", "", `{"type":"url","content":{"url":"https://example.com"}}`)

	rec := do(t, h, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `qrgen_payload_encoded_total{kind="url"} 1`)
}
