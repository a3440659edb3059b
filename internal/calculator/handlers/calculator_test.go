package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"refloor/internal/calculator/models"
	"refloor/internal/calculator/repository"
	"refloor/internal/calculator/service"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const eps = 1e-6

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	log := zaptest.NewLogger(t)
	sessions := service.NewSessionManager(repository.NewMemory(), log, nil)

	app := fiber.New()
	app.Get("/health/ready", ReadinessProbe(sessions))
	Register(app.Group("/api/v1"), NewCalculatorHandler(sessions, log))
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, data := call(t, app, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, status)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.InDelta(t, 18000.0, resp.View.Result.TotalPrice, eps)
	return resp.SessionID
}

func decodeView(t *testing.T, data []byte) models.View {
	t.Helper()
	var view models.View
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

func TestCatalog(t *testing.T) {
	app := newApp(t)

	status, data := call(t, app, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, status)

	var resp catalogResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Len(t, resp.Materials, 3)
	assert.Len(t, resp.LayingMethods, 3)
}

func TestSessionFlow(t *testing.T) {
	app := newApp(t)
	id := createSession(t, app)
	base := "/api/v1/sessions/" + id

	status, data := call(t, app, http.MethodPut, base+"/room", `{"width":"5","length":-2}`)
	require.Equal(t, http.StatusOK, status)
	view := decodeView(t, data)
	assert.Equal(t, models.Room{Width: 5, Length: 2}, view.Room)

	status, data = call(t, app, http.MethodPost, base+"/segments", `{"type":"add"}`)
	require.Equal(t, http.StatusCreated, status)
	var added segmentResponse
	require.NoError(t, json.Unmarshal(data, &added))
	require.NotEmpty(t, added.SegmentID)

	status, data = call(t, app, http.MethodPatch, base+"/segments/"+added.SegmentID, `{"dimension":"width","value":2}`)
	require.Equal(t, http.StatusOK, status)
	status, data = call(t, app, http.MethodPatch, base+"/segments/"+added.SegmentID, `{"dimension":"length","value":"1.5"}`)
	require.Equal(t, http.StatusOK, status)
	view = decodeView(t, data)
	assert.InDelta(t, 13.0, view.Result.BaseArea, eps)

	status, data = call(t, app, http.MethodPut, base+"/material", `{"materialType":"quartz-parquet"}`)
	require.Equal(t, http.StatusOK, status)
	status, data = call(t, app, http.MethodPut, base+"/laying", `{"layingMethod":"diagonal"}`)
	require.Equal(t, http.StatusOK, status)
	view = decodeView(t, data)
	assert.Equal(t, "quartz-parquet", view.Material)
	assert.Equal(t, "diagonal", view.LayingMethod)
	assert.InDelta(t, 1.3, view.Result.WasteArea, eps)

	status, data = call(t, app, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, view.Result, decodeView(t, data).Result)

	status, data = call(t, app, http.MethodDelete, base+"/segments/"+added.SegmentID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeView(t, data).Segments)

	status, data = call(t, app, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, status)
	view = decodeView(t, data)
	assert.Equal(t, models.Room{Width: 3, Length: 4}, view.Room)
	assert.Equal(t, "pvc", view.Material)
}

func TestSubtractWarning(t *testing.T) {
	app := newApp(t)
	base := "/api/v1/sessions/" + createSession(t, app)

	_, data := call(t, app, http.MethodPost, base+"/segments", `{"type":"subtract"}`)
	var added segmentResponse
	require.NoError(t, json.Unmarshal(data, &added))

	call(t, app, http.MethodPatch, base+"/segments/"+added.SegmentID, `{"dimension":"width","value":5}`)
	status, data := call(t, app, http.MethodPatch, base+"/segments/"+added.SegmentID, `{"dimension":"length","value":5}`)
	require.Equal(t, http.StatusOK, status)

	view := decodeView(t, data)
	assert.Equal(t, service.WarningSubtractTooLarge, view.Warning)
	require.Len(t, view.Segments, 1)
	assert.Equal(t, 0.0, view.Segments[0].Width)
	assert.InDelta(t, 12.0, view.Result.BaseArea, eps)
}

func TestErrors(t *testing.T) {
	app := newApp(t)
	base := "/api/v1/sessions/" + createSession(t, app)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad session", http.MethodGet, "/api/v1/sessions/not-a-uuid", "", http.StatusBadRequest},
		{"empty room body", http.MethodPut, base + "/room", "", http.StatusBadRequest},
		{"no room fields", http.MethodPut, base + "/room", `{}`, http.StatusBadRequest},
		{"broken json", http.MethodPut, base + "/room", `{"width":`, http.StatusBadRequest},
		{"bad kind", http.MethodPost, base + "/segments", `{"type":"multiply"}`, http.StatusBadRequest},
		{"missing segment", http.MethodPatch, base + "/segments/nope", `{"dimension":"width","value":1}`, http.StatusNotFound},
		{"bad dimension", http.MethodPatch, base + "/segments/nope", `{"dimension":"depth","value":1}`, http.StatusBadRequest},
		{"remove missing", http.MethodDelete, base + "/segments/nope", "", http.StatusNotFound},
		{"bad material", http.MethodPut, base + "/material", `{"materialType":"carpet"}`, http.StatusBadRequest},
		{"bad laying", http.MethodPut, base + "/laying", `{"layingMethod":"spiral"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, data := call(t, app, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, status, string(data))

			var body map[string]string
			require.NoError(t, json.Unmarshal(data, &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

type failingChecker struct{}

func (failingChecker) Ready(context.Context) error { return errors.New("db locked") }

func TestReadinessProbe(t *testing.T) {
	app := newApp(t)
	status, _ := call(t, app, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, status)

	failing := fiber.New()
	failing.Get("/health/ready", ReadinessProbe(failingChecker{}))
	status, data := call(t, failing, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(data), "db locked")
}
