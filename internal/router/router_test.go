package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etbur/eschool-portal/internal/apiclient"
	"github.com/etbur/eschool-portal/internal/auth"
	"github.com/etbur/eschool-portal/internal/handler"
	"github.com/etbur/eschool-portal/internal/metrics"
	"github.com/etbur/eschool-portal/internal/middleware"
	"github.com/etbur/eschool-portal/internal/teacher"
	"github.com/etbur/eschool-portal/pkg/config"
	"github.com/etbur/eschool-portal/pkg/jobs"
	"github.com/etbur/eschool-portal/pkg/storage"
)

// schoolAPI is a canned school REST API keyed by path.
type schoolAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	paths map[string]string
}

func newSchoolAPI() *schoolAPI {
	return &schoolAPI{
		hits: map[string]int{},
		paths: map[string]string{
			"GET /teacher-self/my_profile/":                   `{"id":7,"first_name":"Hana","last_name":"Tesfaye"}`,
			"GET /teacher-self/my_subjects/":                  `[{"id":1,"name":"Mathematics"}]`,
			"GET /teacher-self/my_classes/":                   `[{"id":2,"name":"Grade 9A"}]`,
			"GET /teacher-self/grade_management/":             `{"grades":[{"id":5,"student":3,"subject":1,"grade_type":"quiz","score":8,"full_mark":10}],"statistics":{"average_score":8}}`,
			"POST /teacher-self/grade_management/":            `{"id":6,"student":3,"subject":1,"section":2,"grade_type":"final","score":70,"full_mark":100}`,
			"GET /teacher-self/attendance_management/":        `{"attendance_records":[]}`,
			"GET /teacher-self/attendance_management/export/": "date,status\n",
			"GET /teacher-utils/available_subjects/":          `[{"id":1,"name":"Mathematics"}]`,
			"GET /teacher-utils/available_sections/":          `[]`,
			"GET /teacher-utils/grade_types/":                 `[{"value":"quiz","label":"Quiz"}]`,
		},
	}
}

func (s *schoolAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	s.mu.Lock()
	s.hits[key]++
	body, ok := s.paths[key]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found."}`))
		return
	}
	_, _ = w.Write([]byte(body))
}

func (s *schoolAPI) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

type gateway struct {
	engine  *gin.Engine
	runtime *teacher.Runtime
	manager *auth.Manager
	api     *schoolAPI
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := newSchoolAPI()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	svc := metrics.New()
	manager := auth.NewManager(auth.NewMemoryTokenStore(), server.Client(), server.URL+"/token/refresh/", nil, svc)
	client := apiclient.New(config.APIConfig{BaseURL: server.URL, Timeout: time.Second}, manager, manager, nil, svc)

	downloads, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Minute)

	runtime := teacher.NewRuntime(client, manager, downloads, config.SessionConfig{InactivityWindow: time.Minute}, nil, nil, svc)
	t.Cleanup(runtime.Close)

	var exports *handler.ExportHandler
	queue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return exports.Process(ctx, job)
	}, jobs.QueueConfig{Workers: 1})
	exports = handler.NewExportHandler(queue, signer, downloads, nil)
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	engine := New(Dependencies{
		Runtime:     runtime,
		Credentials: manager,
		Exports:     exports,
		Metrics:     svc,
		ReadinessChecks: map[string]handler.ReadinessCheck{
			"downloads": func(context.Context) error { return nil },
		},
		Docs: true,
	})
	return &gateway{engine: engine, runtime: runtime, manager: manager, api: api}
}

func (g *gateway) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.engine.ServeHTTP(rec, req)
	return rec
}

func (g *gateway) login(t *testing.T) {
	t.Helper()
	rec := g.do(http.MethodPost, "/session/login", map[string]interface{}{
		"access_token":  "access",
		"refresh_token": "refresh",
		"user":          map[string]interface{}{"id": 7, "first_name": "Hana", "role": "teacher"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	g := newGateway(t)

	rec := g.do(http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no active session")

	rec = g.do(http.MethodGet, "/session", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}

func TestLoginMountsBaselineState(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	assert.Equal(t, 1, g.api.count("GET /teacher-self/my_profile/"))
	assert.Equal(t, 1, g.api.count("GET /teacher-self/my_subjects/"))
	assert.Equal(t, 1, g.api.count("GET /teacher-self/my_classes/"))

	rec := g.do(http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RemainingHeader))
	assert.Contains(t, rec.Body.String(), "Mathematics")
	assert.Contains(t, rec.Body.String(), "remaining_seconds")
}

func TestLoginRejectsNonTeacher(t *testing.T) {
	g := newGateway(t)
	rec := g.do(http.MethodPost, "/session/login", map[string]interface{}{
		"access_token": "access",
		"user":         map[string]interface{}{"id": 1, "role": "student"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = g.do(http.MethodPost, "/session/login", map[string]interface{}{"refresh_token": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReloadAndGrades(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPost, "/state/grades/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = g.do(http.MethodGet, "/grades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grade_type":"quiz"`)
	assert.Contains(t, rec.Body.String(), `"average_score":8`)

	rec = g.do(http.MethodPost, "/state/unknown/reload", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadFailureLandsInSlice(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPost, "/state/schedule/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found.")
}

func TestFiltersRoundTrip(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPatch, "/filters", map[string]string{"subject": "1", "section": "2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"1"`)

	rec = g.do(http.MethodPatch, "/filters", map[string]string{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.do(http.MethodDelete, "/filters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"subject":"1"`)
}

func TestAddGradeAppendsToStore(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPost, "/grades", map[string]interface{}{
		"student": 3, "subject": 1, "section": 2, "grade_type": "final", "score": 70, "full_mark": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	provider, _, err := g.runtime.Current()
	require.NoError(t, err)
	records := provider.State().GradeRecords()
	require.Len(t, records, 1)
	assert.Equal(t, int64(6), records[0].ID)
}

func TestUpdateGradeWithoutIDIsRejected(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPut, "/grades", map[string]interface{}{
		"student": 3, "subject": 1, "section": 2, "grade_type": "final", "score": 70, "full_mark": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grade ID is required for updates")
}

func TestOptionsEndpoint(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodGet, "/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Quiz")
}

func TestExportIsQueuedAndDownloadable(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPost, "/exports/attendance", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var envelope struct {
		Data handler.ExportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, strings.HasPrefix(envelope.Data.Filename, "attendance_"))
	require.True(t, strings.HasPrefix(envelope.Data.DownloadURL, "/downloads/"))

	require.Eventually(t, func() bool {
		return strings.Contains(g.do(http.MethodGet, envelope.Data.StatusURL, nil).Body.String(), `"status":"done"`)
	}, 2*time.Second, 10*time.Millisecond)

	rec = g.do(http.MethodGet, envelope.Data.DownloadURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "date,status\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), envelope.Data.Filename)

	rec = g.do(http.MethodGet, "/downloads/garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = g.do(http.MethodPost, "/exports/teachers", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodPost, "/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, g.manager.Authenticated(context.Background()))

	rec = g.do(http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	g := newGateway(t)
	g.login(t)

	rec := g.do(http.MethodGet, "/metrics/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_requests")

	rec = g.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "school_api_requests_total")
	assert.Contains(t, rec.Body.String(), `store_slices{condition="loading"} 0`)

	assert.NotContains(t, rec.Body.String(), `route="/metrics"`)

	rec = g.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = g.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"downloads":"ok"`)
}

func TestDocsServeSwaggerDocument(t *testing.T) {
	g := newGateway(t)

	rec := g.do(http.MethodGet, "/docs/doc.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/downloads/{token}")
	assert.Contains(t, rec.Body.String(), "/exports/{resource}")

	bare := New(Dependencies{})
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
