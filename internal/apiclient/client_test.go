package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/pkg/config"
	appErrors "github.com/etbur/eschool-portal/pkg/errors"
	"github.com/etbur/eschool-portal/pkg/middleware/requestid"
)

type staticToken struct {
	mu    sync.Mutex
	token string
}

func (s *staticToken) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", appErrors.ErrNoCredentials
	}
	return s.token, nil
}

type fakeRefresher struct {
	calls int32
	token string
	err   error
	creds *staticToken
}

func (f *fakeRefresher) Refresh(context.Context) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	if f.creds != nil {
		f.creds.mu.Lock()
		f.creds.token = f.token
		f.creds.mu.Unlock()
	}
	return f.token, nil
}

type apiRecorder struct {
	mu       sync.Mutex
	statuses []int
}

func (r *apiRecorder) ObserveAPIRequest(_, _ string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, creds CredentialSource, refresher Refresher, rec Recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.APIConfig{BaseURL: srv.URL + "/api"}, creds, refresher, nil, rec).WithHTTPClient(srv.Client())
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/api/teacher-self/my_profile/", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.Profile{ID: 4, EmployeeID: "T-004"})
	}
	creds := &staticToken{token: "stale"}
	refresher := &fakeRefresher{token: "fresh", creds: creds}
	rec := &apiRecorder{}
	client := newTestClient(t, handler, creds, refresher, rec)

	profile, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T-004", profile.EmployeeID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []int{401, 200}, rec.statuses)
}

func TestRefreshFailureReturnsOriginalUnauthorized(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
	}
	refresher := &fakeRefresher{err: errors.New("Refresh token expired")}
	client := newTestClient(t, handler, &staticToken{token: "stale"}, refresher, nil)

	_, err := client.GetSubjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Token is invalid or expired", err.Error())
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSecondUnauthorizedIsNotRetried(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}
	refresher := &fakeRefresher{token: "fresh"}
	client := newTestClient(t, handler, &staticToken{token: "stale"}, refresher, nil)

	_, err := client.GetClasses(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 401", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&refresher.calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestServerMessagePrecedence(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"message":"first","error":"second"}`, "first"},
		{`{"error":"Grade not found or not authorized"}`, "Grade not found or not authorized"},
		{`{"detail":"Not found."}`, "Not found."},
		{`{"student":["This field is required."]}`, "HTTP error! status: 404"},
		{`not json`, "HTTP error! status: 404"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tc.body))
			}
			client := newTestClient(t, handler, &staticToken{token: "t"}, nil, nil)
			_, err := client.GetDashboard(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestRequestCarriesHeadersAndQuery(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-42", r.Header.Get(requestid.Header))
		assert.Equal(t, "/api/teacher-self/reports/", r.URL.Path)
		assert.Equal(t, "attendance", r.URL.Query().Get("type"))
		assert.Equal(t, "3", r.URL.Query().Get("subject"))
		_, _ = w.Write([]byte(`{"report_type":"attendance","total_records":2}`))
	}
	client := newTestClient(t, handler, &staticToken{token: "token-1"}, nil, nil)

	ctx := requestid.WithID(context.Background(), "req-42")
	report, err := client.GetReport(ctx, "attendance", url.Values{"subject": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, "attendance", report["report_type"])
}

func TestUtilitiesUseUtilsScope(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/teacher-utils/grade_types/", r.URL.Path)
		_, _ = w.Write([]byte(`[{"value":"quiz","label":"Quiz"}]`))
	}
	client := newTestClient(t, handler, &staticToken{token: "t"}, nil, nil)
	types, err := client.GradeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, models.GradeQuiz, types[0].Value)
}

func TestExportReturnsRawBytes(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/teacher-self/grade_management/export/", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Student,Score\nAbebe,90\n"))
	}
	client := newTestClient(t, handler, &staticToken{token: "t"}, nil, nil)
	blob, err := client.ExportGrades(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Student,Score\nAbebe,90\n", string(blob))
}

func TestWritesAreValidatedBeforeSending(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&hits, 1) }
	client := newTestClient(t, handler, &staticToken{token: "t"}, nil, nil)
	ctx := context.Background()

	_, err := client.MarkAttendance(ctx, models.AttendanceRecord{Student: 1, Subject: 2, Section: 3, Date: "2026-10-17", Status: "late"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = client.AddGrade(ctx, models.GradeRecord{Student: 1, Subject: 2, Section: 3, GradeType: models.GradeQuiz, Score: 120, FullMark: 100})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = client.UpdateGrade(ctx, models.GradeRecord{Student: 1, Subject: 2, Section: 3, GradeType: models.GradeQuiz, Score: 10, FullMark: 100})
	require.Error(t, err)
	assert.Equal(t, "Grade ID is required for updates", err.Error())

	_, err = client.MarkBulkAttendance(ctx, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestTransportFailureKeepsNativeMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	rec := &apiRecorder{}
	client := New(config.APIConfig{BaseURL: base}, &staticToken{token: "t"}, nil, nil, rec)
	_, err := client.GetSchedule(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNetwork)
	assert.Contains(t, err.Error(), "connect")
	assert.Equal(t, []int{0}, rec.statuses)
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	var hits int32
	handler := func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&hits, 1) }
	client := newTestClient(t, handler, &staticToken{}, nil, nil)

	_, err := client.GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No access token available", err.Error())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestBaseURLFallsBackToHost(t *testing.T) {
	assert.Equal(t, config.LocalAPIBaseURL, New(config.APIConfig{Host: "127.0.0.1"}, nil, nil, nil, nil).BaseURL())
	assert.Equal(t, config.ProductionAPIBaseURL, New(config.APIConfig{Host: "portal.etbur.com"}, nil, nil, nil, nil).BaseURL())
}

func TestBulkAttendanceDecodesResult(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body []models.AttendanceRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body, 2)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"created":2,"errors":0,"records":[],"error_details":[]}`))
	}
	client := newTestClient(t, handler, &staticToken{token: "t"}, nil, nil)
	records := []models.AttendanceRecord{
		{Student: 1, Subject: 2, Section: 3, Date: "2026-10-17", Status: models.AttendancePresent},
		{Student: 4, Subject: 2, Section: 3, Date: "2026-10-17", Status: models.AttendanceAbsent},
	}
	res, err := client.MarkBulkAttendance(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
}
