package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/auth"
	"github.com/dennisdiepolder/calldesk/internal/config"
	"github.com/dennisdiepolder/calldesk/internal/storage"
	"github.com/dennisdiepolder/calldesk/internal/types"
	"github.com/dennisdiepolder/calldesk/internal/websocket"
	"github.com/rs/zerolog"
)

type fakeStore struct {
	pingErr error
}

func (f fakeStore) Ping(context.Context) error                    { return f.pingErr }
func (fakeStore) ListCalls(context.Context) ([]types.Call, error) { return []types.Call{}, nil }
func (fakeStore) CountCallsBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 3, nil
}
func (fakeStore) AverageCallDuration(context.Context) (*float64, error) { return nil, nil }
func (fakeStore) CountNegativeCalls(context.Context) (int64, error)     { return 0, nil }
func (fakeStore) Solutions(context.Context) ([]types.Solution, error)   { return nil, nil }
func (fakeStore) SolutionsBySubject(context.Context, string) ([]types.Solution, error) {
	return nil, nil
}

type fakeViews struct{}

func (fakeViews) DeskView(context.Context) ([]types.DeskViewRow, error) {
	return []types.DeskViewRow{{EmployeeID: 7}}, nil
}
func (fakeViews) IncidentView(context.Context) ([]types.IncidentViewRow, error) { return nil, nil }

type fakeMutator struct{}

func (fakeMutator) CreateCall(_ context.Context, c types.Call) (*types.Call, error) {
	c.ID = 1
	return &c, nil
}
func (fakeMutator) UpdateCall(context.Context, uint, types.CallPatch) (*types.Call, error) {
	return nil, types.NewNotFound("call", 1)
}
func (fakeMutator) DeleteCall(context.Context, uint) error { return nil }
func (fakeMutator) CreateIncident(_ context.Context, i types.Incident) (*types.Incident, error) {
	return &i, nil
}
func (fakeMutator) CreateSurvey(_ context.Context, s types.Survey) (*types.Survey, error) {
	return &s, nil
}
func (fakeMutator) MergeSentiment(context.Context, uint, string) (*types.SentimentResult, error) {
	return &types.SentimentResult{}, nil
}
func (fakeMutator) FetchTranscript(context.Context, string) ([]types.TranscriptSegment, error) {
	return nil, nil
}

func testRouter(t *testing.T, skipAuth bool) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins:     []string{"*"},
		SentimentRateLimit: "2-M",
	}
	r, err := newRouter(cfg, deps{
		store:   fakeStore{},
		archive: storage.NewNoopArchive(),
		views:   fakeViews{},
		coord:   fakeMutator{},
		hub:     websocket.NewHub(zerolog.Nop()),
		auth:    auth.NewAuthenticator(auth.Options{SkipAuth: skipAuth}, zerolog.Nop()),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return r
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(fakeStore{})(rec, req)

	// Check status code
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	// Check content type
	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	// Parse response body
	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("expected status ok, got %s", response["status"])
	}
	if response["service"] != "calldesk" {
		t.Errorf("expected service calldesk, got %s", response["service"])
	}
}

func TestHealthHandlerDatabaseDown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(fakeStore{pingErr: errors.New("connection refused")})(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["database"] != "unreachable" {
		t.Errorf("expected database unreachable, got %s", response["database"])
	}
}

func TestRouterAuth(t *testing.T) {
	tests := []struct {
		name           string
		skipAuth       bool
		method         string
		path           string
		expectedStatus int
	}{
		{"health is public", false, http.MethodGet, "/health", http.StatusOK},
		{"metrics is public", false, http.MethodGet, "/metrics", http.StatusOK},
		{"desk needs a token", false, http.MethodGet, "/api/desk", http.StatusUnauthorized},
		{"mutation needs a token", false, http.MethodDelete, "/api/calls/1", http.StatusUnauthorized},
		{"desk with dev user", true, http.MethodGet, "/api/desk", http.StatusOK},
		{"stats with dev user", true, http.MethodGet, "/api/stats/today", http.StatusOK},
		{"delete with dev user", true, http.MethodDelete, "/api/calls/1", http.StatusNoContent},
		{"update without body", true, http.MethodPut, "/api/calls/1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			testRouter(t, tt.skipAuth).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSentimentRoutesAreRateLimited(t *testing.T) {
	r := testRouter(t, true)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/calls/1/sentiment", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}
}
