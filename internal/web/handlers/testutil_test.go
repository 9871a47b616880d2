package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/event-faces/internal/config"
	"github.com/kozaktomas/event-faces/internal/events"
	"github.com/kozaktomas/event-faces/internal/facematch"
	"github.com/kozaktomas/event-faces/internal/storage"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{MatchThreshold: 90, GroupThreshold: 80, BatchSize: 5},
	}
}

// scriptedOracle answers from fixed tables; block makes CompareFaces wait for ctx.
type scriptedOracle struct {
	faces    map[string]int
	byTarget map[string][]float64
	block    bool
}

func (o *scriptedOracle) DetectFaces(_ context.Context, ref string) (int, error) {
	return o.faces[ref], nil
}

func (o *scriptedOracle) CompareFaces(ctx context.Context, _, target string, _ float64) ([]float64, error) {
	if o.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return o.byTarget[target], nil
}

// fakeStore lists a fixed set of keys regardless of prefix.
type fakeStore struct {
	keys []string
	err  error
}

func (s *fakeStore) List(_ context.Context, _ string) ([]storage.ImageRef, error) {
	if s.err != nil {
		return nil, s.err
	}
	refs := make([]storage.ImageRef, len(s.keys))
	for i, k := range s.keys {
		refs[i] = storage.ImageRef{Key: k, URL: "https://cdn.example.com/" + k}
	}
	return refs, nil
}

type fakeRegistry struct {
	known map[string]bool
}

func (r *fakeRegistry) Resolve(_ context.Context, scope facematch.Scope) (*events.Event, error) {
	if !r.known[scope.EventID] {
		return nil, events.ErrEventNotFound
	}
	return &events.Event{ID: scope.EventID, UserEmail: scope.Owner}, nil
}

// newTestHandler wires a FacesHandler around the given oracle and store.
func newTestHandler(oracle facematch.Oracle, store storage.Store, registry EventResolver) *FacesHandler {
	return NewFacesHandler(testConfig(), facematch.NewEngine(oracle), store, registry, NewJobManager(), nil)
}

// postJSON builds a JSON POST request.
func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// waitForStatus polls the job until cond holds or the deadline passes.
func waitForStatus(t *testing.T, job *Job, cond func(JobStatus) bool) JobView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v := job.View(); cond(v.Status) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach the expected status, last %s", job.ID(), job.GetStatus())
	return JobView{}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertJSONCode checks the machine-readable code of a JSON error response.
func assertJSONCode(t *testing.T, recorder *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["code"] != expectedCode {
		t.Errorf("expected code '%s', got '%s'", expectedCode, result["code"])
	}
}
