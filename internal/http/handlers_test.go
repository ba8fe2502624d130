package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kenny00Ken/carcareapp-sub000/internal/config"
	"github.com/Kenny00Ken/carcareapp-sub000/internal/models"
)

func newTestServer() *Server {
	// empty config wires the in-memory index and store
	return NewServer(config.ServerConfig{}, nil)
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestLocationIngestThenMatch(t *testing.T) {
	s := newTestServer()

	loc := map[string]any{
		"id":              "m1",
		"loc":             map[string]float64{"lat": 5.61, "lng": -0.21},
		"max_active_jobs": 3,
		"hourly_rate":     100,
		"rating":          4.5,
	}
	if w := postJSON(t, s, "/internal/mechanic/locations", loc); w.Code != http.StatusNoContent {
		t.Fatalf("ingest returned %d: %s", w.Code, w.Body.String())
	}

	match := models.MatchRequest{
		Origin:  models.Coordinates{Lat: 5.6, Lng: -0.2},
		Urgency: models.UrgencyHigh,
	}
	w := postJSON(t, s, "/api/v1/matches", match)
	if w.Code != http.StatusOK {
		t.Fatalf("match returned %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RequestID string               `json:"request_id"`
		Matches   []models.MatchResult `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Mechanic.ID != "m1" {
		t.Fatalf("expected one match for m1, got %+v", resp.Matches)
	}
	if resp.RequestID == "" {
		t.Fatal("request id missing")
	}
}

func TestMatchRejectsBadUrgency(t *testing.T) {
	s := newTestServer()
	match := models.MatchRequest{
		Origin:  models.Coordinates{Lat: 5.6, Lng: -0.2},
		Urgency: "frantic",
	}
	if w := postJSON(t, s, "/api/v1/matches", match); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngestRejectsInvalidCoordinates(t *testing.T) {
	s := newTestServer()
	loc := map[string]any{"id": "m1", "loc": map[string]float64{"lat": 95, "lng": 0}}
	if w := postJSON(t, s, "/internal/mechanic/locations", loc); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTrackingUnconfigured(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/tracking", map[string]string{"user_id": "u1"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a platform source, got %d", w.Code)
	}
}
