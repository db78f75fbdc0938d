package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func testRouter(m *RoomManager) *httprouter.Router {
	cfg := m.cfg
	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck(cfg, m))
	mux.GET("/version", serveVersion(cfg))
	mux.GET("/rooms", serveRoomList(cfg, m))
	mux.GET("/rooms/:roomid", serveRoom(cfg, m))
	mux.GET("/rooms/:roomid/qr", serveRoomQR(cfg, m))
	return mux
}

func TestHealthCheck(t *testing.T) {
	m := newTestManager(t, testConfig())
	startMatch(t, m)

	rec := httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var body struct {
		Status  string `json:"status"`
		Players int    `json:"players"`
		Rooms   int    `json:"rooms"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Players != 2 || body.Rooms != 1 {
		t.Errorf("body %+v", body)
	}
}

func TestVersionEndpoint(t *testing.T) {
	m := newTestManager(t, testConfig())

	rec := httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), releaseVersion) {
		t.Errorf("body %q missing version", rec.Body.String())
	}
}

func TestRoomEndpoints(t *testing.T) {
	m := newTestManager(t, testConfig())
	_, _, roomID := startMatch(t, m)

	rec := httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+roomID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d for known room", rec.Code)
	}

	var summary RoomSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.ID != roomID || summary.Players != 2 {
		t.Errorf("summary %+v", summary)
	}

	rec = httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d for unknown room", rec.Code)
	}

	rec = httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+roomID+"/qr", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d for qr", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("qr content type %q", got)
	}

	rec = httptest.NewRecorder()
	testRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d for room list", rec.Code)
	}
	var listed []RoomSummary
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Errorf("listed %d rooms, want 1", len(listed))
	}
}
