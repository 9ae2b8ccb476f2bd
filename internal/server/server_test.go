package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pwakit/pwakit/internal/events"
	"github.com/pwakit/pwakit/internal/install"
	"github.com/pwakit/pwakit/internal/offline"
	"github.com/pwakit/pwakit/internal/storage"
	"github.com/pwakit/pwakit/internal/update"
)

type testServer struct {
	*Server
	hub     *events.Hub
	manager *update.Manager
	tracker *install.Tracker
}

func newTestServer(t *testing.T, files map[string]string) *testServer {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	hub := events.NewHub()
	store := storage.NewMemoryStore()
	manager := update.NewManager(hub, nil, update.Options{Store: store})
	t.Cleanup(manager.Close)
	tracker := install.NewTracker(hub, store)
	offlineMgr := offline.New(storage.NewMemoryStore(), storage.NewMemoryStore())

	s := New(Config{Addr: "127.0.0.1:0", SiteDir: dir}, hub, manager, tracker, offlineMgr)
	return &testServer{Server: s, hub: hub, manager: manager, tracker: tracker}
}

func (ts *testServer) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

func TestServiceWorkerHeaders(t *testing.T) {
	ts := newTestServer(t, map[string]string{"sw.js": `const VERSION = "1.0.0";`})

	rec := ts.request(t, http.MethodGet, "/sw.js", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Service-Worker-Allowed"); got != "/" {
		t.Errorf("Service-Worker-Allowed = %q, want /", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "javascript") {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestManifestRoutes(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"manifest.webmanifest": `{"name": "app"}`,
	})

	for _, path := range []string{"/manifest.webmanifest", "/manifest.json"} {
		rec := ts.request(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
			continue
		}
		if got := rec.Header().Get("Content-Type"); got != "application/manifest+json" {
			t.Errorf("GET %s Content-Type = %q", path, got)
		}
		if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
			t.Errorf("GET %s Cache-Control = %q", path, got)
		}
	}
}

func TestStaticSite(t *testing.T) {
	ts := newTestServer(t, map[string]string{"index.html": "<html>hi</html>"})

	rec := ts.request(t, http.MethodGet, "/index.html", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hi") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUpdateFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.request(t, http.MethodGet, "/api/v1/update/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status update.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.UpdateAvailable {
		t.Error("UpdateAvailable = true on a fresh server")
	}

	// No update yet: apply conflicts, rollback has nothing to restore.
	if rec := ts.request(t, http.MethodPost, "/api/v1/update/apply", ""); rec.Code != http.StatusConflict {
		t.Errorf("apply status = %d, want 409", rec.Code)
	}
	if rec := ts.request(t, http.MethodPost, "/api/v1/update/rollback", ""); rec.Code != http.StatusNotFound {
		t.Errorf("rollback status = %d, want 404", rec.Code)
	}

	ts.manager.WorkerWaiting(&update.WorkerInfo{ScriptURL: "/sw.js?v=2.0.0"})

	rec = ts.request(t, http.MethodGet, "/api/v1/update/status", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if !status.UpdateAvailable || status.Version != "2.0.0" {
		t.Errorf("status = %+v", status)
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/update/apply", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.UpdateAvailable || !status.HasRollbackData {
		t.Errorf("status after apply = %+v", status)
	}

	if rec := ts.request(t, http.MethodPost, "/api/v1/update/rollback", ""); rec.Code != http.StatusOK {
		t.Errorf("rollback status = %d: %s", rec.Code, rec.Body)
	}
}

func TestUpdateCheckRecordsTime(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.request(t, http.MethodPost, "/api/v1/update/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status update.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.LastUpdateCheck.IsZero() {
		t.Error("LastUpdateCheck not recorded")
	}
}

func TestInstallEventFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	// Shown before the browser reported a deferred prompt.
	if rec := ts.request(t, http.MethodPost, "/api/v1/install/event", `{"type":"shown"}`); rec.Code != http.StatusConflict {
		t.Errorf("shown status = %d, want 409", rec.Code)
	}

	for _, typ := range []string{"available", "shown", "accepted"} {
		rec := ts.request(t, http.MethodPost, "/api/v1/install/event", `{"type":"`+typ+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d: %s", typ, rec.Code, rec.Body)
		}
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/install/stats", "")
	var stats install.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.PromptsShown != 1 || stats.Accepted != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if rec := ts.request(t, http.MethodPost, "/api/v1/install/event", `{"type":"exploded"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", rec.Code)
	}
}

func TestOfflineRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)

	if rec := ts.request(t, http.MethodGet, "/api/v1/offline/articles", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET status = %d, want 404", rec.Code)
	}

	if rec := ts.request(t, http.MethodPut, "/api/v1/offline/articles", `[{"id":1}]`); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d", rec.Code)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/offline/articles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if rec.Body.String() != `[{"id":1}]` {
		t.Errorf("body = %q", rec.Body.String())
	}

	if rec := ts.request(t, http.MethodDelete, "/api/v1/offline/articles", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if rec := ts.request(t, http.MethodGet, "/api/v1/offline/articles", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET after DELETE status = %d, want 404", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t, nil)

	srv := httptest.NewServer(ts)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// The handler subscribes after the handshake; wait for registration.
	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.Len(update.EventBanner) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ts.manager.WorkerWaiting(&update.WorkerInfo{ScriptURL: "/sw.js?v=2.0.0"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if frame.Event != update.EventPrompt {
		t.Errorf("event = %q, want %q", frame.Event, update.EventPrompt)
	}
	var payload update.PromptEvent
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Version != "2.0.0" || payload.Attempt != 1 {
		t.Errorf("payload = %+v", payload)
	}
}
