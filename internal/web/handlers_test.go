package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openclaw/mind/internal/config"
	"github.com/openclaw/mind/internal/hub"
	"github.com/openclaw/mind/internal/manager"
)

func newTestServer(t *testing.T) (*Server, *manager.Manager) {
	t.Helper()
	mgr := manager.New(t.TempDir())
	t.Cleanup(mgr.CloseAll)
	cfg := &config.Config{DashboardPort: 0, SinceDays: 7}
	return New(cfg, mgr, hub.New()), mgr
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDashboardJSON(t *testing.T) {
	s, mgr := newTestServer(t)
	st, err := mgr.MindStore("alice")
	if err != nil {
		t.Fatalf("MindStore: %v", err)
	}
	st.AddLearning("Be terse", "Keep replies short", "r", true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/agents/alice/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var snap manager.DashboardSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Agent != "alice" || len(snap.Approved) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLearningsEndpoint(t *testing.T) {
	s, mgr := newTestServer(t)
	st, _ := mgr.MindStore("alice")
	st.AddLearning("pending", "c", "r", false)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/agents/alice/learnings")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pending") {
		t.Fatalf("missing pending learning in %s", rec.Body.String())
	}
}

func TestApproveAndReject(t *testing.T) {
	s, mgr := newTestServer(t)
	st, _ := mgr.MindStore("alice")
	id := st.AddLearning("Be terse", "Keep replies short", "r", false)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/agents/alice/learnings/1/approve")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}
	if len(st.GetApprovedLearnings()) != 1 {
		t.Fatal("learning not approved")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/agents/alice/learnings/1/reject")
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", rec.Code)
	}
	if len(st.GetApprovedLearnings()) != 0 {
		t.Fatal("learning not rejected")
	}
	_ = id
}

func TestApproveBadID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/agents/alice/learnings/zero/approve")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCronEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/agents/alice/cron")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload manager.CronPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ID != "mind-dream-alice" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestHTMLPage(t *testing.T) {
	s, mgr := newTestServer(t)
	st, _ := mgr.MindStore("alice")
	st.AddLearning("Be terse", "Keep replies short", "r", true)

	rec := doRequest(t, s, http.MethodGet, "/agents/alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<html>") {
		t.Fatal("expected an HTML document")
	}
	if !strings.Contains(body, "Be terse") {
		t.Fatalf("missing learning in page:\n%s", body)
	}
	// goldmark renders the markdown bold markers as <strong>.
	if !strings.Contains(body, "<strong>") {
		t.Fatal("expected rendered markdown")
	}
}
