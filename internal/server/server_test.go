package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("reports ok and uptime", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode health: %v", err)
		}
		if body["status"] != "ok" {
			t.Errorf("status field = %v, want ok", body["status"])
		}
		if _, ok := body["uptime"]; !ok {
			t.Error("health should report uptime")
		}
	})

	t.Run("rejects writes", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s /api/health = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
			}
		}
	})
}

func TestServer_DrawingRouteTable(t *testing.T) {
	ctrl := newFakeController()
	s := New(Config{Controller: ctrl})

	tests := []struct {
		method      string
		path        string
		body        string
		wantStatus  int
		contentType string
	}{
		{http.MethodGet, "/api/status", "", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/drawing", "", http.StatusOK, "image/png"},
		{http.MethodGet, "/api/drawing.pdf", "", http.StatusOK, "application/pdf"},
		{http.MethodDelete, "/api/drawing", "", http.StatusNoContent, ""},
		{http.MethodGet, "/api/brush", "", http.StatusOK, "application/json"},
		{http.MethodPut, "/api/brush", `{"size":12}`, http.StatusOK, "application/json"},
		{http.MethodPut, "/api/brush", `{}`, http.StatusBadRequest, "application/json"},
		{http.MethodPost, "/api/drawing", "", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/api/status", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/gestures", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.contentType != "" {
				if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
					t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
				}
			}
		})
	}

	if ctrl.BrushSize() != 12 {
		t.Errorf("brush = %d after PUT, want 12", ctrl.BrushSize())
	}
	ctrl.mu.Lock()
	clears := ctrl.clears
	ctrl.mu.Unlock()
	if clears != 1 {
		t.Errorf("clears = %d, want 1", clears)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>easel</body></html>"
	script := "connect('/api/events');"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(script), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s := New(Config{StaticDir: dir, Controller: newFakeController()})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"index at root", "/", http.StatusOK, index},
		{"asset by name", "/app.js", http.StatusOK, script},
		{"missing asset", "/missing.css", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	t.Run("api routes win over static files", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawing", nil))
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q, want image/png", ct)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestNew(t *testing.T) {
	ctrl := newFakeController()
	s := New(Config{StaticDir: "/srv/easel/web", Controller: ctrl})

	if s.config.StaticDir != "/srv/easel/web" {
		t.Errorf("StaticDir = %q", s.config.StaticDir)
	}
	if s.config.Controller != ctrl {
		t.Error("controller not kept")
	}
	if s.Router() == nil {
		t.Error("Router() should not be nil")
	}

	var _ http.Handler = s
}
