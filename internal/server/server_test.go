package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["clients"] != 0.0 {
		t.Errorf("clients = %v, want 0", body["clients"])
	}
	if _, ok := body["enabled"]; ok {
		t.Error("enabled reported without a pipeline")
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /api/health = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

// Routes backed by a store, a pipeline or an export func are only mounted
// when that dependency is configured.
func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{})

	paths := []string{
		"/api/bindings",
		"/api/events",
		"/api/events/counts",
		"/api/engine",
		"/api/engine/reset",
		"/api/frames",
		"/",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

func TestServer_EngineMethods(t *testing.T) {
	s := New(Config{Pipeline: newFakePipeline()})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/engine/reset", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/engine", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/engine/reset", http.StatusNoContent},
		{http.MethodGet, "/api/engine", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	script := "console.log('ready')"
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(script), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s := New(Config{StaticDir: dir})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, index},
		{"/app.js", http.StatusOK, script},
		{"/missing.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
