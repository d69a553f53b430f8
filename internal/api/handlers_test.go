package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"nomnomhub/internal/app"
	"nomnomhub/internal/config"
	"nomnomhub/internal/pkg"
)

const testEditorVersion = "2022.3.10f1"

const testCatalog = `{
	"schemaVersion": 1,
	"packages": {
		"com.unity.ugui": {"isDiscoverable": true, "isDefault": true, "version": "1.0.0"}
	}
}`

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       interface{}
		expectCode int
	}{
		{
			name:       "success response",
			status:     http.StatusOK,
			data:       map[string]string{"message": "success"},
			expectCode: http.StatusOK,
		},
		{
			name:       "created response",
			status:     http.StatusCreated,
			data:       []string{"a", "b"},
			expectCode: http.StatusCreated,
		},
		{
			name:       "nil data",
			status:     http.StatusOK,
			data:       nil,
			expectCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.data)

			if w.Code != tt.expectCode {
				t.Errorf("expected status %d, got %d", tt.expectCode, w.Code)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got %q", contentType)
			}

			var result interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
				t.Errorf("response is not valid JSON: %v", err)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	var errorResponse map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &errorResponse); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if errorResponse["error"] != "invalid input" {
		t.Errorf("expected error message %q, got %v", "invalid input", errorResponse["error"])
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect int
	}{
		{"not found", pkg.NewError(pkg.ErrNotFound, "missing"), http.StatusNotFound},
		{"invalid format", fmt.Errorf("wrapped: %w", pkg.ErrInvalidFormat), http.StatusUnprocessableEntity},
		{"invalid archive", pkg.ErrInvalidArchive, http.StatusUnprocessableEntity},
		{"conflict", pkg.NewError(pkg.ErrConflict, "exists"), http.StatusConflict},
		{"external process", pkg.ErrExternalProcess, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expect {
				t.Errorf("expected %d, got %d", tt.expect, got)
			}
		})
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	s := NewServer(nil, nil)
	handler := s.panicRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, exe string, args ...string) error { return nil }
func (noopRunner) Start(exe string, args ...string) error                     { return nil }

// newTestServer returns a handler over one fake editor install
func newTestServer(t *testing.T) (http.Handler, *app.Context) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Config{
		EditorsPath:    filepath.Join(root, "editors"),
		AppDataPath:    filepath.Join(root, "appdata"),
		CacheDir:       filepath.Join(root, "cache"),
		NewProjectPath: filepath.Join(root, "projects"),
		EditorTimeout:  "1m",
	}

	versionDir := filepath.Join(cfg.EditorsPath, testEditorVersion)
	writeFile(t, filepath.Join(versionDir, "Editor", "Data", "Resources", "PackageManager", "Editor", "manifest.json"), testCatalog)
	writeFile(t, filepath.Join(versionDir, "modules.json"), "[]")

	appCtx, err := app.New(cfg, app.Options{Stores: app.MemoryStores(), Runner: noopRunner{}})
	if err != nil {
		t.Fatalf("app.New() returned error: %v", err)
	}
	return NewServer(appCtx, nil).Handler(), appCtx
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestRoutes(t *testing.T) {
	handler, _ := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		expectCode int
		expectBody string
	}{
		{"health", http.MethodGet, "/api/v1/health", "", http.StatusOK, `"status":"ok"`},
		{"routes", http.MethodGet, "/api/v1/routes", "", http.StatusOK, `"/api/v1/projects"`},
		{"editors", http.MethodGet, "/api/v1/editors", "", http.StatusOK, testEditorVersion},
		{"default packages", http.MethodGet, "/api/v1/editors/" + testEditorVersion + "/packages", "", http.StatusOK, `"com.unity.ugui"`},
		{"packages of unknown editor", http.MethodGet, "/api/v1/editors/1.0.0f1/packages", "", http.StatusNotFound, "not installed"},
		{"templates of unknown editor", http.MethodGet, "/api/v1/editors/1.0.0f1/templates", "", http.StatusNotFound, "not installed"},
		{"empty project list", http.MethodGet, "/api/v1/projects", "", http.StatusOK, "[]"},
		{"project without name", http.MethodPost, "/api/v1/projects", `{}`, http.StatusBadRequest, "name is required"},
		{"project with unknown field", http.MethodPost, "/api/v1/projects", `{"name":"Game","colour":"red"}`, http.StatusBadRequest, "invalid request body"},
		{"project with unknown template", http.MethodPost, "/api/v1/projects", `{"name":"Game","template":"missing"}`, http.StatusNotFound, "error"},
		{"inspect without template", http.MethodPost, "/api/v1/templates/inspect", `{}`, http.StatusBadRequest, "template is required"},
		{"inspect unknown template", http.MethodPost, "/api/v1/templates/inspect", `{"template":"missing"}`, http.StatusNotFound, "error"},
		{"template with base and project", http.MethodPost, "/api/v1/templates", `{"name":"x","base":"a","fromProject":"/p"}`, http.StatusBadRequest, "mutually exclusive"},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound, "no such route"},
		{"wrong method", http.MethodDelete, "/api/v1/projects", "", http.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectCode {
				t.Errorf("expected status %d, got %d (%s)", tt.expectCode, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.expectBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectBody, w.Body.String())
			}
		})
	}
}

func TestListProjects(t *testing.T) {
	handler, appCtx := newTestServer(t)

	dir := filepath.Join(t.TempDir(), "Game")
	writeFile(t, filepath.Join(dir, "ProjectSettings", "ProjectVersion.txt"), "m_EditorVersion: "+testEditorVersion+"\n")
	if err := os.MkdirAll(filepath.Join(dir, "Assets"), 0o755); err != nil {
		t.Fatalf("failed to create Assets: %v", err)
	}
	if _, err := appCtx.AddProject(dir); err != nil {
		t.Fatalf("AddProject() returned error: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
	var projects []app.Project
	if err := json.Unmarshal(w.Body.Bytes(), &projects); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %+v", projects)
	}
	if projects[0].Name != "Game" || projects[0].Version != testEditorVersion {
		t.Errorf("expected Game at %s, got %+v", testEditorVersion, projects[0])
	}
}

func TestTemplateFromMissingProject(t *testing.T) {
	handler, _ := newTestServer(t)

	body := `{"name":"com.example.template.game","fromProject":` + strconv.Quote(filepath.Join(t.TempDir(), "missing")) + `}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(body)))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d (%s)", http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler, _ := newTestServer(t)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected %q, got %q", "nosniff", got)
	}
}
