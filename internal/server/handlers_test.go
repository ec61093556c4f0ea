package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/service"
)

type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "multiple choice quiz") {
		return `[{"question":"Q?","options":["a","b","c","d"],"correct_answer":"a","explanation":"e"}]`, nil
	}
	return "- Cells are the unit of life", nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.DatabasePath = filepath.Join(dir, "manabu.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")
	cfg.Embedding.Dimensions = 32
	cfg.Knowledge.BaseURL = "http://127.0.0.1:1"

	svc, err := service.BuildWithLLM(context.Background(), cfg, echoLLM{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return NewServer(svc, cfg, zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path, tenant string, body io.Reader, contentType string) (int, map[string]interface{}) {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if tenant != "" {
		r.Header.Set(TenantHeader, tenant)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return w.Code, out
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func upload(t *testing.T, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	code, out := do(t, h, http.MethodGet, "/health", "", nil, "")
	if code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health = %d %v", code, out)
	}
}

func TestTenantRequired(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		tenant string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"../etc", http.StatusBadRequest},
		{"..", http.StatusBadRequest},
		{"student-42", http.StatusOK},
	}
	for _, tt := range tests {
		code, _ := do(t, h, http.MethodGet, "/api/v1/status", tt.tenant, nil, "")
		if code != tt.want {
			t.Errorf("tenant %q: status %d, want %d", tt.tenant, code, tt.want)
		}
	}
}

func TestIngestAskAndStats(t *testing.T) {
	h := newTestServer(t)

	body, ct := upload(t, map[string]string{"cells.md": "Cells are the basic unit of life.", "virus.exe": "MZ"})
	code, out := do(t, h, http.MethodPost, "/api/v1/ingest", "t1", body, ct)
	if code != http.StatusOK || out["success"] != true {
		t.Fatalf("ingest = %d %v", code, out)
	}
	result := out["result"].(map[string]interface{})
	if result["status"] != "success" || result["chunks"].(float64) != 1 {
		t.Errorf("ingest result = %v", result)
	}

	code, out = do(t, h, http.MethodPost, "/api/v1/ask", "t1", jsonBody(map[string]string{"question": "What are cells?"}), "application/json")
	if code != http.StatusOK || out["type"] != "documents" || out["answer"] != "- Cells are the unit of life" {
		t.Errorf("ask = %d %v", code, out)
	}
	if sources := out["sources"].([]interface{}); len(sources) != 1 || sources[0] != "cells.md" {
		t.Errorf("sources = %v", sources)
	}

	code, out = do(t, h, http.MethodPost, "/api/v1/quiz", "t1", jsonBody(map[string]interface{}{"topic": "cells"}), "application/json")
	if code != http.StatusOK || len(out["quiz"].([]interface{})) != 1 {
		t.Errorf("quiz = %d %v", code, out)
	}

	code, out = do(t, h, http.MethodPost, "/api/v1/quiz/submit", "t1", jsonBody(map[string]interface{}{"score": 3, "total": 4, "topic": "cells"}), "application/json")
	if code != http.StatusOK || out["success"] != true {
		t.Errorf("submit = %d %v", code, out)
	}

	_, out = do(t, h, http.MethodGet, "/api/v1/dashboard", "t1", nil, "")
	stats := out["stats"].(map[string]interface{})
	if stats["document_count"].(float64) != 1 || stats["question_count"].(float64) != 1 || stats["quiz_score_avg"].(float64) != 75 {
		t.Errorf("stats = %v", stats)
	}

	_, out = do(t, h, http.MethodGet, "/api/v1/history?limit=5", "t1", nil, "")
	if hist := out["history"].([]interface{}); len(hist) != 1 {
		t.Errorf("history = %v", hist)
	}

	_, out = do(t, h, http.MethodGet, "/api/v1/status", "t2", nil, "")
	if st := out["status"].(map[string]interface{}); st["documents_uploaded"].(float64) != 0 {
		t.Errorf("other tenant status = %v", st)
	}

	code, out = do(t, h, http.MethodPost, "/api/v1/clear", "t1", nil, "")
	if code != http.StatusOK || out["vectors_removed"].(float64) != 1 {
		t.Errorf("clear = %d %v", code, out)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name        string
		method      string
		path        string
		body        io.Reader
		wantCode    int
		wantSuccess bool
	}{
		{"empty question", http.MethodPost, "/api/v1/ask", jsonBody(map[string]string{"question": " "}), http.StatusBadRequest, false},
		{"malformed json", http.MethodPost, "/api/v1/ask", strings.NewReader("{"), http.StatusBadRequest, false},
		{"empty topic", http.MethodPost, "/api/v1/summarize", jsonBody(map[string]string{}), http.StatusBadRequest, false},
		{"summary without documents", http.MethodPost, "/api/v1/summarize", jsonBody(map[string]string{"topic": "cells"}), http.StatusOK, false},
		{"quiz without documents", http.MethodPost, "/api/v1/quiz", jsonBody(map[string]string{"topic": "cells"}), http.StatusOK, false},
		{"submit without score", http.MethodPost, "/api/v1/quiz/submit", jsonBody(map[string]int{"total": 4}), http.StatusBadRequest, false},
		{"bad history limit", http.MethodGet, "/api/v1/history?limit=ten", nil, http.StatusBadRequest, false},
		{"ingest without form", http.MethodPost, "/api/v1/ingest", strings.NewReader("x"), http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, h, tt.method, tt.path, "t1", tt.body, "application/json")
			if code != tt.wantCode || out["success"] != tt.wantSuccess {
				t.Errorf("%s %s = %d %v", tt.method, tt.path, code, out)
			}
		})
	}
}

func TestValidTenantID(t *testing.T) {
	for id, want := range map[string]bool{
		"abc":           true,
		"user_1.test-2": true,
		"":              false,
		".hidden":       false,
		"a/b":           false,
		strings.Repeat("x", 129): false,
	} {
		if got := ValidTenantID(id); got != want {
			t.Errorf("ValidTenantID(%q) = %v, want %v", id, got, want)
		}
	}
}
