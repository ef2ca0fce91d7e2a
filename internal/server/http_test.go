package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coffersTech/actionlog/internal/actionlog"
	"github.com/coffersTech/actionlog/internal/agent"
	"github.com/coffersTech/actionlog/internal/logread"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "actions.jsonl")

	registry := prometheus.NewRegistry()
	appender := actionlog.NewAppender(logPath, actionlog.WithMetrics(actionlog.NewMetrics(registry)))
	inst := actionlog.NewInstrumenter(appender, "gnb")

	ag := agent.New(agent.Options{DocsDir: dir}, inst)
	ag.Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
		return args["message"], nil
	})

	hash := ""
	if apiKey != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}
	return New(ag, logread.New(logPath), hash, registry)
}

func TestServer_AuthRequired(t *testing.T) {
	s := newTestServer(t, "secret")
	handler := s.Handler()

	req := httptest.NewRequest("GET", "/api/tools", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/tools", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/tools", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AuthDisabledWithoutHash(t *testing.T) {
	s := newTestServer(t, "")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/tools", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ListTools(t *testing.T) {
	s := newTestServer(t, "")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/tools", nil))

	var tools []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tools))
	assert.Contains(t, tools, "echo")
	assert.Contains(t, tools, "update_gnb_bandwidth")
}

func TestServer_InvokeTool(t *testing.T) {
	s := newTestServer(t, "")
	handler := s.Handler()

	body := strings.NewReader(`{"message": "hello gNB"}`)
	req := httptest.NewRequest("POST", "/api/tools/echo", body)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		ID     string `json:"id"`
		Tool   string `json:"tool"`
		Result any    `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "echo", resp.Tool)
	assert.Equal(t, "hello gNB", resp.Result)

	// The invocation itself must show up in the action trail.
	req = httptest.NewRequest("GET", "/api/actions", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "echo", records[0]["tool"])
	assert.Equal(t, "ok", records[0]["status"])
}

func TestServer_InvokeUnknownTool(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/api/tools/no_such_tool", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_InvokeBadJSON(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/api/tools/echo", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_InvokeEmptyBody(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest("POST", "/api/tools/echo", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	// No args means the echo tool returns null, which is still a clean call.
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ActionsLimit(t *testing.T) {
	s := newTestServer(t, "")
	handler := s.Handler()

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/api/tools/echo", strings.NewReader(`{"message":"m"}`))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest("GET", "/api/actions?limit=2", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, "")
	handler := s.Handler()

	req := httptest.NewRequest("POST", "/api/tools/echo", strings.NewReader(`{"message":"m"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "actionlog_appends_total")
	assert.Contains(t, body, "actionlog_invocations_total")
}
