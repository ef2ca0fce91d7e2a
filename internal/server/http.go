// Package server exposes the agent over HTTP: tool invocation, the recent
// action trail, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fastjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/coffersTech/actionlog/internal/agent"
	"github.com/coffersTech/actionlog/internal/logread"
)

// defaultActionsLimit bounds GET /api/actions when no limit is given.
const defaultActionsLimit = 50

type Server struct {
	agent      *agent.Agent
	reader     *logread.Reader
	apiKeyHash string
	registry   *prometheus.Registry
	srv        *http.Server
	parser     fastjson.ParserPool
}

// New creates the HTTP server. apiKeyHash is the bcrypt hash of the bearer
// key; empty disables authentication. registry may be nil to skip /metrics.
func New(ag *agent.Agent, reader *logread.Reader, apiKeyHash string, registry *prometheus.Registry) *Server {
	return &Server{
		agent:      ag,
		reader:     reader,
		apiKeyHash: apiKeyHash,
		registry:   registry,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/tools", s.AuthMiddleware(http.HandlerFunc(s.handleTools)))
	mux.Handle("/api/tools/", s.AuthMiddleware(http.HandlerFunc(s.handleInvoke)))
	mux.Handle("/api/actions", s.AuthMiddleware(http.HandlerFunc(s.handleActions)))
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start(addr string) error {
	if s.apiKeyHash == "" {
		log.Printf("WARNING: no API key hash configured, authentication disabled")
	}
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// AuthMiddleware checks the bearer token against the configured bcrypt hash.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="actionlog"`)
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.apiKeyHash), []byte(token)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="actionlog"`)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleTools lists the registered tool names.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.agent.Tools()); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

// handleInvoke runs one tool. POST /api/tools/{name} with a JSON object body
// of named arguments; an empty body means no arguments.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/tools/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "Invalid tool name", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	args := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 {
		p := s.parser.Get()
		defer s.parser.Put(p)

		v, err := p.ParseBytes(body)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
			return
		}
		if v.Type() != fastjson.TypeObject {
			http.Error(w, "Request body must be a JSON object", http.StatusBadRequest)
			return
		}
		args = toArgsMap(v)
	}

	id := uuid.NewString()
	result, err := s.agent.Invoke(r.Context(), name, args)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		if strings.HasPrefix(err.Error(), "unknown tool") {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"id":    id,
			"tool":  name,
			"error": err.Error(),
		})
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"tool":   name,
		"result": result,
	}); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

// handleActions returns the most recent action records.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultActionsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	lines, err := s.reader.Recent(limit)
	if err != nil {
		log.Printf("Failed to read action log: %v", err)
		http.Error(w, "Failed to read action log", http.StatusInternalServerError)
		return
	}

	records := make([]json.RawMessage, len(lines))
	for i, line := range lines {
		records[i] = json.RawMessage(line)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

// toArgsMap converts a parsed fastjson object into plain Go values.
func toArgsMap(v *fastjson.Value) map[string]any {
	args := map[string]any{}
	obj, err := v.Object()
	if err != nil {
		return args
	}
	obj.Visit(func(key []byte, val *fastjson.Value) {
		args[string(key)] = toGoValue(val)
	})
	return args
}

func toGoValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		return toArgsMap(v)
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, toGoValue(item))
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
