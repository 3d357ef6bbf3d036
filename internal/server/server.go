package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"codehelper/internal/app"
	"codehelper/internal/usage"
	"codehelper/internal/util"
)

const (
	serviceName         = "codehelper"
	serviceMessage      = "AI Code Helper API"
	defaultMaxBodyBytes = 1 << 20
)

// UsageReporter exposes recorded usage counters.
type UsageReporter interface {
	Counts(ctx context.Context, day time.Time) (usage.Counts, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Provider       string
	MaxBodyBytes   int64
	TrustedProxies *util.TrustedProxies
	Usage          UsageReporter
}

// Server exposes the prompt gateway over HTTP.
type Server struct {
	app            *app.App
	provider       string
	maxBodyBytes   int64
	trustedProxies *util.TrustedProxies
	usage          UsageReporter
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	s := &Server{
		app:            cfg.App,
		provider:       cfg.Provider,
		maxBodyBytes:   maxBody,
		trustedProxies: cfg.TrustedProxies,
		usage:          cfg.Usage,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog(serviceName, s.trustedProxies,
			util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/code/explain", s.codeHandler(app.KindExplain))
	s.mux.HandleFunc("/api/code/debug", s.codeHandler(app.KindDebug))
	s.mux.HandleFunc("/api/code/translate", s.codeHandler(app.KindTranslate))
	s.mux.HandleFunc("/api/code/optimize", s.codeHandler(app.KindOptimize))
	s.mux.HandleFunc("/api/concept/explain", s.handleConceptExplain)

	s.mux.HandleFunc("/api/usage", s.handleUsage)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     serviceMessage,
		"status":      "running",
		"ai_provider": s.provider,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// codeHandler serves one code task; the body's "task" field is ignored
// because the route already names the task.
func (s *Server) codeHandler(kind app.TaskKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req codeRequest
		if !s.decode(w, r, &req) {
			return
		}
		env, err := s.app.RunTask(r.Context(), app.TaskRequest{
			Content:  req.Code,
			Language: req.Language,
			Kind:     kind,
		})
		writeEnvelope(w, env, err)
	}
}

func (s *Server) handleConceptExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req conceptRequest
	if !s.decode(w, r, &req) {
		return
	}
	env, err := s.app.ExplainConcept(r.Context(), app.ConceptRequest{
		Concept: req.Concept,
		Level:   req.Level,
	})
	writeEnvelope(w, env, err)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.usage == nil {
		writeError(w, http.StatusNotFound, "usage tracking not enabled")
		return
	}
	day, err := usage.ParseDay(r.URL.Query().Get("day"), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	counts, err := s.usage.Counts(r.Context(), day)
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("usage read failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "usage store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"day":     day.Format("2006-01-02"),
		"usage":   counts,
	})
}

// decode reads a JSON body into out. An empty body decodes as an empty
// request so field validation can name what is missing.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, s.maxBodyBytes)).Decode(out)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type codeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Task     string `json:"task"`
}

type conceptRequest struct {
	Concept string `json:"concept"`
	Level   string `json:"level"`
}

// writeEnvelope maps gateway results onto HTTP: invalid input is a 400,
// everything else (including backend failures) is a 200 envelope.
func writeEnvelope(w http.ResponseWriter, env app.Envelope, err error) {
	if err != nil {
		if errors.Is(err, app.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
