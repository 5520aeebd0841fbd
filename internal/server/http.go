// Package server exposes the scan API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/internal/services"
	"github.com/alamshoaib134/git-secret-scanner/models"
)

// Version is reported by the health endpoint and the CLI.
const Version = "2.0.0"

// Mode names the scanning depth in health output.
const Mode = "Full Mode (Deep Scan)"

// MaxRequestBodySize limits request bodies to 1MB.
const MaxRequestBodySize = 1 << 20

// Scans is the job API the handlers call. *services.Orchestrator
// implements it.
type Scans interface {
	Submit(ctx context.Context, url string) (models.ScanStatus, error)
	Status(id string) (models.ScanStatus, error)
	MaxCommits() int
}

var _ Scans = (*services.Orchestrator)(nil)

// Server provides the HTTP API.
type Server struct {
	scans    Scans
	patterns int
	addr     string
	mux      *http.ServeMux
	log      *zap.SugaredLogger
}

// NewServer creates a server for scans. patterns is the catalog size shown
// by the health check.
func NewServer(scans Scans, patterns int, addr string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		scans:    scans,
		patterns: patterns,
		addr:     addr,
		mux:      http.NewServeMux(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/scan", s.handleStartScan)
	s.mux.HandleFunc("GET /api/scan/{scan_id}", s.handleScanStatus)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns the routes wrapped in the CORS and access-log middleware.
func (s *Server) Handler() http.Handler {
	return s.accessLog(cors(s.mux))
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infow("http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.log.Infow("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Response helpers
func (s *Server) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, status int) {
	s.jsonResponse(w, map[string]string{"detail": message}, status)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid JSON or request too large", http.StatusBadRequest)
		return
	}

	st, err := s.scans.Submit(r.Context(), req.GitURL)
	switch {
	case errors.Is(err, services.ErrEmptyURL):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		s.log.Errorw("submit scan failed", "error", err)
		s.errorResponse(w, "could not start scan", http.StatusInternalServerError)
	default:
		s.jsonResponse(w, st, http.StatusOK)
	}
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.scans.Status(r.PathValue("scan_id"))
	if errors.Is(err, models.ErrJobNotFound) {
		s.errorResponse(w, "Scan not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, st, http.StatusOK)
}

type health struct {
	Status     string   `json:"status"`
	Version    string   `json:"version"`
	Mode       string   `json:"mode"`
	Features   []string `json:"features"`
	Patterns   int      `json:"patterns"`
	MaxCommits int      `json:"max_commits"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	maxCommits := s.scans.MaxCommits()
	s.jsonResponse(w, health{
		Status:  "healthy",
		Version: Version,
		Mode:    Mode,
		Features: []string{
			"Clones full repository",
			fmt.Sprintf("Scans up to %d commits", maxCommits),
			"Finds secrets in deleted files",
			fmt.Sprintf("%d secret patterns", s.patterns),
		},
		Patterns:   s.patterns,
		MaxCommits: maxCommits,
	}, http.StatusOK)
}

// cors allows every origin, method and header. Credentialed requests get
// their Origin echoed back since browsers reject "*" for them.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if strings.HasPrefix(path, "/api/health") {
			return
		}
		s.log.Debugw("http request", "method", r.Method, "path", path,
			"status", rec.status, "duration", time.Since(start))
	})
}
