package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
)

// Server is the HTTP boundary: it authenticates callers, turns submissions
// into job store writes and exposes status reads and artifact downloads. All
// pipeline work happens in the worker pool; the two communicate only through
// the store.
type Server struct {
	store     *store.Store
	artifacts *storage.LocalStorage
	cfg       *config.Config
	secret    []byte
}

func NewServer(st *store.Store, artifacts *storage.LocalStorage, cfg *config.Config) *Server {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		secret = "your-secret-key-change-in-production"
		log.Println("[api] SECRET_KEY not set, using insecure default")
	}
	return &Server{store: st, artifacts: artifacts, cfg: cfg, secret: []byte(secret)}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/create-video", s.requireAuth(s.handleCreateVideo))
	mux.HandleFunc("GET /api/videos", s.requireAuth(s.handleListVideos))
	mux.HandleFunc("GET /api/video/{id}", s.requireAuth(s.handleGetVideo))
	mux.HandleFunc("GET /videos/{ref}", s.handleDownload)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s.cors(mux)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Reddit Video Generator API",
		"version": "1.0.0",
	})
}

// cors applies the configured allowed origins. An empty list allows none.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
