// Package server exposes the table-processing pipeline over HTTP: upload a
// spreadsheet, configure steps, run a preview or full pass, download the
// enriched result. Sessions are in-memory only.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
)

// Server is the HTTP front end for the processing pipeline.
type Server struct {
	envConfig    *config.EnvConfig
	serverConfig *config.ServerConfig
	store        *SessionStore
	router       *chi.Mux
	verbose      bool
}

// NewServer creates a server with its middleware and routes configured.
func NewServer(envConfig *config.EnvConfig, serverConfig *config.ServerConfig, verbose bool) *Server {
	if serverConfig == nil {
		serverConfig = config.DefaultServerConfig()
	}
	s := &Server{
		envConfig:    envConfig,
		serverConfig: serverConfig,
		store:        NewSessionStore(),
		router:       chi.NewRouter(),
		verbose:      verbose,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	// Model calls dominate request time; allow for a full preview round trip
	s.router.Use(middleware.Timeout(5 * time.Minute))

	if s.serverConfig.BearerToken != "" {
		s.router.Use(s.bearerAuth)
	}
	if s.serverConfig.CORS.Enabled {
		s.router.Use(s.corsHeaders)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Route("/session/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Put("/steps", s.handlePutSteps)
			r.Post("/process", s.handleProcess)
			r.Get("/download", s.handleDownload)
			r.Delete("/", s.handleDeleteSession)
		})
	})
}

// Handler returns the configured root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.serverConfig.Port)
	log.Printf("Starting table processing server on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}
	return srv.ListenAndServe()
}

// bearerAuth rejects requests without the configured bearer token. The health
// endpoint stays open for probes.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.serverConfig.BearerToken {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsHeaders(next http.Handler) http.Handler {
	origins := "*"
	if len(s.serverConfig.CORS.AllowedOrigins) > 0 {
		origins = strings.Join(s.serverConfig.CORS.AllowedOrigins, ", ")
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
