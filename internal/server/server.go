// Package server provides the HTTP surface of the drawing application.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/easel/internal/app"
	"github.com/ayusman/easel/internal/server/api"
)

// Controller is the application as driven over HTTP.
type Controller interface {
	api.DrawingSource
	api.BrushControl
	Status() app.Status
	OverlayJPEG() ([]byte, error)
	Subscribe() (<-chan app.FrameEvent, func())
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Controller Controller
}

// Server represents the HTTP server.
type Server struct {
	config     Config
	router     *chi.Mux
	httpServer *http.Server
	start      time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}

	s.router.Use(chiMiddleware.RequestID)
	s.router.Use(chiMiddleware.RealIP)
	s.router.Use(chiMiddleware.Logger)
	s.router.Use(chiMiddleware.Recoverer)

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		if c := s.config.Controller; c != nil {
			drawing := api.NewDrawingHandler(c)
			brush := api.NewBrushHandler(c)

			r.Get("/status", s.handleStatus)
			r.Get("/drawing", drawing.GetPNG)
			r.Get("/drawing.pdf", drawing.GetPDF)
			r.Delete("/drawing", drawing.Delete)
			r.Get("/brush", brush.Get)
			r.Put("/brush", brush.Put)
			r.Handle("/stream", NewStreamHandler(c))
			r.Handle("/events", NewEventsHandler(c))
		}

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Not found", http.StatusNotFound)
		})
	})

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.config.Controller.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until it is shut down.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting web server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
