// Package server exposes the radio pipeline over an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/line72/boldaric"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
	"github.com/line72/boldaric/station"
)

// Config holds HTTP server settings.
type Config struct {
	Address string // listen address, host:port
	Salt    string // secret mixed into auth tokens
}

// Server is the HTTP front end: station CRUD, ratings, and the next-song
// endpoint.
type Server struct {
	config   Config
	stations *station.Store
	radio    *boldaric.Radio
	router   chi.Router
}

// New creates the Server and mounts its routes.
func New(cfg Config, stations *station.Store, radio *boldaric.Radio) *Server {
	s := &Server{
		config:   cfg,
		stations: stations,
		radio:    radio,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth", s.handleAuth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stations", s.handleListStations)
			r.Post("/stations", s.handleCreateStation)

			r.Route("/station/{stationID}", func(r chi.Router) {
				r.Get("/", s.handleNextSong)
				r.Post("/seed", s.handleSeed)
				r.Post("/{songID}/thumbs_up", s.handleThumbsUp)
				r.Post("/{songID}/thumbs_down", s.handleThumbsDown)
				r.Get("/options", s.handleGetOptions)
				r.Put("/options", s.handleSetOptions)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "HTTP server listening", "address", s.config.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

// httpStatus maps domain errors onto response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrStationNotFound),
		errors.Is(err, model.ErrTrackNotFound),
		errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrDimensionMismatch),
		errors.Is(err, model.ErrInvalidAttributes):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
