// Package web provides an HTTP status and control server for the pin-toggler daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sweeney/pin-toggler/internal/status"
	"github.com/sweeney/pin-toggler/internal/toggler"
)

// RateSetter applies a rate to a pin index.
type RateSetter interface {
	SetRate(index int, rate toggler.Rate) error
}

// Options configure a Server.
type Options struct {
	Addr    string
	Tracker *status.Tracker

	// Setter handles POST /pins/{index}/rate. Nil disables the endpoint.
	Setter RateSetter

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	Log zerolog.Logger
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	setter     RateSetter
	log        zerolog.Logger
}

// New creates a Server that reads state from the given tracker.
func New(opts Options) *Server {
	s := &Server{
		tracker: opts.Tracker,
		setter:  opts.Setter,
		log:     opts.Log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	if opts.Setter != nil {
		mux.HandleFunc("POST /pins/{index}/rate", s.handleSetRate)
	}

	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Error().Err(err).Msg("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// RateResponse is the body returned by POST /pins/{index}/rate.
type RateResponse struct {
	Index int    `json:"index"`
	Rate  string `json:"rate,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeRate(w, http.StatusBadRequest, RateResponse{Error: "invalid pin index"})
		return
	}
	rate, err := toggler.ParseRate(r.FormValue("rate"))
	if err != nil {
		writeRate(w, http.StatusBadRequest, RateResponse{Index: index, Error: err.Error()})
		return
	}

	if err := s.setter.SetRate(index, rate); err != nil {
		s.log.Warn().Err(err).Int("index", index).Str("rate", rate.String()).Msg("http rate change rejected")
		writeRate(w, statusForError(err), RateResponse{Index: index, Error: err.Error()})
		return
	}
	writeRate(w, http.StatusOK, RateResponse{Index: index, Rate: rate.String()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, toggler.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, toggler.ErrInvalidRate):
		return http.StatusBadRequest
	case errors.Is(err, toggler.ErrShapeMismatch):
		return http.StatusConflict
	case errors.Is(err, toggler.ErrNotInitialized):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeRate(w http.ResponseWriter, code int, body RateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
