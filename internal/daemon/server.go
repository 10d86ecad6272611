// Package daemon exposes the accountant to the browser bridge and local
// clients over HTTP.
package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

// maxBodyBytes caps tab event payloads.
const maxBodyBytes = 64 << 10

// TabEvent is the body of the tab event endpoints.
type TabEvent struct {
	URL        string `json:"url"`
	FaviconURL string `json:"favicon_url"`
}

// ActiveState answers "which domain is in the foreground".
type ActiveState struct {
	Domain        string     `json:"domain"`
	Tracking      bool       `json:"tracking"`
	IntervalStart *time.Time `json:"interval_start,omitempty"`
}

// StatusResponse is served on /status.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	Version   string
	AuthToken string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// Server routes tab events into an Accountant and serves stored records.
type Server struct {
	accountant *tracker.Accountant
	store      storage.Store
	opts       Options
	logger     zerolog.Logger
	router     chi.Router
}

// NewServer builds the router.
func NewServer(acc *tracker.Accountant, store storage.Store, opts Options) *Server {
	s := &Server{
		accountant: acc,
		store:      store,
		opts:       opts,
		logger:     opts.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/status", s.handleStatus)

	r.Group(func(r chi.Router) {
		if s.opts.AuthToken != "" {
			r.Use(requireBearer(s.opts.AuthToken, s.logger))
		}
		if s.opts.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
		}

		r.Route("/v1", func(r chi.Router) {
			r.Post("/tabs/activated", s.handleTabActivated)
			r.Post("/tabs/navigated", s.handleTabNavigated)
			r.Post("/tabs/favicon", s.handleFavicon)
			r.Get("/active", s.handleActive)
			r.Get("/records", s.handleRecords)
			r.Get("/records/{domain}", s.handleRecord)
		})
	})

	return r
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("daemon listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("daemon stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Version: s.opts.Version})
}

func (s *Server) handleTabActivated(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if err := s.accountant.OnTabActivated(r.Context(), ev.URL, ev.FaviconURL); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.handleActive(w, r)
}

func (s *Server) handleTabNavigated(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if err := s.accountant.OnActiveTabURLChanged(r.Context(), ev.URL, ev.FaviconURL); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.handleActive(w, r)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	if err := s.accountant.OnFaviconChanged(r.Context(), ev.FaviconURL); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	st := s.accountant.State()
	resp := ActiveState{Domain: st.ActiveDomain, Tracking: st.Tracking}
	if st.Tracking {
		start := st.IntervalStart.UTC()
		resp.IntervalStart = &start
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.All(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	out := make(map[string]storage.DomainRecord, len(records))
	for _, rec := range records {
		out[rec.Domain] = rec
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(chi.URLParam(r, "domain"))
	rec, err := s.store.Get(r.Context(), domain)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if rec.Empty() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no record for " + domain})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (TabEvent, bool) {
	var ev TabEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&ev); err != nil {
		s.logger.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("invalid tab event")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return ev, false
	}
	return ev, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("store request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

func requireBearer(token string, l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				l.Warn().Str("request_id", middleware.GetReqID(r.Context())).Msg("bearer token mismatch")
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
