// Package api serves the control messages over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/ZUGAZ/likes-to-go/internal/metrics"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

// maxBody caps a message body; a full batch of a large likes page fits
const maxBody = 8 << 20

// Controller answers control messages
type Controller interface {
	Handle(ctx context.Context, raw []byte) message.StateResponse
}

// Server is the HTTP control API
type Server struct {
	ctrl    Controller
	metrics *metrics.Metrics
	log     logger.Logger
	router  chi.Router
}

// NewServer builds the router
func NewServer(ctrl Controller, m *metrics.Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Server{ctrl: ctrl, metrics: m, log: log.WithField("component", "api")}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestID)
	r.Use(s.logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.postMessage)
		r.Get("/state", s.getState)
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogComponentStart(s.log, "api", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	logger.LogComponentStop(s.log, "api", "shutdown")
	return err
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		s.respond(w, http.StatusBadRequest, message.ErrorResponse(errors.Wrap(errors.ErrorTypeTransport, "read body", err)))
		return
	}
	if len(raw) > maxBody {
		s.respond(w, http.StatusRequestEntityTooLarge, message.ErrorResponse(errors.New(errors.ErrorTypeValidation, "read body", "message too large")))
		return
	}

	// rejected messages are answered in the body like any other state
	s.respond(w, http.StatusOK, s.ctrl.Handle(r.Context(), raw))
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.ctrl.Handle(r.Context(), message.MustEncode(message.GetState{})))
}

func (s *Server) respond(w http.ResponseWriter, status int, resp message.StateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(resp.Encode())
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.ObserveRequest(route, strconv.Itoa(code))
		logger.LogRequest(s.log, r.Method, route, code, time.Since(start))
	})
}
