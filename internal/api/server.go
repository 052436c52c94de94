// Package api serves the ActivityPub surface of every podcast actor:
// webfinger discovery, actor documents, collections and the inbox.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"podfed/internal/activitypub"
	"podfed/internal/config"
	"podfed/internal/core"
)

type contextKey string

const loggerContextKey = contextKey("logger")

const defaultListen = ":8888"

type Server struct {
	Logger     *slog.Logger
	Config     *config.Config
	URLs       *activitypub.URLs
	Keys       core.KeyStore
	Metadata   core.Metadata
	Followers  core.FollowerRepository
	Replies    core.ReplyRepository
	Dispatcher core.Dispatcher
	Verifier   core.SignatureVerifier

	server *http.Server
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) Run(ctx context.Context) error {
	s.Logger.Info("Starting API server", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logger(ctx context.Context) *slog.Logger {
	return ctx.Value(loggerContextKey).(*slog.Logger)
}

func (s *Server) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "api.Server")

	addr := s.Config.Listen
	if addr == "" {
		addr = defaultListen
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      30 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	return nil
}

// Handler returns the router with every route and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()

	r.Use(
		// Logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger := s.Logger.With("method", r.Method, "path", r.URL.Path)
				ctx := context.WithValue(r.Context(), loggerContextKey, logger)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},

		// Logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

				next.ServeHTTP(sw, r)

				duration := time.Since(start)
				logger(r.Context()).Info("request",
					"duration", duration, "status", sw.status, "user_agent", r.UserAgent())
			})
		},

		// Recovering panics and logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if err := recover(); err != nil {
						logger(r.Context()).Error("panic recovered", "error", err)
						http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					}
				}()
				next.ServeHTTP(w, r)
			})
		},
	)

	r.Get("/.well-known/webfinger", s.webfinger)
	r.Get("/podcasts", s.actor)
	r.Get("/profiles", s.profile)
	r.Post("/inbox", s.inbox)
	r.Get("/outbox", s.outbox)
	r.Get("/followers", s.followers)
	r.Get("/following", s.following)
	r.Get("/featured", s.featured)
	r.Get("/episodes", s.episode)
	r.Get("/contexts", s.context)

	return r
}
