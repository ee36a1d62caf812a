// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package admin serves the operator HTTP surface: watcher listings, forced discovery,
// manual watches, progress tracking and metrics.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

const shutdownTimeout = 10 * time.Second

// Provider is the part of a provider the admin surface drives.
type Provider interface {
	Name() string
	Update(ctx context.Context, force bool) int
	Watch(ctx context.Context, watchID string) (*watcher.Watcher, error)
}

type Registry interface {
	List() []*watcher.Watcher
	GetByID(id string) *watcher.Watcher
}

type Tracker interface {
	Track(id, cid string) (bool, error)
	Untrack(id, cid string) (bool, error)
}

type Deps struct {
	Registry  Registry
	Providers []Provider
	Tracker   Tracker
	Gatherer  prometheus.Gatherer
	Logger    *logrus.Entry
}

// NewRouter builds the admin routes on a chi router.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	providers := make(map[string]Provider, len(deps.Providers))
	for _, p := range deps.Providers {
		providers[p.Name()] = p
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/watchers", func(r chi.Router) {
		r.Get("/", handleListWatchers(deps.Registry))
		r.Get("/{id}", handleGetWatcher(deps.Registry))
		r.Post("/{id}/track/{cid}", handleTrack(deps.Tracker, true))
		r.Delete("/{id}/track/{cid}", handleTrack(deps.Tracker, false))
	})

	r.Route("/providers/{provider}", func(r chi.Router) {
		r.Use(providerMiddleware(providers))
		r.Post("/update", handleUpdate(deps.Logger))
		r.Post("/watch/{watchId}", handleWatch(deps.Logger))
	})

	return otelhttp.NewHandler(r, "admin")
}

func requestLogger(log *logrus.Entry) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithFields(logrus.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"request_id":  middleware.GetReqID(r.Context()),
				}).Debug("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

type Server struct {
	srv *http.Server
	log *logrus.Entry
}

func NewServer(addr string, handler http.Handler, log *logrus.Entry) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.log.Infof("admin listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("[admin] shutdown failed")
		}
	}()

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
