package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/metrics"
	"github.com/Sternrassler/cin7-report-sync/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// usageSource exposes per-account counters to the admin server.
type usageSource interface {
	Accounts() []string
	Usage(account string) ratelimit.Usage
}

// newAdminRouter serves health, Prometheus metrics and live tracker usage.
func newAdminRouter(usage usageSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/usage", func(w http.ResponseWriter, _ *http.Request) {
		accounts := usage.Accounts()
		out := make([]ratelimit.Usage, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, usage.Usage(a))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	r.Get("/usage/{account}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(usage.Usage(chi.URLParam(req, "account"))); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}

// startAdmin runs the admin server in the background. The returned function
// shuts it down.
func startAdmin(addr string, usage usageSource) func() {
	logger := logging.NewLogger("admin")
	srv := &http.Server{
		Addr:              addr,
		Handler:           newAdminRouter(usage),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Admin server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Admin server shutdown")
		}
	}
}
