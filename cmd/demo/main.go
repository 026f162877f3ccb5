// Command demo runs a small HTTP server with keyed rate limiting, access
// logging and a Prometheus /metrics endpoint, wired the way a real service
// would wire this library.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mkessel/ratemeter/keyed"
	"github.com/mkessel/ratemeter/metrics"
	"github.com/mkessel/ratemeter/middleware"
	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

func setupLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", rec.status).
				Dur("dur", time.Since(start)).
				Msg("req")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		logLevel   = flag.String("log-level", "info", "zerolog level")
		configPath = flag.String("config", "", "path to a YAML policy file (optional)")
	)
	flag.Parse()

	logger := setupLogger(*logLevel)

	policies := keyed.NewConfig()
	if *configPath != "" {
		loaded, err := keyed.LoadConfigFile(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		policies = loaded
		logger.Info().Str("path", *configPath).Int("policies", len(policies.Policies)).Msg("config loaded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	rl, err := middleware.NewRateLimiter(middleware.Config{
		Policies:  policies,
		KeyFunc:   middleware.ExtractIPWithProxy(),
		SkipPaths: []string{"/health", "/metrics"},
		OnDecision: func(route string, d ratemeter.Decision) {
			m.Observe(route, d)
			if !d.Allowed {
				logger.Debug().Str("route", route).Time("retry_at", d.RetryAt).Msg("rate limited")
			}
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build rate limiter")
	}
	stopCleanup := rl.StartBackgroundCleanup(10*time.Minute, policies.CleanupAgeDuration())
	defer stopCleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":"hello"}`))
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"login":"ok"}`))
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           accessLog(logger)(rl.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("bye")
}
