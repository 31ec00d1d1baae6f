package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raffleapp/registration/internal/config"
	"github.com/raffleapp/registration/internal/db"
	"github.com/raffleapp/registration/internal/districts"
	"github.com/raffleapp/registration/internal/geocoding"
	"github.com/raffleapp/registration/internal/logger"
	"github.com/raffleapp/registration/internal/metrics"
	"github.com/raffleapp/registration/internal/middleware"
	"github.com/raffleapp/registration/internal/registration"
	"github.com/raffleapp/registration/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.SetFingerprintKey(cfg.SecretKey)

	gdb, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := registration.Migrate(gdb); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to database")

	m := metrics.New(prometheus.DefaultRegisterer)
	store := registration.NewGormStore(gdb)
	svc := registration.NewService(registration.Deps{
		Registry: districts.Default,
		Geocoder: geocoding.NewClient(geocoding.Config{
			BaseURL:           cfg.NominatimURL,
			UserAgent:         cfg.GeocoderUserAgent,
			Timeout:           cfg.GeocoderTimeout,
			RequestsPerSecond: cfg.GeocoderRPS,
		}),
		Store:   store,
		Links:   registration.NewCachedLinks(store, cfg.LinkCacheTTL, m),
		Metrics: m,
		Logger:  log,
	})

	h := web.NewHandler(svc, districts.Default, web.NewCSRF(cfg.SecretKey, cfg.CookieSecure), log)
	throttle := middleware.NewThrottle(cfg.SubmitRPS, cfg.SubmitBurst, 10*time.Minute, log).
		TrustProxies(cfg.TrustedProxies...)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(logger.AccessMiddleware(log))
	r.Use(middleware.Recover(log))
	r.Get("/healthz", web.Health(store, log))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", h.SetupRoutes(throttle))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.GeocoderTimeout + 20*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
