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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conclave/internal/cache"
	"conclave/internal/consensus"
	"conclave/internal/dispatch"
	dispatchmetrics "conclave/internal/dispatch/metrics"
	"conclave/internal/panel"
	panelhandler "conclave/internal/panel/handler"
	panelmetrics "conclave/internal/panel/metrics"
	"conclave/internal/platform/config"
	"conclave/internal/platform/httpserver"
	"conclave/internal/platform/logger"
	"conclave/internal/platform/middleware"
	platformredis "conclave/internal/platform/redis"
	"conclave/internal/registry"
	"conclave/internal/responder"
	"conclave/internal/synthesis"
	"conclave/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	reg, err := registry.Load(cfg.Engine.CataloguePath)
	if err != nil {
		log.Error("catalogue load failed", "path", cfg.Engine.CataloguePath, "error", err)
		os.Exit(1)
	}

	synonyms, err := consensus.LoadSynonyms(cfg.Engine.SynonymsPath)
	if err != nil {
		log.Error("synonym table load failed", "path", cfg.Engine.SynonymsPath, "error", err)
		os.Exit(1)
	}

	// The cache prefers Redis and falls back to process memory when no URL
	// is configured.
	var store cache.Store = cache.NewInMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		store = cache.NewRedis(redisClient.Client)
		defer redisClient.Close()
		log.Info("response cache backed by redis")
	} else {
		log.Info("response cache backed by process memory")
	}

	gateway, err := responder.NewGateway(cfg.Engine.GatewayURL, cfg.Engine.GatewayKey)
	if err != nil {
		log.Error("gateway construction failed", "error", err)
		os.Exit(1)
	}

	dispatcher, err := dispatch.New(gateway, store, log, dispatchmetrics.New(), dispatch.Config{
		Concurrency: cfg.Engine.Concurrency,
		MaxRetries:  cfg.Engine.MaxRetries,
		CacheTTL:    cfg.Engine.CacheTTL,
		CallTimeout: cfg.Engine.CallTimeout,
	})
	if err != nil {
		log.Error("dispatcher construction failed", "error", err)
		os.Exit(1)
	}

	synthesizer, err := synthesis.New(gateway, cfg.Engine.SynthesisRef, cfg.Engine.FacetBudget, log)
	if err != nil {
		log.Error("synthesizer construction failed", "error", err)
		os.Exit(1)
	}

	aggregator := consensus.NewAggregator(consensus.Config{
		PrimaryThreshold:     cfg.Engine.PrimaryThreshold,
		AlternativeThreshold: cfg.Engine.AlternativeThreshold,
	}, synonyms)

	service, err := panel.NewService(reg, dispatcher, aggregator, synthesizer, panelmetrics.New(), log, cfg.Engine.MinResponders)
	if err != nil {
		log.Error("panel service construction failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ContentTypeJSON)

	panelhandler.New(service, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["cache"] = "unreachable"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting conclave", "addr", cfg.Server.Addr, "responders", len(reg.All()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
