package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hetu/internal/attestation"
	"hetu/internal/platform/config"
	"hetu/internal/platform/health"
	"hetu/internal/platform/httpserver"
	"hetu/internal/platform/logger"
	httptransport "hetu/internal/transport/http"
	"hetu/internal/verification/handler"
	"hetu/internal/verification/metrics"
	"hetu/internal/verification/service"
	"hetu/internal/verification/store"
	"hetu/internal/verification/tracer"
	"hetu/pkg/platform/audit"
	"hetu/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	log.Info("initializing hetu verifier",
		"addr", cfg.Addr,
		"cache_ttl", cfg.VerificationCacheTTL.String(),
		"attestation_ttl", cfg.AttestationTTL.String(),
		"admin_enabled", cfg.AdminTokenHash != "",
	)

	verdictCache := store.NewInMemoryCache(cfg.VerificationCacheTTL)
	verificationMetrics := metrics.New()
	spanTracer := tracer.NewOTel()

	receiptIssuer := attestation.New(
		cfg.AttestationSigningKey,
		cfg.AttestationIssuer,
		cfg.AttestationAudience,
		cfg.AttestationTTL,
	)

	verificationService := service.New(verdictCache,
		service.WithLogger(log),
		service.WithMetrics(verificationMetrics),
		service.WithTracer(spanTracer),
		service.WithReceiptIssuer(receiptIssuer),
	)

	auditLog := audit.NewLogger(log, audit.NewSlogEmitter(log))
	verificationHandler := handler.New(verificationService, auditLog, log,
		handler.WithHandlerTracer(spanTracer),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Config:       cfg,
		Logger:       log,
		Verification: verificationHandler,
		Health:       health.New(),
		Latency:      request.NewMetrics(),
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
