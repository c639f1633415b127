package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tollgate/cmd/server/config"
	"tollgate/internal/httpapi"
	"tollgate/internal/observability"
	"tollgate/internal/paystack"
	"tollgate/internal/realtime"
	"tollgate/internal/settlement"

	"github.com/joho/godotenv"
)

func main() {
	// Local dev convenience; production sets real env.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context) error {
	serverCfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	providerCfg, err := config.LoadProvider()
	if err != nil {
		return err
	}

	client, err := paystack.NewClient(paystack.Config{
		BaseURL:       providerCfg.BaseURL,
		Enabled:       providerCfg.Enabled,
		Demo:          providerCfg.Demo,
		TestSecretKey: providerCfg.TestSecretKey,
		LiveSecretKey: providerCfg.LiveSecretKey,
		Timeout:       providerCfg.Timeout,
	})
	if err != nil {
		return err
	}

	gateway, cleanupGateway, err := buildOrderGateway(ctx, os.Getenv("DATABASE_URL"), log.Printf)
	if err != nil {
		return err
	}
	defer cleanupGateway()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	publisher, cleanupEvents, err := buildEventPublisher(ctx, hub)
	if err != nil {
		return err
	}
	defer cleanupEvents()

	service := settlement.NewService(gateway, client, publisher, log.Printf)
	initiator := settlement.NewInitiator(gateway, gateway, client, func(orderID string) string {
		return serverCfg.PublicBaseURL + "/payment/return?order=" + url.QueryEscape(orderID)
	})

	metrics := observability.NewMetrics()
	var limiter *httpapi.RateLimiter
	if serverCfg.RateLimitInterval > 0 && serverCfg.RateLimitBurst > 0 {
		limiter = httpapi.NewRateLimiter(serverCfg.RateLimitInterval, serverCfg.RateLimitBurst, metrics.AddRateLimitWait)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /ws/settlements", hub)

	handler := httpapi.NewHandler(service, initiator, metrics, log.Printf)
	handler.Register(mux, func(op string, next http.Handler) http.Handler {
		return httpapi.Instrument(op, limiter, metrics)(next)
	})

	srv := &http.Server{
		Addr:    serverCfg.Addr,
		Handler: mux,
	}

	obsSrv, err := startObservabilityServer(metrics)
	if err != nil {
		return err
	}

	log.Printf("settlement server running on %s", serverCfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		metrics.MarkShutdown(metrics.Snapshot().InFlight)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
		if obsSrv != nil {
			obsCtx, obsCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer obsCancel()
			_ = obsSrv.Shutdown(obsCtx)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func startObservabilityServer(metrics *observability.Metrics) (*http.Server, error) {
	cfg, err := config.LoadObservability()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(metrics))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("observability server error: %v", err)
		}
	}()

	return srv, nil
}
