package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkkkikiki/coupon-ledger/internal/api/ledgerv1"
	"github.com/kkkkikiki/coupon-ledger/internal/config"
	"github.com/kkkkikiki/coupon-ledger/internal/database"
	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/logger"
	"github.com/kkkkikiki/coupon-ledger/internal/middleware"
	"github.com/kkkkikiki/coupon-ledger/internal/service"
	"github.com/kkkkikiki/coupon-ledger/internal/web"
)

func main() {
	ctx := context.Background()

	// Load configuration from .env and environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.App)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logg.Sync()

	logg.Info("Starting coupon ledger", zap.String("store", cfg.Store.Driver))

	// Initialize storage
	store, err := database.Open(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error("Error closing store", zap.Error(err))
		}
	}()

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Fatal("Invalid timezone", zap.Error(err))
	}
	ledgerService := ledger.NewService(store, ledger.WithLocation(loc))

	webHandler, err := web.NewHandler(ledgerService, logg)
	if err != nil {
		logg.Fatal("Failed to load templates", zap.Error(err))
	}

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register ledger RPC handler
	path, handler := ledgerv1.NewLedgerServiceHandler(service.NewLedgerServer(ledgerService, logg))
	mux.Handle(path, handler)

	// Add health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"ok","service":"coupon-ledger","hostname":"%s"}`, hostname)
		w.Write([]byte(response))
	})

	// Add store health check endpoint
	mux.HandleFunc("/health/db", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"error","message":"%s unavailable"}`, cfg.Store.Driver)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","%s":"connected"}`, cfg.Store.Driver)
	})

	// Add Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Web pages take every remaining path
	mux.Handle("/", webHandler.Routes())

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(middleware.Logger(logg, mux), &http2.Server{
			MaxConcurrentStreams: 1000,
		}),
	}

	// Start server in goroutine
	go func() {
		logg.Info("Listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logg.Info("Server exited gracefully")
}
