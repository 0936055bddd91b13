// Package main is the entrypoint for the connection pool demo
// service. It loads configuration, builds one named pool per
// configured SQL Server instance, and exposes health and metrics over
// HTTP, in the same shape as the teacher's proxy entrypoint minus the
// TDS relay and distributed coordination it doesn't need.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joao-brasil/go-connection-pool/internal/adapter/mssql"
	"github.com/joao-brasil/go-connection-pool/internal/config"
	"github.com/joao-brasil/go-connection-pool/internal/health"
	"github.com/joao-brasil/go-connection-pool/internal/metrics"
	"github.com/joao-brasil/go-connection-pool/internal/registry"
	"github.com/joao-brasil/go-connection-pool/pkg/pool"
)

var (
	serviceConfigPath = flag.String("config", "configs/service.yaml", "Path to service configuration file")
	poolsConfigPath   = flag.String("pools", "configs/pools.yaml", "Path to pools configuration file")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[main] Starting connection pool demo service")

	cfg, err := config.Load(*serviceConfigPath, *poolsConfigPath)
	if err != nil {
		log.Fatalf("[main] Failed to load configuration: %v", err)
	}
	log.Printf("[main] Configuration loaded: %d pools, instance=%s", len(cfg.Pools), cfg.Service.InstanceID)

	for _, p := range cfg.Pools {
		log.Printf("[main]   Pool %s → %s:%d (min=%d, max=%d)", p.Name, p.Host, p.Port, p.MinSize, p.MaxSize)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Service.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[main] Metrics server listening on :%d/metrics", cfg.Service.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[main] Metrics server error: %v", err)
		}
	}()

	checker := health.NewChecker(cfg)
	healthServer := checker.ServeHTTP(context.Background())

	log.Println("[main] Running initial health check...")
	report := checker.Check(context.Background())
	for _, comp := range report.Components {
		log.Printf("[main]   %s: %s (latency: %s)", comp.Name, comp.Message, comp.Latency)
	}
	log.Printf("[main] Overall health: %s", report.Status)

	log.Println("[main] Initializing pool registry...")
	names := make([]string, len(cfg.Pools))
	for i, p := range cfg.Pools {
		names[i] = p.Name
	}

	reg, err := registry.New[*mssql.Session](context.Background(), names, func(name string) (pool.Manager[*mssql.Session], pool.Config, []pool.Option, error) {
		pc, ok := cfg.PoolByName(name)
		if !ok {
			return nil, pool.Config{}, nil, fmt.Errorf("no config for pool %s", name)
		}
		manager := mssql.NewManager(mssql.Config{
			Host:           pc.Host,
			Port:           pc.Port,
			Database:       pc.Database,
			Username:       pc.Username,
			Password:       pc.Password,
			ConnectTimeout: pc.ConnectTimeout,
		})
		opts := []pool.Option{pool.WithInstrumentation(metrics.NewInstrumentation(name))}
		if pc.ReapInterval > 0 {
			opts = append(opts, pool.WithReaper(pc.MaxIdleAge, pc.ReapInterval))
		}
		return manager, pool.Config{MinSize: pc.MinSize, MaxSize: pc.MaxSize}, opts, nil
	})
	if err != nil {
		log.Fatalf("[main] Failed to initialize pool registry: %v", err)
	}
	defer func() {
		log.Println("[main] Closing pool registry...")
		reg.Close()
	}()
	log.Println("[main] Pool registry ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[main] Service is ready. Waiting for shutdown signal...")
	sig := <-sigCh
	log.Printf("[main] Received signal %v, shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Health server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Metrics server shutdown error: %v", err)
	}

	log.Println("[main] Shutdown complete.")
}
