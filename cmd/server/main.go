package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stwalsh4118/parcelpicker/internal/config"
	"github.com/stwalsh4118/parcelpicker/internal/handlers"
	"github.com/stwalsh4118/parcelpicker/internal/logger"
	"github.com/stwalsh4118/parcelpicker/internal/metrics"
	"github.com/stwalsh4118/parcelpicker/internal/middleware"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/report"
	"github.com/stwalsh4118/parcelpicker/internal/services"
	"github.com/stwalsh4118/parcelpicker/internal/store"
	"github.com/stwalsh4118/parcelpicker/internal/wms"
)

const (
	shutdownTimeout = 30 * time.Second
	// janitorSweeps is how many idle-session sweeps run per SESSION_TTL.
	janitorSweeps   = 4
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting parcel picker API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	policy, err := services.ParsePolicy(cfg.Selection.ConfirmPolicy)
	if err != nil {
		log.Fatal("Invalid confirmation policy", err, nil)
	}
	schema, err := models.ParseSchema(cfg.Report.Schema)
	if err != nil {
		log.Fatal("Invalid table schema", err, nil)
	}

	// Prometheus registry with process and Go runtime collectors
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Land registry feature service client
	client := wms.NewClient(wms.Config{
		URL:     cfg.WMS.URL,
		Layer:   cfg.WMS.Layer,
		Schema:  schema,
		Timeout: cfg.WMS.Timeout,
	}, nil, m)

	log.Info("Parcel registry configured", map[string]interface{}{
		"url":     cfg.WMS.URL,
		"layer":   cfg.WMS.Layer,
		"timeout": cfg.WMS.Timeout.String(),
		"policy":  string(policy),
		"schema":  string(schema),
	})

	recipients := cfg.Report.Recipients
	if len(recipients) == 0 {
		recipients = report.DefaultRecipients()
	}
	directory := report.NewDirectory(cfg.Report.BoroughPrefix, recipients)

	// Initialize session store and service layers
	registry := store.NewRegistry()
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go registry.RunJanitor(janitorCtx, cfg.Session.TTL, cfg.Session.TTL/janitorSweeps, func(evicted, remaining int) {
		log.Info("Idle sessions evicted", map[string]interface{}{
			"evicted":   evicted,
			"remaining": remaining,
		})
	})
	selectionService := services.NewSelectionService(client, registry, policy, log, m)
	reportService := services.NewReportService(registry, services.ReportConfig{
		Directory:            directory,
		EnforcementRecipient: cfg.Report.EnforcementRecipient,
		Schema:               schema,
	}, log, m)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Session -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Session())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check and metrics routes
	healthHandler := handlers.NewHealthHandler(client, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Register API v1 routes
	handlers.RegisterRoutes(router.Group("/api/v1"),
		handlers.NewSelectionHandler(selectionService),
		handlers.NewReportHandler(reportService),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	stopJanitor()
	log.Info("Shutting down server...", map[string]interface{}{
		"sessions": registry.Sessions(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
