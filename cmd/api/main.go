package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/world-engine/internal/audit"
	"github.com/jwebster45206/world-engine/internal/config"
	"github.com/jwebster45206/world-engine/internal/handlers"
	"github.com/jwebster45206/world-engine/internal/logger"
	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/internal/services/events"
	"github.com/jwebster45206/world-engine/internal/storage"
	"github.com/jwebster45206/world-engine/pkg/spatial"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting World Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"key_prefix", cfg.KeyPrefix,
		"default_area", cfg.DefaultArea)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.KeyPrefix, log)
	if err != nil {
		log.Error("Failed to configure storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	rules := spatial.DefaultWildernessRules()
	if cfg.WildernessRulesPath != "" {
		rules, err = spatial.LoadWildernessRules(cfg.WildernessRulesPath)
		if err != nil {
			log.Error("Failed to load wilderness rules", "error", err, "path", cfg.WildernessRulesPath)
			os.Exit(1)
		}
		log.Info("Wilderness rules loaded", "path", cfg.WildernessRulesPath, "rules", len(rules.Rules))
	}

	index, err := audit.OpenSQLite(cfg.AuditDBPath, log)
	if err != nil {
		log.Error("Failed to open audit index", "error", err, "path", cfg.AuditDBPath)
		os.Exit(1)
	}
	auditLog := audit.NewMulti(log, audit.NewJSONLWriter(cfg.AuditLogDir, "audit"), index)

	broadcaster := events.NewBroadcaster(store.Client(), log)

	service := services.NewLocationService(services.LocationServiceConfig{
		Store:       store,
		Audit:       auditLog,
		History:     index,
		Events:      broadcaster,
		Rules:       rules,
		DefaultArea: cfg.DefaultArea,
		Logger:      log,
	})

	router := handlers.NewRouter(handlers.RouterConfig{
		Service: service,
		Health:  map[string]services.HealthChecker{"storage": store},
		Events:  broadcaster,
		Logger:  log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/events streams for as long as the client stays.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := auditLog.Close(); err != nil {
		log.Error("Error closing audit log", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
