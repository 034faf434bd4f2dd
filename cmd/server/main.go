package main

import (
	"context"   // Context for Redis operations and shutdown
	"errors"    // Error matching
	"net/http"  // HTTP server
	"os"        // OS signals
	"os/signal" // Listen for Ctrl+C
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"peerpay/internal/api"             // Custom package for API handlers
	"peerpay/internal/cache"           // Read cache
	"peerpay/internal/config"          // Custom package for configuration
	"peerpay/internal/db"              // Database connection
	"peerpay/internal/directory"       // Recipient resolution
	"peerpay/internal/feed"            // Change notifications
	"peerpay/internal/history"         // History projection
	"peerpay/internal/store"           // Store contracts
	"peerpay/internal/store/gormstore" // SQL store
	"peerpay/internal/store/memory"    // In-process store
	"peerpay/internal/transfer"        // Transfer engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// openStore builds the store selected by cfg.StoreDriver
func openStore(cfg *config.Config) store.Store {
	if cfg.StoreDriver == config.DriverMemory {
		logrus.Warn("Using the in-memory store, data is lost on exit")
		return memory.New()
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	// The embedded database has no separate migration step
	if cfg.StoreDriver == config.DriverSQLite {
		if err := db.Migrate(gdb); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}
	}
	return gormstore.New(gdb)
}

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := openStore(cfg)
	hub := feed.NewHub()

	var c cache.Cache
	var publisher transfer.Publisher = hub
	if cfg.RedisAddr != "" {
		// Setup Redis client
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		c = cache.NewRedis(redisClient)
		bridge := feed.NewRedisBridge(hub, redisClient)
		publisher = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logrus.Errorf("ledger notice relay stopped: %v", err)
			}
		}()
	} else {
		logrus.Info("REDIS_ADDR not set, using the in-process cache")
		c = cache.NewMemory()
	}

	resolver := directory.New(s, s, c, cfg.CacheTTL)
	engine := transfer.New(s,
		transfer.WithDirectory(resolver),
		transfer.WithPublisher(publisher),
		transfer.WithMaxAttempts(cfg.MaxAttempts),
		transfer.WithBackoff(cfg.RetryBackoff),
	)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.Routes(r, api.Services{
		Accounts:        s,
		Directory:       resolver,
		Ledger:          s,
		Engine:          engine,
		History:         history.NewProjector(s, hub, nil),
		Cache:           c,
		JWTSecret:       cfg.JWTSecret,
		StartingBalance: cfg.StartingBalance,
		CacheTTL:        cfg.CacheTTL,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Block here until we receive a stop signal
	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("shutdown failed: %v", err)
	}
}
