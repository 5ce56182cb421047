package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"secmomo/internal/commission"
	"secmomo/internal/handler"
	"secmomo/internal/history"
	"secmomo/internal/middleware"
	"secmomo/internal/store/postgres"
	"secmomo/internal/transaction"
	"secmomo/internal/wallet"
	"secmomo/pkg/cache"
	"secmomo/pkg/config"
	"secmomo/pkg/logger"
	"secmomo/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("ledger-api")

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Redis serves the history cache and the rate limiter. The ledger runs
	// without it; only those layers degrade.
	var (
		histCache   cache.Cache
		rateLimiter *middleware.RateLimiter
		redisClient *redis.Client
	)
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("Redis unavailable, history cache and rate limiting disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redisCache.Close()
		histCache = redisCache
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		rateLimiter = middleware.NewRateLimiter(redisClient, 60, time.Minute)
	}

	st := postgres.New(db, cfg.Ledger.MaxAgentBalance)
	policy := commission.NewPolicy(cfg.Ledger)
	walletClient := wallet.NewClient(cfg.Wallet, log)
	val := validator.New()

	txService := transaction.NewService(st, walletClient, policy, cfg.Ledger, log)
	histService := history.NewService(st, histCache, cfg.History.GrowthCacheTTL, log)

	checks := map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := handler.NewRouter(
		handler.NewTransactionHandler(txService, val, log),
		handler.NewAgentHandler(st, val, log),
		handler.NewHistoryHandler(histService, log),
		handler.NewHealthHandler(checks, log),
		rateLimiter,
		log,
	)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Ledger API listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", map[string]interface{}{"error": err.Error()})
	}
}
