package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/foodrescue/internal/bootstrap"
	"anoa.com/foodrescue/internal/config"
	userRepo "anoa.com/foodrescue/internal/modules/user/repository"
	"anoa.com/foodrescue/internal/server"
	"anoa.com/foodrescue/pkg/database"
	"anoa.com/foodrescue/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gam, err := config.LoadGamification(cfg.GamificationFile)
	if err != nil {
		zlog.Fatal("failed to load gamification catalog", zap.Error(err))
	}

	db, err := database.Connect(database.Options{
		DSN:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
		Debug:    cfg.AppEnv == "development",
	}, zlog)
	if err != nil {
		zlog.Fatal("database unavailable", zap.Error(err))
	}

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	if cfg.AppEnv == "development" {
		if _, err := bootstrap.SeedAdminUser(ctx, userRepo.NewUserRepository(db), zlog); err != nil {
			zlog.Fatal("failed to seed admin user", zap.Error(err))
		}
	}

	redisClient := connectRedis(ctx, cfg.RedisURL, zlog)
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv, err := server.NewServer(cfg, gam, db, redisClient, zlog)
	if err != nil {
		zlog.Fatal("failed to build server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zlog.Fatal("server exited with error", zap.Error(err))
		}
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; the engine
// then runs single-instance without publish, cross-instance locks or the
// sorted-set mirror.
func connectRedis(ctx context.Context, url string, log *zap.Logger) *redis.Client {
	if url == "" {
		log.Warn("REDIS_URL not set, running without redis")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid REDIS_URL, running without redis", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, running without redis", zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("redis connected", zap.String("addr", opts.Addr))
	return client
}
