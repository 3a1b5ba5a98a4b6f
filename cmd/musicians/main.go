package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aidin1998/visitante_sonoro/api"
	"github.com/Aidin1998/visitante_sonoro/internal/auth"
	"github.com/Aidin1998/visitante_sonoro/internal/cache"
	"github.com/Aidin1998/visitante_sonoro/internal/config"
	"github.com/Aidin1998/visitante_sonoro/internal/database"
	"github.com/Aidin1998/visitante_sonoro/internal/media"
	"github.com/Aidin1998/visitante_sonoro/internal/musician"
	"github.com/Aidin1998/visitante_sonoro/internal/telemetry"
	"github.com/Aidin1998/visitante_sonoro/internal/upload"
	"github.com/Aidin1998/visitante_sonoro/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Writer:      os.Stdout,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	dbManager := database.NewManager(db, cfg.Database.Driver, zapLogger)
	if err := dbManager.Migrate(&musician.Musician{}, &auth.Admin{}); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	go dbManager.CollectStats(ctx, 30*time.Second)

	uploader, err := media.NewCloudinaryUploader(cfg.Cloudinary)
	if err != nil {
		zapLogger.Fatal("Failed to create media uploader", zap.Error(err))
	}

	stager, err := upload.NewStager(upload.Config{Dir: cfg.Upload.Dir, MaxBytes: cfg.Upload.MaxBytes}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	opts := []musician.Option{musician.WithFolder(cfg.Cloudinary.Folder)}
	if cfg.Cache.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		}
		redisCache := cache.NewRedis(client)
		defer redisCache.Close()
		opts = append(opts, musician.WithCache(redisCache, cfg.Cache.TTL))
	}
	musicianSvc := musician.NewService(zapLogger, musician.NewGormRepository(db), uploader, opts...)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret)
	protect := auth.Protect(tokens, auth.NewAdminRepo(db), zapLogger)

	apiServer := api.NewServer(zapLogger, musicianSvc, protect, stager, dbManager, api.Options{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		BasePath:    cfg.Server.BasePath,
		CORSOrigins: cfg.Server.CORSOrigins,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to stop API server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush traces", zap.Error(err))
	}
	if err := dbManager.Close(); err != nil {
		zapLogger.Error("Failed to close database", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
