package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/auth"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/cache"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/config"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/database"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/handlers"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/metrics"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/middleware"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/storage"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/telemetry"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/websocket"
)

const serviceName = "social-backend"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Initialize(ctx, cfg.MongoURI, cfg.MongoDB); err != nil {
		cancel()
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.EnsureIndexes(ctx); err != nil {
		cancel()
		logger.Log.Fatal("Failed to ensure indexes", zap.Error(err))
	}
	cancel()
	defer database.Close(context.Background())

	// Redis backs the distributed rate limiter. The server still runs
	// without it.
	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, rate limiting degraded", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: 1.0,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = telemetry.Shutdown(shutdownCtx, tp)
	}()

	metrics.Initialize()

	var uploader storage.ImageUploader
	if cfg.AWSBucket != "" {
		s3Uploader, err := storage.NewS3Uploader(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize S3 uploader", zap.Error(err))
		}
		if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
			logger.Log.Warn("S3 bucket access failed, image uploads will fail", zap.Error(err))
		}
		uploader = s3Uploader
	} else {
		logger.Log.Warn("AWS_BUCKET not set, images are stored as given")
	}

	userRepo := repository.NewUserRepository()
	postRepo := repository.NewPostRepository()
	convStore := repository.NewConversationStore()
	msgStore := repository.NewMessageStore()

	authService := auth.NewService([]byte(cfg.JWTSecret), cfg.JWTExpiry, userRepo)

	wsHub := websocket.NewHub()
	seenCoordinator := websocket.NewSeenCoordinator(wsHub, convStore, msgStore)
	seenCoordinator.Attach()
	go wsHub.Run()

	wsHandler := websocket.NewHandler(wsHub)

	h := handlers.New(authService, userRepo, postRepo, convStore, msgStore, uploader, wsHub)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware(serviceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RedisRateLimitMiddleware(300, time.Minute))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.RegisterRoutes(r)
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/ws/stats", wsHandler.HandleStats)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := wsHub.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("WebSocket shutdown error", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Log.Info("Server stopped")
}
