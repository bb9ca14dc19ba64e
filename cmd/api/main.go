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

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subculture-collective/recaster/config"
	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/handlers"
	"github.com/subculture-collective/recaster/internal/ingestion"
	"github.com/subculture-collective/recaster/internal/middleware"
	"github.com/subculture-collective/recaster/internal/scheduler"
	"github.com/subculture-collective/recaster/internal/services"
	"github.com/subculture-collective/recaster/pkg/redis"
	sentrypkg "github.com/subculture-collective/recaster/pkg/sentry"
	"github.com/subculture-collective/recaster/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	utils.InitLogger(utils.LogLevel(cfg.LogLevel))
	logger := utils.GetLogger()
	logger.Info("starting recommendation engine", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	})

	if cfg.Sentry.Enabled {
		if err := sentrypkg.Init(&cfg.Sentry); err != nil {
			logger.Error("sentry init failed", err, nil)
		}
		defer sentrypkg.Close()
	}

	cache, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, recommendations will not be cached", map[string]interface{}{
			"error": err.Error(),
		})
		cache = nil
	} else {
		defer cache.Close()
	}

	eng := engine.New(cfg.Recommendations)
	recService := services.NewRecommendationService(eng, cache, cfg.Recommendations.CacheTTLSeconds)
	interactionService := services.NewInteractionService(eng, recService)
	statsService := services.NewStatsService(eng)

	qualityScheduler := scheduler.NewQualityScheduler(eng, statsService,
		cfg.Recommendations.QualityEvalIntervalMinutes, cfg.Recommendations.QualityEvalK)
	qualityCtx, cancelQuality := context.WithCancel(context.Background())
	defer cancelQuality()
	go qualityScheduler.Start(qualityCtx)

	var consumer *ingestion.Consumer
	if cfg.Kafka.Enabled {
		consumer = ingestion.NewConsumer(cfg.Kafka, interactionService)
		consumerCtx, cancelConsumer := context.WithCancel(context.Background())
		defer cancelConsumer()
		go func() {
			logger.Info("kafka consumer starting", map[string]interface{}{
				"topic":    cfg.Kafka.Topic,
				"group_id": cfg.Kafka.GroupID,
			})
			if err := consumer.Run(consumerCtx); err != nil && err != context.Canceled {
				logger.Error("kafka consumer stopped", err, nil)
			}
		}()
	}

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(requestid.New())
	if cfg.Sentry.Enabled {
		router.Use(middleware.SentryMiddleware())
		router.Use(middleware.RecoverWithSentry())
	} else {
		router.Use(middleware.JSONRecoveryMiddleware())
	}
	router.Use(logger.GinLogger())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"environment": cfg.Server.Environment,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ingestLimiter := middleware.NewIngestRateLimiter(cfg.RateLimit)

	recHandler := handlers.NewRecommendationHandler(recService)
	interactionHandler := handlers.NewInteractionHandler(interactionService)
	statsHandler := handlers.NewStatsHandler(statsService)

	api := router.Group("/api")
	{
		api.POST("/recommendations", recHandler.GetRecommendations)

		ingest := api.Group("")
		ingest.Use(ingestLimiter.Middleware())
		{
			ingest.POST("/watch", interactionHandler.Watch)
			ingest.POST("/like", interactionHandler.Like)
			ingest.POST("/comment", interactionHandler.Comment)
			ingest.POST("/share", interactionHandler.Share)
			ingest.POST("/subscribe", interactionHandler.Subscribe)
			ingest.POST("/unsubscribe", interactionHandler.Unsubscribe)
		}

		api.GET("/stats", statsHandler.Stats)
		api.GET("/chart-data", statsHandler.ChartData)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server", nil)

	qualityScheduler.Stop()

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close failed", err, nil)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", err, nil)
	}

	logger.Info("server exited", nil)
}
