package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"leadflow/consumer"
	"leadflow/handlers"
	"leadflow/middleware"
	"leadflow/models"
	"leadflow/monitoring"
	"leadflow/ratelimit"
	"leadflow/store"
	"leadflow/utils"
)

func main() {
	logger := log.New(os.Stdout, "LEADFLOW: ", log.LstdFlags|log.Lshortfile)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := utils.InitSentry(dsn); err != nil {
			logger.Printf("Sentry disabled: %v", err)
		}
	}

	monitoring.Init()

	repo, err := connectRepository(logger)
	if err != nil {
		logger.Fatalf("Failed to initialize repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Printf("Error closing repository: %v", err)
		}
	}()

	var detector store.Detector
	if os.Getenv("DEDUP_MODE") == "history" {
		detector = store.NewHistoryDetector(store.DedupWindow)
	} else {
		detector = store.NewWindowDetector(store.DedupWindow)
	}

	leadStore := store.New(repo, detector)

	ctx := context.Background()
	if err := leadStore.Load(ctx); err != nil {
		logger.Fatalf("Failed to load snapshot: %v", err)
	}
	if err := leadStore.MigrateLegacyIfEmpty(ctx, os.Getenv("LEGACY_DATA_FILE")); err != nil {
		logger.Fatalf("Failed to migrate legacy data: %v", err)
	}

	// Redis is optional: without it the limiter falls back to the
	// in-process fixed window and the consumer skips cache warming.
	var redisClient utils.RedisClient
	if os.Getenv("REDIS_HOST") != "" {
		redisClient, err = connectRedis(logger)
		if err != nil {
			logger.Printf("Redis unavailable, using in-memory rate limiting: %v", err)
		}
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Printf("Error closing Redis connection: %v", err)
			}
		}()
	}

	var limiter ratelimit.Limiter
	if redisClient != nil && os.Getenv("RATE_LIMIT_BACKEND") == "redis" {
		limiter = ratelimit.NewRedisWindow(redisClient, ratelimit.DefaultWindow, ratelimit.DefaultMax)
	} else {
		limiter = ratelimit.NewFixedWindow(ratelimit.DefaultWindow, ratelimit.DefaultMax)
	}

	var kafkaProducer utils.KafkaProducer
	var esClient utils.ElasticsearchClient
	if os.Getenv("KAFKA_BROKER") != "" {
		kafkaProducer, err = utils.NewKafkaProducer()
		if err != nil {
			logger.Printf("Kafka unavailable, lead events disabled: %v", err)
		}
	}
	if os.Getenv("ELASTICSEARCH_URL") != "" {
		esClient, err = utils.NewElasticsearchClient()
		if err != nil {
			logger.Printf("Elasticsearch unavailable, search disabled: %v", err)
		}
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		leadConsumer := consumer.NewLeadConsumer(redisClient, esClient)
		leadConsumer.Start(ctx)
		defer leadConsumer.Stop()
	}

	leadHandler := handlers.NewLeadHandler(leadStore, kafkaProducer, esClient, redisClient)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.PrometheusMetrics())
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := router.Group("/api/v1")
	{
		submit := api.Group("")
		submit.Use(middleware.RateLimit(limiter))
		{
			submit.POST("/consultations", leadHandler.SubmitConsultation)
			submit.POST("/phone-leads", leadHandler.SubmitPhoneLead)
		}

		api.GET("/consultations", leadHandler.ListConsultations)
		api.GET("/phone-leads", leadHandler.ListPhoneLeads)
		api.GET("/leads/:id", leadHandler.GetLead)
		api.GET("/summary", leadHandler.Summary)
		api.GET("/consultations/search", leadHandler.SearchConsultations)

		api.GET("/health", func(c *gin.Context) {
			details := gin.H{"store": "available"}
			status := http.StatusOK

			if redisClient != nil {
				hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				defer cancel()
				if err := redisClient.SetToCache(hctx, "healthcheck", "ping", 10*time.Second); err != nil {
					details["redis"] = "unavailable"
					status = http.StatusServiceUnavailable
				} else {
					details["redis"] = "available"
				}
			}

			c.JSON(status, gin.H{"status": http.StatusText(status), "details": details})
		})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Printf("Server is running on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

// connectRepository retries Postgres a few times: the database container
// usually comes up after the service in local compose runs.
func connectRepository(logger *log.Logger) (models.Repository, error) {
	if os.Getenv("DB_HOST") == "" {
		logger.Println("DB_HOST is not set, using in-memory repository")
		return models.NewMemoryRepository(), nil
	}

	var repo models.Repository
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		repo, err = models.NewPostgresRepository()
		if err == nil {
			return repo, nil
		}
		logger.Printf("Attempt %d: Failed to connect to Postgres: %v", i+1, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}

func connectRedis(logger *log.Logger) (utils.RedisClient, error) {
	var client utils.RedisClient
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second

	for i := 0; i < maxRetries; i++ {
		client, err = utils.NewRedisClient()
		if err == nil {
			return client, nil
		}
		logger.Printf("Attempt %d: Failed to connect to Redis: %v", i+1, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}
