package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Eidanhurtado/Bibliowave/internal/cart"
	"github.com/Eidanhurtado/Bibliowave/internal/cart/cache"
	"github.com/Eidanhurtado/Bibliowave/internal/catalog"
	"github.com/Eidanhurtado/Bibliowave/internal/fulfillment"
	"github.com/Eidanhurtado/Bibliowave/internal/server"
	"github.com/Eidanhurtado/Bibliowave/internal/stripeapi"
)

type Config struct {
	HTTPPort         string
	BaseURL          string
	MongoURI         string
	MongoDBName      string
	MongoMaxPool     uint64
	MongoMinPool     uint64
	RedisAddr        string
	RedisPassword    string
	StripeSecretKey  string
	StripeWebhookKey string
	StripeAPIBase    string
	DeliveryURL      string
	CatalogDBPath    string
	MigrationsPath   string
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:         getEnv("PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "bibliowave"),
		MongoMaxPool:     getEnvUint("MONGO_MAX_POOL_SIZE", 100),
		MongoMinPool:     getEnvUint("MONGO_MIN_POOL_SIZE", 10),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		StripeSecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookKey: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeAPIBase:    getEnv("STRIPE_API_BASE", stripeapi.DefaultBaseURL),
		DeliveryURL:      getEnv("DELIVERY_URL", "http://localhost:3001/process-purchase"),
		CatalogDBPath:    getEnv("CATALOG_DB_PATH", "bibliowave.db"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "migrations"),
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
		log.Printf("invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := loadConfig()

	if cfg.StripeSecretKey == "" {
		log.Fatal("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookKey == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is required")
	}

	ctx := context.Background()

	// Set up MongoDB connection for the cart store
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName, cart.MongoOptions{
		MaxPoolSize: cfg.MongoMaxPool,
		MinPoolSize: cfg.MongoMinPool,
	})
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	cartRepo := cart.NewMongoRepository(mongoDB)
	if idx, ok := cartRepo.(interface{ CreateIndexes(context.Context) error }); ok {
		if err := idx.CreateIndexes(ctx); err != nil {
			log.Printf("failed to create cart indexes: %v", err)
		}
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	log.Printf("Catalog ready at %s", cfg.CatalogDBPath)

	provider := stripeapi.NewClient(cfg.StripeSecretKey, cfg.StripeAPIBase)
	dispatcher := fulfillment.NewDispatcher(cfg.DeliveryURL, fulfillment.LogPresenter{})

	srv := server.NewServer(server.Config{
		BaseURL:        cfg.BaseURL,
		WebhookSecret:  cfg.StripeWebhookKey,
		RequestTimeout: cfg.RequestTimeout,
	}, provider, catalogRepo, redisClient, dispatcher, cartRepo, cache.NewRedisCache(redisClient))

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Bibliowave backend starting on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Printf("failed to disconnect MongoDB: %v", err)
	}

	log.Println("server exited")
}
