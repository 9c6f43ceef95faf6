package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/loginhub/auth-service/internal/api"
	"github.com/loginhub/auth-service/internal/auth"
	"github.com/loginhub/auth-service/internal/config"
	"github.com/loginhub/auth-service/internal/logging"
	"github.com/loginhub/auth-service/internal/store"
	"github.com/loginhub/auth-service/internal/token"
	"github.com/loginhub/auth-service/pkg/rabbitmq"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	// If a platform-provided PORT is set (e.g., Railway/Render), prefer it
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerPort = port
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer logger.Sync()

	lockout := time.Duration(cfg.LockoutMinutes) * time.Minute

	// Select the user repository per the configured storage driver.
	var users store.UserRepository
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("unable to parse database URL", zap.Error(err))
		}
		dbConfig.MaxConns = 10
		dbConfig.MinConns = 2
		dbConfig.MaxConnLifetime = 30 * time.Minute
		dbConfig.MaxConnIdleTime = 5 * time.Minute
		// Disable prepared statement caching to prevent conflicts behind poolers.
		dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
		if err != nil {
			logger.Fatal("unable to connect to database", zap.Error(err))
		}
		defer dbpool.Close()

		repo := store.NewPostgresUserRepository(dbpool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("unable to ensure schema", zap.Error(err))
		}
		users = repo
		logger.Info("database connection established")
	case config.DriverMemory:
		users = store.NewMemoryUserRepository()
	default:
		repo, err := store.NewFileUserRepository(cfg.StorageDir)
		if err != nil {
			logger.Fatal("unable to open user store", zap.Error(err))
		}
		users = repo
	}

	// Throttle state goes to Redis when configured, otherwise it follows the
	// storage driver (memory driver keeps it in memory, anything else on disk).
	var throttleRepo store.ThrottleRepository
	switch {
	case cfg.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("unable to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		throttleRepo = store.NewRedisThrottleRepository(rdb, 2*lockout)
		logger.Info("redis connection established")
	case cfg.StorageDriver == config.DriverMemory:
		throttleRepo = store.NewMemoryThrottleRepository()
	default:
		repo, err := store.NewFileThrottleRepository(cfg.StorageDir)
		if err != nil {
			logger.Fatal("unable to open throttle store", zap.Error(err))
		}
		throttleRepo = repo
	}

	// Set up the message producer; allow a no-op fallback on failure.
	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL == "" {
		producer = &rabbitmq.NoopPublisher{Logger: logger}
	} else if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger); err != nil {
		logger.Warn("failed to connect to RabbitMQ at startup, continuing without MQ", zap.Error(err))
		producer = &rabbitmq.NoopPublisher{Logger: logger}
	} else {
		producer = p
		defer producer.Close()
		logger.Info("rabbitmq producer connected")
	}

	throttle := auth.NewThrottle(throttleRepo, cfg.MaxLoginAttempts, lockout)
	svc := auth.NewService(users, throttle, logger)
	tokens := token.NewManager([]byte(cfg.JWTSecret), time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	authHandler := api.NewAuthHandler(svc, users, tokens, producer, logger)

	// Set up router and handlers
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Post("/register", authHandler.HandleRegister)
	r.Post("/login", authHandler.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(api.SessionAuth(tokens))
		r.Get("/me", authHandler.HandleMe)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Auth service is healthy"))
	})

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
