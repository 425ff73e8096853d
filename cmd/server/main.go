package main

import (
	"account_system/internal/api"     // Custom package for API handlers
	"account_system/internal/config"  // Custom package for configuration
	"account_system/internal/db"      // Storage layer
	"account_system/internal/domain"  // Repository interfaces
	"account_system/internal/events"  // Event publishing
	"account_system/internal/lock"    // Account locks
	"account_system/internal/service" // Business operations
	"context"                         // context package is needed for Redis operations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// storage bundles the repositories of one backend
type storage struct {
	users        domain.UserRepository
	accounts     domain.AccountRepository
	transactions domain.TransactionRepository
	txManager    domain.TransactionManager
}

// openStorage connects the configured backend
func openStorage(cfg *config.Config) storage {
	if cfg.Store == config.StoreMemory {
		logrus.Warn("Using in-memory store, data is lost on restart")
		mem := db.NewMemoryStore()
		return storage{users: mem, accounts: mem, transactions: mem, txManager: mem}
	}
	gdb, err := db.Open(db.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	return storage{
		users:        db.NewUserRepository(gdb),
		accounts:     db.NewAccountRepository(gdb),
		transactions: db.NewTransactionRepository(gdb),
		txManager:    db.NewTransactionManager(gdb),
	}
}

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store := openStorage(cfg)

	// Setup Redis client, falling back to process-local locks without it
	var redisClient *redis.Client
	var locker domain.AccountLocker = lock.NewLocalLocker(cfg.LockWait)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		locker = lock.NewRedisLocker(redisClient, cfg.LockWait, cfg.LockLease)
	} else {
		logrus.Warn("REDIS_ADDR not set, account locks are local to this process")
	}

	// Setup event publisher
	var publisher domain.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logrus.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	accounts := service.NewAccountService(store.users, store.accounts, store.txManager)
	transactions := service.NewTransactionService(
		store.users, store.accounts, store.transactions, store.txManager,
		locker, publisher, cfg.CancelWindow,
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

	api.RegisterRoutes(r, api.Dependencies{
		Users:        store.users,
		Accounts:     accounts,
		Transactions: transactions,
		Redis:        redisClient,
		JWTSecret:    cfg.JWTSecret,
	})

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
