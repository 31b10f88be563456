package main

import (
	"context" // Context for Redis and DB calls

	"harry_hype/internal/config" // Configuration
	"harry_hype/internal/db"     // Database connection
	"harry_hype/internal/shares" // Share workflows
	"harry_hype/internal/utils"  // Redis helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Writes every queued transfer audit row and exits. Rows that still fail stay queued.
func main() {
	cfg := config.LoadConfig() // Load configuration
	ctx := context.Background()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer redisClient.Close()

	backlog := utils.NewRedisBacklog(redisClient, shares.AuditBacklogKey)
	queued, err := backlog.Len(ctx)
	if err != nil {
		logrus.Fatalf("failed to read backlog: %v", err)
	}

	// Reconcile only touches the database and the backlog
	svc := shares.NewService(gdb, nil, nil, utils.NewRedisCache(redisClient), backlog, shares.DefaultOptions())
	n, err := svc.ReconcileTransfers(ctx)
	logger := logrus.WithFields(logrus.Fields{"queued": queued, "written": n})
	if err != nil {
		logger.Fatalf("reconcile stopped: %v", err)
	}
	logger.Info("Reconcile completed")
}
