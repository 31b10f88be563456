package main

import (
	"context" // Context for startup calls
	"time"    // Reconcile interval

	"harry_hype/internal/accounts" // Registration and login
	"harry_hype/internal/api"      // API handlers
	"harry_hype/internal/config"   // Configuration
	"harry_hype/internal/custody"  // Wallet key custody
	"harry_hype/internal/db"       // Database connection
	"harry_hype/internal/identity" // Identity provider
	"harry_hype/internal/ledger"   // Solana client
	"harry_hype/internal/shares"   // Share workflows
	"harry_hype/internal/storage"  // Image uploads
	"harry_hype/internal/utils"    // Redis helpers

	secretmanager "cloud.google.com/go/secretmanager/apiv1" // Secret Manager client
	gcs "cloud.google.com/go/storage"                       // Cloud Storage client
	"github.com/gin-gonic/gin"                              // Gin web framework
	"github.com/redis/go-redis/v9"                          // Redis client
	"github.com/sirupsen/logrus"                            // Logrus for structured logging
	"gorm.io/gorm"                                          // GORM ORM library
)

const reconcileInterval = time.Minute

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	ctx := context.Background()

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	custodian := newCustodian(ctx, cfg, gdb)

	// Connect to the Solana cluster
	chain, err := ledger.Dial(ctx, ledger.Options{
		Endpoint:        cfg.SolanaRPCURL,
		Commitment:      cfg.SolanaCommitment,
		ConfirmTimeout:  cfg.SolanaConfirmTimeout,
		FeePayer:        cfg.SystemWalletSecretKey,
		Signer:          custodian,
		MetadataTimeout: cfg.MetadataFetchTimeout,
		MetadataHosts:   cfg.MetadataHosts,
	})
	if err != nil {
		logrus.Fatalf("failed to connect to Solana: %v", err)
	}

	// Setup object storage
	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		logrus.Fatalf("failed to create storage client: %v", err)
	}
	defer gcsClient.Close()
	uploader := storage.NewGCSUploader(gcsClient, storage.Buckets{
		storage.BucketToken:   cfg.TokensBucket,
		storage.BucketUser:    cfg.UsersBucket,
		storage.BucketStartup: cfg.StartupsBucket,
	})

	idp := identity.NewProvider(gdb, cfg.JWTSecret, cfg.JWTTTL)
	sharesSvc := shares.NewService(gdb, chain, uploader,
		utils.NewRedisCache(redisClient),
		utils.NewRedisBacklog(redisClient, shares.AuditBacklogKey),
		shares.Options{
			BalanceCacheTTL:  cfg.BalanceCacheTTL,
			BatchConcurrency: cfg.BatchConcurrency,
			BatchItemTimeout: cfg.BatchItemTimeout,
		})
	go reconcileLoop(ctx, sharesSvc)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Deps{
		DB:       gdb,
		Verifier: idp,
		Accounts: accounts.NewService(gdb, idp, custodian, uploader),
		Shares:   sharesSvc,
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}

// newCustodian builds the configured wallet key backend
func newCustodian(ctx context.Context, cfg *config.Config, gdb *gorm.DB) custody.Custodian {
	switch cfg.CustodyBackend {
	case "secretmanager":
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			logrus.Fatalf("failed to create secret manager client: %v", err)
		}
		store, err := custody.NewSecretManagerStore(client, cfg.GCPProject, cfg.WalletPrefix)
		if err != nil {
			logrus.Fatalf("invalid secret manager custody config: %v", err)
		}
		return store
	case "sealed":
		store, err := custody.NewSealedStore(gdb, cfg.CustodyMasterKey)
		if err != nil {
			logrus.Fatalf("invalid sealed custody config: %v", err)
		}
		return store
	default:
		logrus.Fatalf("unknown custody backend %q", cfg.CustodyBackend)
		return nil
	}
}

// reconcileLoop writes queued transfer audit rows in the background
func reconcileLoop(ctx context.Context, svc *shares.Service) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()
	for range ticker.C {
		n, err := svc.ReconcileTransfers(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Transfer audit reconcile stopped")
		}
		if n > 0 {
			logrus.WithField("rows", n).Info("Reconciled transfer audit rows")
		}
	}
}
