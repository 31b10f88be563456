package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list values
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Default values applied when the environment leaves a key empty
const (
	defaultAppPort          = "8080"
	defaultSolanaRPCURL     = "https://api.devnet.solana.com"
	defaultCommitment       = "confirmed"
	defaultCustodyBackend   = "sealed"
	defaultWalletPrefix     = "solana-wallet-"
	defaultTokensBucket     = "tokens"
	defaultUsersBucket      = "users"
	defaultStartupsBucket   = "startups"
	defaultJWTTTL           = 24 * time.Hour
	defaultConfirmTimeout   = 60 * time.Second
	defaultBalanceCacheTTL  = 15 * time.Second
	defaultBatchConcurrency = 8
	defaultBatchItemTimeout = 10 * time.Second
	defaultMetadataTimeout  = 5 * time.Second
	defaultMetadataHosts    = "storage.googleapis.com"
)

// Config holds the application configuration
type Config struct {
	AppPort    string        // Application port
	DBUser     string        // Database user
	DBPassword string        // Database password
	DBHost     string        // Database host
	DBPort     string        // Database port
	DBName     string        // Database name
	JWTSecret  string        // JWT secret key
	JWTTTL     time.Duration // Access token lifetime
	RedisAddr  string        // Redis server address
	RedisPass  string        // Redis password
	RedisDB    int           // Redis database number
	IsProd     bool          // Is production environment

	SolanaRPCURL          string        // Solana JSON-RPC endpoint
	SolanaCommitment      string        // processed, confirmed or finalized
	SolanaConfirmTimeout  time.Duration // Upper bound for waiting on a signature
	SystemWalletSecretKey string        // Base58 keypair of the fee-paying platform wallet

	CustodyBackend   string // sealed or secretmanager
	CustodyMasterKey string // Base64 32-byte key for the sealed backend
	GCPProject       string // Project holding wallet secrets
	WalletPrefix     string // Secret id prefix for wallet secrets

	TokensBucket   string // Bucket for token images
	UsersBucket    string // Bucket for user photos
	StartupsBucket string // Bucket for startup images

	BalanceCacheTTL      time.Duration // TTL for cached balance lookups
	BatchConcurrency     int           // Parallel lookups in the batch reader
	BatchItemTimeout     time.Duration // Per-token timeout in the batch reader
	MetadataFetchTimeout time.Duration // Timeout for off-chain metadata JSON
	MetadataHosts        []string      // Hosts off-chain metadata JSON may be fetched from
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    envOr("APP_PORT", defaultAppPort),    // Application port
		DBUser:     os.Getenv("DB_USER"),                 // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),             // Database password
		DBHost:     os.Getenv("DB_HOST"),                 // Database host
		DBPort:     os.Getenv("DB_PORT"),                 // Database port
		DBName:     os.Getenv("DB_NAME"),                 // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),              // JWT secret key
		JWTTTL:     durationOr("JWT_TTL", defaultJWTTTL), // Access token lifetime
		RedisAddr:  os.Getenv("REDIS_ADDR"),              // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),              // Redis password
		RedisDB:    intOr("REDIS_DB", 0),                 // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true",       // Is production environment

		SolanaRPCURL:          envOr("SOLANA_RPC_URL", defaultSolanaRPCURL),
		SolanaCommitment:      envOr("SOLANA_COMMITMENT", defaultCommitment),
		SolanaConfirmTimeout:  durationOr("SOLANA_CONFIRM_TIMEOUT", defaultConfirmTimeout),
		SystemWalletSecretKey: os.Getenv("SYSTEM_WALLET_SECRET_KEY"),

		CustodyBackend:   envOr("CUSTODY_BACKEND", defaultCustodyBackend),
		CustodyMasterKey: os.Getenv("CUSTODY_MASTER_KEY"),
		GCPProject:       os.Getenv("GCP_PROJECT"),
		WalletPrefix:     envOr("WALLET_SECRET_PREFIX", defaultWalletPrefix),

		TokensBucket:   envOr("TOKENS_BUCKET", defaultTokensBucket),
		UsersBucket:    envOr("USERS_BUCKET", defaultUsersBucket),
		StartupsBucket: envOr("STARTUPS_BUCKET", defaultStartupsBucket),

		BalanceCacheTTL:      durationOr("BALANCE_CACHE_TTL", defaultBalanceCacheTTL),
		BatchConcurrency:     intOr("BATCH_CONCURRENCY", defaultBatchConcurrency),
		BatchItemTimeout:     durationOr("BATCH_ITEM_TIMEOUT", defaultBatchItemTimeout),
		MetadataFetchTimeout: durationOr("METADATA_FETCH_TIMEOUT", defaultMetadataTimeout),
		MetadataHosts:        listOr("METADATA_HOSTS", defaultMetadataHosts),
	}
}

// DSN builds the MySQL data source name shared by the server and the migrate command
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// listOr splits a comma-separated variable, dropping empty entries
func listOr(key, fallback string) []string {
	var out []string
	for _, v := range strings.Split(envOr(key, fallback), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
