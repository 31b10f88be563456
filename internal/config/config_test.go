package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "SOLANA_RPC_URL", "SOLANA_COMMITMENT", "CUSTODY_BACKEND", "TOKENS_BUCKET", "BATCH_CONCURRENCY", "JWT_TTL", "METADATA_HOSTS"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, defaultAppPort, cfg.AppPort)
	assert.Equal(t, defaultSolanaRPCURL, cfg.SolanaRPCURL)
	assert.Equal(t, "confirmed", cfg.SolanaCommitment)
	assert.Equal(t, "sealed", cfg.CustodyBackend)
	assert.Equal(t, "tokens", cfg.TokensBucket)
	assert.Equal(t, defaultBatchConcurrency, cfg.BatchConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"storage.googleapis.com"}, cfg.MetadataHosts)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("IS_PROD", "true")
	t.Setenv("BALANCE_CACHE_TTL", "2m")
	t.Setenv("BATCH_ITEM_TIMEOUT", "not-a-duration")
	t.Setenv("METADATA_HOSTS", "storage.googleapis.com, cdn.example.com,,")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.IsProd)
	assert.Equal(t, 2*time.Minute, cfg.BalanceCacheTTL)
	assert.Equal(t, defaultBatchItemTimeout, cfg.BatchItemTimeout)
	assert.Equal(t, []string{"storage.googleapis.com", "cdn.example.com"}, cfg.MetadataHosts)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "hype"}
	assert.Equal(t, "u:p@tcp(db:3306)/hype?parseTime=true", cfg.DSN())
}
