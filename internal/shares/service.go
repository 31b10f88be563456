// Package shares runs the startup share workflows: token issuance, minting,
// transfers and balance reads. It keeps the relational records consistent
// with what happened on the ledger.
package shares

import (
	"context"                     // Context for blocking calls
	"harry_hype/internal/ledger"  // Ledger connector
	"harry_hype/internal/storage" // Image uploads
	"time"                        // Time durations

	"gorm.io/gorm" // GORM ORM library
)

// Share tokens carry two decimals; one share is 100 base units
const shareDecimals = 2

// AuditBacklogKey is the Redis list holding transfer audit rows that could
// not be written
const AuditBacklogKey = "audit:transactions"

// Cache is a JSON cache with TTLs
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Backlog queues items for later processing
type Backlog interface {
	Push(ctx context.Context, item any) error
	Drain(ctx context.Context, fn func(raw []byte) error) (int, error)
}

type Options struct {
	BalanceCacheTTL  time.Duration // TTL of cached balance reads
	HistoryCacheTTL  time.Duration // TTL of cached history pages
	BatchConcurrency int           // Parallel lookups in UserTokens
	BatchItemTimeout time.Duration // Per-token timeout in UserTokens
	IssuanceLease    time.Duration // How long a running issuance blocks retries
	AuditRetry       time.Duration // How long to retry a transfer audit insert
}

func DefaultOptions() Options {
	return Options{
		BalanceCacheTTL:  15 * time.Second,
		HistoryCacheTTL:  60 * time.Second,
		BatchConcurrency: 8,
		BatchItemTimeout: 10 * time.Second,
		IssuanceLease:    10 * time.Minute,
		AuditRetry:       5 * time.Second,
	}
}

type Service struct {
	db       *gorm.DB         // Database connection
	ledger   ledger.Ledger    // Solana connector
	uploader storage.Uploader // Image buckets
	cache    Cache            // Redis read cache
	backlog  Backlog          // Unwritten audit rows
	opts     Options
}

func NewService(db *gorm.DB, l ledger.Ledger, uploader storage.Uploader, cache Cache, backlog Backlog, opts Options) *Service {
	def := DefaultOptions() // Zero values fall back to defaults
	if opts.BalanceCacheTTL <= 0 {
		opts.BalanceCacheTTL = def.BalanceCacheTTL
	}
	if opts.HistoryCacheTTL <= 0 {
		opts.HistoryCacheTTL = def.HistoryCacheTTL
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = def.BatchConcurrency
	}
	if opts.BatchItemTimeout <= 0 {
		opts.BatchItemTimeout = def.BatchItemTimeout
	}
	if opts.IssuanceLease <= 0 {
		opts.IssuanceLease = def.IssuanceLease
	}
	if opts.AuditRetry <= 0 {
		opts.AuditRetry = def.AuditRetry
	}
	return &Service{db: db, ledger: l, uploader: uploader, cache: cache, backlog: backlog, opts: opts}
}

func balanceKey(mint, wallet string) string {
	return "balance:" + mint + ":" + wallet
}

func historyPattern(userID string) string {
	return "txhistory:user:" + userID + ":*"
}

// forget drops cache entries; a failure only leaves a stale entry until its TTL
func (s *Service) forget(ctx context.Context, keys ...string) {
	_ = s.cache.Delete(ctx, keys...)
}
