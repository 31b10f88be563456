package shares

import (
	"context"                     // Context for blocking calls
	"harry_hype/internal/apperr"  // Error classification
	"harry_hype/internal/ledger"  // Ledger connector
	"harry_hype/internal/metrics" // Prometheus metrics
	"strings"                     // String manipulation

	"github.com/pkg/errors"         // Error wrapping
	"github.com/shopspring/decimal" // Decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/sync/errgroup"    // Bounded fan-out
)

// Holding is a wallet's balance of one token and the token's metadata
type Holding struct {
	Balance  float64          `json:"balance"`
	Metadata *ledger.Metadata `json:"metadata"`
}

// HoldingResult is one entry of UserTokens. Error is set when that token
// could not be read; the other entries are unaffected.
type HoldingResult struct {
	Mint     string           `json:"mint"`
	Balance  float64          `json:"balance"`
	Metadata *ledger.Metadata `json:"metadata"`
	Error    string           `json:"error,omitempty"`
}

// TokenBalanceAndMetadata reads the balance wallet holds of mint and the
// mint's metadata. A wallet without a token account holds 0.
func (s *Service) TokenBalanceAndMetadata(ctx context.Context, mint, wallet string) (Holding, error) {
	mint, wallet = strings.TrimSpace(mint), strings.TrimSpace(wallet)
	if mint == "" {
		return Holding{}, apperr.Validation("mintAddress is required")
	}
	if wallet == "" {
		return Holding{}, apperr.Validation("userWallet is required")
	}
	if ledger.ValidateAddress(mint) != nil || ledger.ValidateAddress(wallet) != nil {
		return Holding{}, apperr.Validation("Invalid Base58 character in address")
	}

	key := balanceKey(mint, wallet)
	var cached Holding
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found { // Serve from Redis when cached
		return cached, nil
	}

	ata, err := ledger.AssociatedAddress(mint, wallet) // Derive the holder token account
	if err != nil {
		return Holding{}, apperr.Validation("Invalid Base58 character in address")
	}
	balance := 0.0
	cacheable := true
	amt, err := s.ledger.TokenBalance(ctx, ata)
	switch {
	case err == nil:
		balance = amt.UIAmount().InexactFloat64()
	case errors.Is(err, ledger.ErrAccountNotFound): // No account means a zero balance
	default:
		// Unreadable accounts count as empty but are not cached.
		cacheable = false
		logrus.WithFields(logrus.Fields{"mint": mint, "wallet": wallet, "error": err.Error()}).Warn("Token balance unreadable")
	}

	meta, err := s.ledger.Metadata(ctx, mint) // Read on-chain metadata
	if err != nil {
		return Holding{}, apperr.Ledger(err, "Unable to fetch token balance or metadata")
	}

	h := Holding{Balance: balance, Metadata: meta}
	if cacheable {
		_ = s.cache.Set(ctx, key, h, s.opts.BalanceCacheTTL) // Cache for the configured TTL
	}
	return h, nil
}

type userToken struct {
	MintAddress     string
	WalletPublicKey string
}

// UserTokens reads balance and metadata for every token the user created, in
// creation order
func (s *Service) UserTokens(ctx context.Context, userID string) ([]HoldingResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}

	var rows []userToken
	err := s.db.WithContext(ctx).
		Table("tokens").
		Select("tokens.mint_address, users.wallet_public_key").
		Joins("JOIN users ON users.id = tokens.user_id").
		Where("tokens.user_id = ?", userID).
		Order("tokens.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err, "Error fetching tokens")
	}

	results := make([]HoldingResult, len(rows))
	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency) // Bound concurrent ledger reads
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.opts.BatchItemTimeout) // Per-item deadline
			defer cancel()

			res := HoldingResult{Mint: row.MintAddress}
			h, err := s.TokenBalanceAndMetadata(itemCtx, row.MintAddress, row.WalletPublicKey)
			if err != nil {
				metrics.BatchItemErrors.Inc() // Failed items stay in the result
				res.Error = err.Error()
			} else {
				res.Balance = h.Balance
				res.Metadata = h.Metadata
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// IssuedSupply returns the total supply of mint in display units
func (s *Service) IssuedSupply(ctx context.Context, mint string) (decimal.Decimal, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return decimal.Zero, apperr.Validation("mintAddress is required")
	}
	if ledger.ValidateAddress(mint) != nil {
		return decimal.Zero, apperr.Validation("Invalid Base58 character in address")
	}
	supply, err := s.ledger.MintSupply(ctx, mint)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return decimal.Zero, apperr.NotFound("mint not found")
	}
	if err != nil {
		return decimal.Zero, apperr.Ledger(err, "Error retrieving token supply")
	}
	return supply.UIAmount(), nil
}
