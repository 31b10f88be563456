package shares

import (
	"context"                     // Context for blocking calls
	"harry_hype/internal/apperr"  // Error classification
	"harry_hype/internal/domain"  // Importing domain models
	"harry_hype/internal/ledger"  // Ledger connector
	"harry_hype/internal/metrics" // Prometheus metrics
	"strings"                     // String manipulation

	"github.com/pkg/errors"      // Error wrapping
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// MintShares mints amount shares of the startup's token into the owner's
// token account and returns the transaction signature. Only the startup owner
// may mint. Nothing is written to the database.
func (s *Service) MintShares(ctx context.Context, caller *domain.User, startupID, amount string) (string, error) {
	display, units, err := ParseAmount(amount) // Parse the display amount into base units
	if err != nil {
		return "", err
	}
	startupID = strings.TrimSpace(startupID)
	if startupID == "" {
		return "", apperr.Validation("startup_id is required")
	}

	var startup domain.Startup
	err = s.db.WithContext(ctx).Preload("Token").Where("id = ?", startupID).First(&startup).Error // Load the startup with its token
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.NotFound("startup not found")
	}
	if err != nil {
		return "", apperr.Internal(err, "load startup")
	}
	if startup.Token == nil || startup.TokenAccount == nil {
		return "", apperr.NotFound("startup has no token")
	}
	if startup.UserID != caller.ID { // Only the owner may mint
		return "", apperr.Forbidden("only the startup owner can mint shares")
	}

	log := logrus.WithFields(logrus.Fields{ // Request-scoped log fields
		"user_id":    caller.ID,
		"startup_id": startup.ID,
		"mint":       startup.Token.MintAddress,
		"amount":     display.String(),
	})
	sig, err := s.ledger.MintTo(ctx, ledger.MintToInput{ // Mint into the startup token account
		Mint:        startup.Token.MintAddress,
		Destination: *startup.TokenAccount,
		Authority:   caller.WalletPublicKey,
		Amount:      units,
	})
	if err != nil {
		log.WithError(err).Error("Mint failed")
		return "", apperr.Ledger(err, "Error minting tokens")
	}

	metrics.SharesMinted.Add(float64(units))                                     // Count minted base units
	s.forget(ctx, balanceKey(startup.Token.MintAddress, caller.WalletPublicKey)) // Drop the cached balance
	log.WithField("signature", sig).Info("Shares minted")
	return sig, nil
}
