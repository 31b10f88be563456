package shares

import (
	"context"                     // Context for blocking calls
	"encoding/json"               // JSON payloads
	"harry_hype/internal/apperr"  // Error classification
	"harry_hype/internal/domain"  // Importing domain models
	"harry_hype/internal/ledger"  // Ledger connector
	"harry_hype/internal/metrics" // Prometheus metrics
	"strings"                     // String manipulation
	"time"                        // Time durations

	"github.com/cenkalti/backoff/v4" // Retry with backoff
	"github.com/pkg/errors"          // Error wrapping
	"github.com/sirupsen/logrus"     // Logging library
	"gorm.io/gorm"                   // GORM ORM library
	"gorm.io/gorm/clause"            // Upsert clauses
)

type TransferInput struct {
	Receiver  string // Receiving wallet address
	Amount    string // Display amount, up to 9 decimals
	TokenMint string // Mint address of the shares
}

// TransferShares moves shares from the sender's wallet to the receiver's and
// writes the audit row. The on-chain transfer is final: when the audit row
// cannot be written it is queued for reconciliation and the caller gets an
// error naming the signature.
func (s *Service) TransferShares(ctx context.Context, sender *domain.User, in TransferInput) (*domain.Transaction, error) {
	in.Receiver = strings.TrimSpace(in.Receiver)
	in.TokenMint = strings.TrimSpace(in.TokenMint)
	if in.Receiver == "" || strings.TrimSpace(in.Amount) == "" || in.TokenMint == "" { // Check required fields
		return nil, apperr.Validation("receiver, amount, and token_mint are required")
	}
	display, units, err := ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if ledger.ValidateAddress(in.Receiver) != nil {
		return nil, apperr.Validation("receiver is not a valid wallet address")
	}
	if ledger.ValidateAddress(in.TokenMint) != nil {
		return nil, apperr.Validation("token_mint is not a valid mint address")
	}
	if in.Receiver == sender.WalletPublicKey { // Self transfers are refused
		return nil, apperr.Validation("Cannot transfer to yourself")
	}

	var tok domain.Token
	err = s.db.WithContext(ctx).Where("mint_address = ?", in.TokenMint).First(&tok).Error // Only platform tokens can be transferred
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("token not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load token")
	}

	log := logrus.WithFields(logrus.Fields{
		"user_id":  sender.ID,
		"receiver": in.Receiver,
		"mint":     in.TokenMint,
		"amount":   display.String(),
	})
	for _, owner := range []string{sender.WalletPublicKey, in.Receiver} { // Both sides need a token account
		if _, err := s.ledger.EnsureAssociatedAccount(ctx, in.TokenMint, owner); err != nil {
			log.WithError(err).Error("Transfer failed")
			return nil, apperr.Ledger(err, "prepare token account")
		}
	}
	sig, err := s.ledger.Transfer(ctx, ledger.TransferInput{ // Submit and confirm the transfer
		Mint:      in.TokenMint,
		FromOwner: sender.WalletPublicKey,
		ToOwner:   in.Receiver,
		Amount:    units,
	})
	if err != nil {
		log.WithError(err).Error("Transfer failed")
		return nil, apperr.Ledger(err, "Something went wrong during the transfer")
	}
	log = log.WithField("signature", sig)

	record := domain.Transaction{
		Sender:    sender.ID,
		Receiver:  in.Receiver,
		Amount:    display,
		BaseUnits: units,
		TokenID:   tok.ID,
		UserID:    sender.ID,
		Signature: sig,
	}
	// The transfer already happened, so a cancelled request must not skip the audit.
	auditCtx := context.WithoutCancel(ctx)
	s.forget(auditCtx,
		balanceKey(in.TokenMint, sender.WalletPublicKey),
		balanceKey(in.TokenMint, in.Receiver),
	)
	if err := s.recordTransfer(auditCtx, &record); err != nil { // Write the audit row
		log.WithError(err).Error("Transfer succeeded but the audit row was not saved")
		metrics.TransferAuditBacklog.Inc()
		if perr := s.backlog.Push(auditCtx, record); perr != nil { // Queue for the reconcile job
			log.WithError(perr).Error("Failed to queue transfer audit row")
		}
		return nil, apperr.Internal(err, "Error saving transaction %s", sig)
	}
	_ = s.cache.DeletePattern(auditCtx, historyPattern(sender.ID)) // Sender history is stale now
	var receiver domain.User
	if s.db.WithContext(auditCtx).Where("wallet_public_key = ?", in.Receiver).First(&receiver).Error == nil {
		_ = s.cache.DeletePattern(auditCtx, historyPattern(receiver.ID))
	}

	log.Info("Transfer transaction")
	return &record, nil
}

// recordTransfer inserts the audit row, retrying with backoff
func (s *Service) recordTransfer(ctx context.Context, record *domain.Transaction) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.opts.AuditRetry // Give up after the configured window
	b.Reset()
	return backoff.Retry(func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
	}, backoff.WithContext(b, ctx))
}

// ReconcileTransfers writes queued audit rows. It stops at the first row
// that cannot be written and leaves it queued.
func (s *Service) ReconcileTransfers(ctx context.Context) (int, error) {
	return s.backlog.Drain(ctx, func(raw []byte) error { // Oldest rows first
		var record domain.Transaction
		if err := json.Unmarshal(raw, &record); err != nil { // Malformed rows are dropped
			logrus.WithField("payload", string(raw)).Error("Dropping malformed audit row")
			return nil
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
		if err != nil {
			return errors.Wrapf(err, "insert transaction %s", record.Signature)
		}
		logrus.WithField("signature", record.Signature).Info("Reconciled transfer audit row")
		return nil
	})
}
