package shares

import (
	"context"                     // Context for blocking calls
	"harry_hype/internal/apperr"  // Error classification
	"harry_hype/internal/domain"  // Importing domain models
	"harry_hype/internal/ledger"  // Ledger connector
	"harry_hype/internal/metrics" // Prometheus metrics
	"harry_hype/internal/storage" // Image uploads
	"strings"                     // String manipulation
	"time"                        // Time durations

	"github.com/google/uuid"     // UUID generation
	"github.com/pkg/errors"      // Error wrapping
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// File is an uploaded form file
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type CreateStartupInput struct {
	Name           string
	Description    string
	TokenName      string
	TokenSymbol    string
	TokenImage     *File
	StartupImage   *File
	IdempotencyKey string // Retries with the same key resume the same issuance
}

// validate checks required fields in the order the client reports them
func (in CreateStartupInput) validate() error {
	switch {
	case in.TokenImage == nil || len(in.TokenImage.Data) == 0:
		return apperr.Validation("Es necesario colocar un icono o imagen para tus shares!")
	case strings.TrimSpace(in.Name) == "":
		return apperr.Validation("Es necesario colocar el nombre del startUp")
	case strings.TrimSpace(in.TokenName) == "":
		return apperr.Validation("Es necesario colocar el nombre de las shares")
	case strings.TrimSpace(in.Description) == "":
		return apperr.Validation("Necesitamos una description de tu startUp")
	case strings.TrimSpace(in.TokenSymbol) == "":
		return apperr.Validation("Necesitamos un símbolo para tus shares")
	}
	return nil
}

// CreateStartup creates a startup and issues its share token. Every completed
// step is recorded on the Issuance so a retry with the same idempotency key
// continues from the first step that has not happened yet.
func (s *Service) CreateStartup(ctx context.Context, owner *domain.User, in CreateStartupInput) (*domain.Startup, *domain.Issuance, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}

	iss, err := s.claimIssuance(ctx, owner, in)
	if err != nil {
		return nil, nil, err
	}
	log := logrus.WithFields(logrus.Fields{
		"user_id":     owner.ID,
		"issuance_id": iss.ID,
		"attempt":     iss.Attempts,
	})

	if iss.Status != domain.IssuanceCompleted {
		if err := s.runIssuance(ctx, owner, in, iss, log); err != nil {
			s.failIssuance(iss, err, log)
			return nil, iss, err
		}
		log.WithFields(logrus.Fields{"startup_id": *iss.StartupID, "mint": *iss.MintAddress}).Info("Startup token issued")
	}

	var startup domain.Startup
	if err := s.db.WithContext(ctx).Preload("Token").Where("id = ?", *iss.StartupID).First(&startup).Error; err != nil {
		return nil, iss, apperr.Internal(err, "load startup")
	}
	return &startup, iss, nil
}

// GetIssuance returns an issuance record owned by user
func (s *Service) GetIssuance(ctx context.Context, user *domain.User, id string) (*domain.Issuance, error) {
	var iss domain.Issuance
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.ID).First(&iss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("issuance not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load issuance")
	}
	return &iss, nil
}

// claimIssuance loads or creates the issuance for the key and marks it
// running. A running issuance whose lease has not expired is a conflict.
func (s *Service) claimIssuance(ctx context.Context, owner *domain.User, in CreateStartupInput) (*domain.Issuance, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()
	lease := now.Add(s.opts.IssuanceLease) // Claim expires after the lease

	var iss domain.Issuance
	err := db.Where("user_id = ? AND idempotency_key = ?", owner.ID, in.IdempotencyKey).First(&iss).Error // Look up by idempotency key
	if errors.Is(err, gorm.ErrRecordNotFound) {
		iss = domain.Issuance{
			UserID:         owner.ID,
			IdempotencyKey: in.IdempotencyKey,
			Status:         domain.IssuanceRunning,
			TokenName:      in.TokenName,
			TokenSymbol:    in.TokenSymbol,
			Attempts:       1, // First attempt
			LeaseUntil:     &lease,
		}
		if err := db.Create(&iss).Error; err != nil {
			// A row for the key appearing now means a concurrent request won the insert
			if s.issuanceExists(ctx, owner.ID, in.IdempotencyKey) {
				return nil, apperr.Conflict("issuance for this request is already running")
			}
			return nil, apperr.Internal(err, "create issuance")
		}
		return &iss, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "load issuance")
	}
	if iss.Status == domain.IssuanceCompleted { // Replays return the finished issuance
		return &iss, nil
	}

	res := db.Model(&domain.Issuance{}). // Take over a failed or expired claim
						Where("id = ? AND (status <> ? OR lease_until IS NULL OR lease_until < ?)", iss.ID, domain.IssuanceRunning, now).
						Updates(map[string]any{
			"status":      domain.IssuanceRunning,
			"attempts":    gorm.Expr("attempts + 1"),
			"lease_until": lease,
			"last_error":  "",
		})
	if res.Error != nil {
		return nil, apperr.Internal(res.Error, "claim issuance")
	}
	if res.RowsAffected == 0 { // Another request holds the lease
		return nil, apperr.Conflict("issuance for this request is already running")
	}
	if err := db.Where("id = ?", iss.ID).First(&iss).Error; err != nil {
		return nil, apperr.Internal(err, "reload issuance")
	}
	return &iss, nil
}

// issuanceExists reports whether an issuance row exists for the key. Lookup
// errors count as absent.
func (s *Service) issuanceExists(ctx context.Context, userID, key string) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Issuance{}).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Count(&n).Error
	return err == nil && n > 0
}

// step runs fn unless the issuance already passed name, then records name as
// the last completed step
func (s *Service) step(ctx context.Context, iss *domain.Issuance, name string, fn func() error) error {
	if iss.Done(name) {
		return nil
	}
	if err := fn(); err != nil {
		metrics.IssuanceSteps.WithLabelValues(name, "error").Inc()
		return err
	}
	iss.Step = name
	if err := s.db.WithContext(ctx).Save(iss).Error; err != nil {
		metrics.IssuanceSteps.WithLabelValues(name, "error").Inc()
		return apperr.Internal(err, "record issuance step %s", name)
	}
	metrics.IssuanceSteps.WithLabelValues(name, "ok").Inc()
	return nil
}

func (s *Service) runIssuance(ctx context.Context, owner *domain.User, in CreateStartupInput, iss *domain.Issuance, log *logrus.Entry) error {
	wallet := owner.WalletPublicKey // Owner wallet signs every step

	err := s.step(ctx, iss, domain.StepStartupCreated, func() error {
		rawImage := ""
		if in.StartupImage != nil {
			rawImage = in.StartupImage.Name
		}
		startup := domain.Startup{
			UserID:       owner.ID,
			Name:         strings.TrimSpace(in.Name),
			Description:  strings.TrimSpace(in.Description),
			StartupImage: rawImage,
		}
		if err := s.db.WithContext(ctx).Create(&startup).Error; err != nil {
			return apperr.Internal(err, "create startup")
		}
		iss.StartupID = &startup.ID
		return nil
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, iss, domain.StepMintCreated, func() error {
		res, err := s.ledger.CreateMint(ctx, wallet, shareDecimals) // New SPL mint
		if err != nil {
			return apperr.Ledger(err, "create mint")
		}
		log.WithFields(logrus.Fields{"mint": res.Mint, "signature": res.Signature}).Info("Mint created")
		iss.MintAddress = &res.Mint
		iss.MintSignature = &res.Signature
		return nil
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, iss, domain.StepTokenImage, func() error {
		url, err := s.uploader.Upload(ctx, storage.BucketToken, iss.TokenName, in.TokenImage.Data, in.TokenImage.ContentType) // Token image becomes the metadata URI
		if err != nil {
			return apperr.Storage(err, "upload token image")
		}
		iss.TokenImageURL = &url
		return nil
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, iss, domain.StepMetadataAttached, func() error {
		sig, err := s.ledger.AttachMetadata(ctx, ledger.MetadataInput{ // Metaplex metadata account
			Mint:      *iss.MintAddress,
			Authority: wallet,
			Name:      iss.TokenName,
			Symbol:    iss.TokenSymbol,
			URI:       *iss.TokenImageURL,
		})
		if err != nil {
			return apperr.Ledger(err, "attach metadata")
		}
		iss.MetadataSignature = &sig
		return nil
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, iss, domain.StepAccountCreated, func() error {
		ata, err := s.ledger.EnsureAssociatedAccount(ctx, *iss.MintAddress, wallet) // Owner token account
		if err != nil {
			return apperr.Ledger(err, "create token account")
		}
		iss.TokenAccount = &ata
		return nil
	})
	if err != nil {
		return err
	}

	err = s.step(ctx, iss, domain.StepStartupImage, func() error {
		if in.StartupImage == nil || len(in.StartupImage.Data) == 0 { // Startup image is optional
			return nil
		}
		url, err := s.uploader.Upload(ctx, storage.BucketStartup, in.Name, in.StartupImage.Data, in.StartupImage.ContentType)
		if err != nil {
			return apperr.Storage(err, "upload startup image")
		}
		iss.StartupImageURL = &url
		return nil
	})
	if err != nil {
		return err
	}

	return s.record(ctx, owner, iss) // Persist everything in one transaction
}

// record inserts the Token row, back-fills the startup and completes the
// issuance in one transaction
func (s *Service) record(ctx context.Context, owner *domain.User, iss *domain.Issuance) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tok := domain.Token{
			StartupID:   *iss.StartupID,
			MintAddress: *iss.MintAddress,
			UserID:      owner.ID,
			Signature:   *iss.MintSignature,
		}
		if err := tx.Create(&tok).Error; err != nil { // Insert the token row
			return errors.Wrap(err, "insert token")
		}

		startupImage := ""
		if iss.StartupImageURL != nil {
			startupImage = *iss.StartupImageURL
		}
		if err := tx.Model(&domain.Startup{}).Where("id = ?", *iss.StartupID).Updates(map[string]any{
			"token":         tok.ID,
			"token_account": *iss.TokenAccount,
			"startup_image": startupImage,
		}).Error; err != nil {
			return errors.Wrap(err, "update startup")
		}

		iss.TokenID = &tok.ID
		iss.Step = domain.StepRecorded
		iss.Status = domain.IssuanceCompleted
		iss.LastError = ""
		iss.LeaseUntil = nil
		return errors.Wrap(tx.Save(iss).Error, "complete issuance")
	})
	if err != nil {
		metrics.IssuanceSteps.WithLabelValues(domain.StepRecorded, "error").Inc()
		return apperr.Internal(err, "record token")
	}
	metrics.IssuanceSteps.WithLabelValues(domain.StepRecorded, "ok").Inc()
	return nil
}

// failIssuance releases the lease and keeps the error for the next attempt
func (s *Service) failIssuance(iss *domain.Issuance, cause error, log *logrus.Entry) {
	log.WithFields(logrus.Fields{"step": iss.Step, "error": cause.Error()}).Error("Issuance failed")
	err := s.db.Model(&domain.Issuance{}).Where("id = ?", iss.ID).Updates(map[string]any{
		"status":      domain.IssuanceFailed,
		"last_error":  cause.Error(),
		"lease_until": nil,
	}).Error
	if err != nil {
		log.WithError(err).Error("Failed to mark issuance failed")
		return
	}
	iss.Status = domain.IssuanceFailed
	iss.LastError = cause.Error()
	iss.LeaseUntil = nil
}
