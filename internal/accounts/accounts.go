// Package accounts registers users with a custodied wallet and logs them in.
package accounts

import (
	"context"
	"strings"

	"harry_hype/internal/apperr"
	"harry_hype/internal/custody"
	"harry_hype/internal/domain"
	"harry_hype/internal/identity"
	"harry_hype/internal/storage"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Photo is an uploaded profile picture
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

type Service struct {
	db        *gorm.DB
	identity  *identity.Provider
	custodian custody.Custodian
	uploader  storage.Uploader
}

func NewService(db *gorm.DB, idp *identity.Provider, custodian custody.Custodian, uploader storage.Uploader) *Service {
	return &Service{db: db, identity: idp, custodian: custodian, uploader: uploader}
}

// Register creates the credential, the wallet and the user row. The photo is
// uploaded last; a failed upload leaves a registered user without a photo.
func (s *Service) Register(ctx context.Context, name, email, password string, photo *Photo) (*domain.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("All fields are required: email, password, name")
	}

	wallet, err := s.custodian.CreateWallet(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "Error creating wallet")
	}
	log := logrus.WithFields(logrus.Fields{"email": email, "wallet": wallet})

	user := domain.User{Name: name, Email: strings.ToLower(email), WalletPublicKey: wallet}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := s.identity.SignUp(tx, email, password)
		if err != nil {
			return err
		}
		user.ID = id
		return errors.Wrap(tx.Create(&user).Error, "insert user")
	})
	if errors.Is(err, identity.ErrEmailTaken) {
		return nil, apperr.Conflict("Email already registered")
	}
	if err != nil {
		log.WithError(err).Error("Registration failed, wallet left unassigned")
		return nil, apperr.Internal(err, "Error registering user")
	}

	// The photo is optional; a failed upload leaves it empty
	if photo != nil && len(photo.Data) > 0 {
		user.Photo = s.savePhoto(ctx, &user, photo, log)
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return &user, nil
}

// savePhoto uploads the photo and stores its URL on the user. Failures are
// logged and return nil.
func (s *Service) savePhoto(ctx context.Context, user *domain.User, photo *Photo, log *logrus.Entry) *string {
	url, err := s.uploader.Upload(ctx, storage.BucketUser, user.Name, photo.Data, photo.ContentType) // Upload to the user bucket
	if err != nil {
		log.WithError(err).Warn("Photo upload failed, user registered without photo")
		return nil
	}
	// Store the public URL on the user row
	if err := s.db.WithContext(ctx).Model(user).Update("photo", url).Error; err != nil {
		log.WithError(err).Warn("Photo URL not saved, user registered without photo")
		return nil
	}
	return &url
}

// Login checks the credentials and returns an access token with the user
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, apperr.Validation("email and password are required")
	}
	id, token, err := s.identity.SignIn(email, password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return "", nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", nil, apperr.Internal(err, "Error signing in")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return "", nil, apperr.Internal(err, "Error loading user")
	}
	return token, &user, nil
}
