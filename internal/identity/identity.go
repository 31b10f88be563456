// Package identity is the email/password identity provider. It owns the
// credentials table and issues the bearer tokens the middleware verifies.
package identity

import (
	"strings"
	"time"

	"harry_hype/internal/domain"
	"harry_hype/internal/utils"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Provider signs users up and in
type Provider struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
}

func NewProvider(db *gorm.DB, secret string, ttl time.Duration) *Provider {
	return &Provider{db: db, secret: secret, ttl: ttl}
}

// SignUp stores a credential and returns its id. Pass a transaction as tx to
// create it together with other rows, or nil to use the provider's database.
func (p *Provider) SignUp(tx *gorm.DB, email, password string) (string, error) {
	if tx == nil {
		tx = p.db
	}
	email = normalizeEmail(email)

	var count int64
	if err := tx.Model(&domain.Credential{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return "", errors.Wrap(err, "lookup credential")
	}
	if count > 0 {
		return "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	cred := domain.Credential{Email: email, PasswordHash: string(hash)}
	if err := tx.Create(&cred).Error; err != nil {
		return "", errors.Wrap(err, "create credential")
	}
	return cred.ID, nil
}

// SignIn checks the password and returns the user id with a fresh access token
func (p *Provider) SignIn(email, password string) (string, string, error) {
	var cred domain.Credential
	err := p.db.Where("email = ?", normalizeEmail(email)).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", ErrInvalidCredentials
	}
	if err != nil {
		return "", "", errors.Wrap(err, "lookup credential")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(cred.ID, cred.Email, p.secret, p.ttl)
	if err != nil {
		return "", "", errors.Wrap(err, "sign token")
	}
	return cred.ID, token, nil
}

// Verify resolves a bearer token to the user id it was issued for
func (p *Provider) Verify(token string) (string, error) {
	claims, err := utils.ParseJWT(token, p.secret)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
