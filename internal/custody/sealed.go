package custody

import (
	"context"                    // Context for blocking calls
	"crypto/rand"                // Random nonces
	"encoding/base64"            // Key encoding
	"harry_hype/internal/domain" // Importing domain models

	"github.com/pkg/errors"              // Error wrapping
	"golang.org/x/crypto/nacl/secretbox" // Key sealing
	"gorm.io/gorm"                       // GORM ORM library
)

const nonceSize = 24 // secretbox nonce length

// SealedStore keeps wallet secrets in the wallet_keys table, each sealed with
// NaCl secretbox under one master key
type SealedStore struct {
	db  *gorm.DB
	key [32]byte
}

// NewSealedStore decodes a base64 32-byte master key
func NewSealedStore(db *gorm.DB, masterKey string) (*SealedStore, error) {
	raw, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, errors.Wrap(err, "decode custody master key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("custody master key must be 32 bytes, got %d", len(raw))
	}
	s := &SealedStore{db: db}
	copy(s.key[:], raw)
	wipe(raw)
	return s, nil
}

func (s *SealedStore) CreateWallet(ctx context.Context) (string, error) {
	kp := GenerateKeypair() // Fresh ed25519 keypair
	secret, err := kp.secretBytes()
	if err != nil {
		return "", err
	}
	defer wipe(secret) // Clear the plaintext secret

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil { // Random nonce per key
		return "", errors.Wrap(err, "read nonce")
	}
	sealed := secretbox.Seal(nonce[:], secret, &nonce, &s.key) // Nonce is stored as the prefix

	row := domain.WalletKey{PublicKey: kp.PublicKey, Sealed: sealed}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "store wallet key")
	}
	return row.PublicKey, nil
}

func (s *SealedStore) Sign(ctx context.Context, publicKey string, message []byte) ([]byte, error) {
	var row domain.WalletKey
	err := s.db.WithContext(ctx).Where("public_key = ?", publicKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load wallet key")
	}
	if len(row.Sealed) < nonceSize {
		return nil, errors.Errorf("sealed key for %s is truncated", publicKey)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], row.Sealed[:nonceSize])
	secret, ok := secretbox.Open(nil, row.Sealed[nonceSize:], &nonce, &s.key) // Authenticated decrypt
	if !ok {
		return nil, errors.Errorf("cannot unseal key for %s", publicKey)
	}
	defer wipe(secret)
	return signWith(secret, publicKey, message) // Sign after checking the key matches
}
