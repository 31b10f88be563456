// Package custody generates user wallets and signs for them. Secret keys never
// leave a Custodian; callers only see public keys and signatures.
package custody

import (
	"context"         // Context for blocking calls
	"encoding/base64" // Key encoding

	"github.com/blocto/solana-go-sdk/types" // Solana accounts and transactions
	"github.com/pkg/errors"                 // Error wrapping
)

var ErrKeyNotFound = errors.New("custody: key not found")

// Custodian creates wallets and signs messages on behalf of their owners
type Custodian interface {
	CreateWallet(ctx context.Context) (string, error)
	Sign(ctx context.Context, publicKey string, message []byte) ([]byte, error)
}

// Keypair is a freshly generated wallet. SecretKey is the base64 form of the
// 64-byte ed25519 private key.
type Keypair struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

// GenerateKeypair returns a new random wallet without storing it anywhere
func GenerateKeypair() Keypair {
	acc := types.NewAccount() // Random ed25519 keypair
	return Keypair{
		PublicKey: acc.PublicKey.ToBase58(),
		SecretKey: base64.StdEncoding.EncodeToString(acc.PrivateKey),
	}
}

// secretBytes decodes SecretKey. Callers wipe the result when done.
func (k Keypair) secretBytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(k.SecretKey)
	if err != nil {
		return nil, errors.Wrap(err, "decode generated secret")
	}
	return raw, nil
}

// signWith signs message with a raw 64-byte secret, checking it belongs to publicKey
func signWith(secret []byte, publicKey string, message []byte) ([]byte, error) {
	acc, err := types.AccountFromBytes(secret)
	if err != nil {
		return nil, errors.Wrap(err, "decode wallet secret")
	}
	if acc.PublicKey.ToBase58() != publicKey { // Refuse a key stored under the wrong name
		return nil, errors.Errorf("custody: stored key does not match %s", publicKey)
	}
	return acc.Sign(message), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
