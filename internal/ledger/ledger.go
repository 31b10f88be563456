// Package ledger talks to the Solana cluster: SPL token mints, associated
// token accounts, Metaplex metadata and balance reads.
package ledger

import (
	"context"       // Context for blocking calls
	"encoding/json" // JSON payloads
	"math/big"      // Big integer amounts

	"github.com/pkg/errors"         // Error wrapping
	"github.com/shopspring/decimal" // Decimal amounts
)

var (
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrTransactionFailed = errors.New("ledger: transaction failed on chain")
	ErrNotConfirmed      = errors.New("ledger: transaction not confirmed in time")
)

// Signer signs transaction messages for wallets the service does not hold
// keys for in memory
type Signer interface {
	Sign(ctx context.Context, publicKey string, message []byte) ([]byte, error)
}

// Ledger is everything the share workflows need from the chain. All addresses
// are base58 strings.
type Ledger interface {
	CreateMint(ctx context.Context, authority string, decimals uint8) (MintResult, error)
	AttachMetadata(ctx context.Context, in MetadataInput) (string, error)
	EnsureAssociatedAccount(ctx context.Context, mint, owner string) (string, error)
	MintTo(ctx context.Context, in MintToInput) (string, error)
	Transfer(ctx context.Context, in TransferInput) (string, error)
	TokenBalance(ctx context.Context, account string) (TokenAmount, error)
	MintSupply(ctx context.Context, mint string) (TokenAmount, error)
	Metadata(ctx context.Context, mint string) (*Metadata, error)
}

type MintResult struct {
	Mint      string
	Signature string
}

type MetadataInput struct {
	Mint      string
	Authority string // Mint and update authority
	Name      string
	Symbol    string
	URI       string
}

type MintToInput struct {
	Mint        string
	Destination string // Token account receiving the new units
	Authority   string // Mint authority
	Amount      uint64
}

type TransferInput struct {
	Mint      string
	FromOwner string
	ToOwner   string
	Amount    uint64
}

// TokenAmount is a raw base-unit amount and the mint's decimals
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

// UIAmount is the amount in display units
func (t TokenAmount) UIAmount() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(t.Amount), -int32(t.Decimals))
}

// Metadata is the on-chain token metadata plus the fields read from the JSON
// document at URI, when it resolves
type Metadata struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	URI         string          `json:"uri"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
}
