// Package ledgertest provides an in-memory Ledger that enforces the same
// authorities as the chain and checks custody signatures.
package ledgertest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"harry_hype/internal/ledger"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

type mintState struct {
	authority string
	decimals  uint8
	supply    uint64
	metadata  *ledger.Metadata
}

type accountState struct {
	mint   string
	owner  string
	amount uint64
}

// Ledger is a fake ledger.Ledger. Operations needing a user authority ask the
// Signer for a signature and verify it.
type Ledger struct {
	mu       sync.Mutex
	signer   ledger.Signer
	mints    map[string]*mintState
	accounts map[string]*accountState
	calls    map[string]int
	failOn   map[string]error

	// MetadataJSON stands in for the documents served at metadata URIs
	MetadataJSON map[string]ledger.Metadata
}

var _ ledger.Ledger = (*Ledger)(nil)

func New(signer ledger.Signer) *Ledger {
	return &Ledger{
		signer:       signer,
		mints:        map[string]*mintState{},
		accounts:     map[string]*accountState{},
		calls:        map[string]int{},
		failOn:       map[string]error{},
		MetadataJSON: map[string]ledger.Metadata{},
	}
}

// FailOn makes every later call to op return err until cleared with nil
func (l *Ledger) FailOn(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failOn, op)
		return
	}
	l.failOn[op] = err
}

// Calls returns how many times op was called, failed calls included
func (l *Ledger) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// TotalCalls returns the number of calls over all operations
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

// Balance returns the raw amount held by owner for mint
func (l *Ledger) Balance(mint, owner string) uint64 {
	addr, err := ledger.AssociatedAddress(mint, owner)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[addr]; ok {
		return acc.amount
	}
	return 0
}

// MintAuthority returns the authority a mint was created with
func (l *Ledger) MintAuthority(mint string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.mints[mint]; ok {
		return m.authority
	}
	return ""
}

// MintCount returns the number of mints created
func (l *Ledger) MintCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mints)
}

// enter counts the call and returns the injected failure, if any. Callers hold mu.
func (l *Ledger) enter(op string) error {
	l.calls[op]++
	return l.failOn[op]
}

// authorize asks the signer to sign a payload for pub and verifies it
func (l *Ledger) authorize(ctx context.Context, pub, payload string) error {
	sig, err := l.signer.Sign(ctx, pub, []byte(payload))
	if err != nil {
		return errors.Wrapf(err, "sign for %s", pub)
	}
	raw, err := base58.Decode(pub)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return errors.Errorf("bad public key %s", pub)
	}
	if !ed25519.Verify(ed25519.PublicKey(raw), []byte(payload), sig) {
		return errors.Errorf("signature for %s does not verify", pub)
	}
	return nil
}

func signature() string {
	b := make([]byte, 64)
	_, _ = rand.Read(b)
	return base58.Encode(b)
}

func (l *Ledger) CreateMint(ctx context.Context, authority string, decimals uint8) (ledger.MintResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("CreateMint"); err != nil {
		return ledger.MintResult{}, err
	}
	if err := ledger.ValidateAddress(authority); err != nil {
		return ledger.MintResult{}, err
	}
	mint := types.NewAccount().PublicKey.ToBase58()
	l.mints[mint] = &mintState{authority: authority, decimals: decimals}
	return ledger.MintResult{Mint: mint, Signature: signature()}, nil
}

func (l *Ledger) AttachMetadata(ctx context.Context, in ledger.MetadataInput) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("AttachMetadata"); err != nil {
		return "", err
	}
	m, ok := l.mints[in.Mint]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	if m.metadata != nil {
		return "", errors.New("metadata account already in use")
	}
	if m.authority != in.Authority {
		return "", errors.New("incorrect mint authority")
	}
	if err := l.authorize(ctx, in.Authority, "metadata:"+in.Mint); err != nil {
		return "", err
	}
	m.metadata = &ledger.Metadata{Name: in.Name, Symbol: in.Symbol, URI: in.URI}
	return signature(), nil
}

func (l *Ledger) EnsureAssociatedAccount(ctx context.Context, mint, owner string) (string, error) {
	addr, err := ledger.AssociatedAddress(mint, owner)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("EnsureAssociatedAccount"); err != nil {
		return "", err
	}
	if _, ok := l.mints[mint]; !ok {
		return "", ledger.ErrAccountNotFound
	}
	if _, ok := l.accounts[addr]; !ok {
		l.accounts[addr] = &accountState{mint: mint, owner: owner}
	}
	return addr, nil
}

func (l *Ledger) MintTo(ctx context.Context, in ledger.MintToInput) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("MintTo"); err != nil {
		return "", err
	}
	m, ok := l.mints[in.Mint]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	acc, ok := l.accounts[in.Destination]
	if !ok || acc.mint != in.Mint {
		return "", errors.Errorf("destination %s is not a token account of %s", in.Destination, in.Mint)
	}
	if m.authority != in.Authority {
		return "", errors.New("owner does not match mint authority")
	}
	if err := l.authorize(ctx, in.Authority, fmt.Sprintf("mint:%s:%d", in.Mint, in.Amount)); err != nil {
		return "", err
	}
	acc.amount += in.Amount
	m.supply += in.Amount
	return signature(), nil
}

func (l *Ledger) Transfer(ctx context.Context, in ledger.TransferInput) (string, error) {
	from, err := ledger.AssociatedAddress(in.Mint, in.FromOwner)
	if err != nil {
		return "", err
	}
	to, err := ledger.AssociatedAddress(in.Mint, in.ToOwner)
	if err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("Transfer"); err != nil {
		return "", err
	}
	src, ok := l.accounts[from]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	dst, ok := l.accounts[to]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	if src.amount < in.Amount {
		return "", errors.New("insufficient funds")
	}
	if err := l.authorize(ctx, in.FromOwner, fmt.Sprintf("transfer:%s:%s:%d", in.Mint, in.ToOwner, in.Amount)); err != nil {
		return "", err
	}
	src.amount -= in.Amount
	dst.amount += in.Amount
	return signature(), nil
}

func (l *Ledger) TokenBalance(ctx context.Context, account string) (ledger.TokenAmount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("TokenBalance"); err != nil {
		return ledger.TokenAmount{}, err
	}
	acc, ok := l.accounts[account]
	if !ok {
		return ledger.TokenAmount{}, ledger.ErrAccountNotFound
	}
	return ledger.TokenAmount{Amount: acc.amount, Decimals: l.mints[acc.mint].decimals}, nil
}

func (l *Ledger) MintSupply(ctx context.Context, mint string) (ledger.TokenAmount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("MintSupply"); err != nil {
		return ledger.TokenAmount{}, err
	}
	m, ok := l.mints[mint]
	if !ok {
		return ledger.TokenAmount{}, ledger.ErrAccountNotFound
	}
	return ledger.TokenAmount{Amount: m.supply, Decimals: m.decimals}, nil
}

func (l *Ledger) Metadata(ctx context.Context, mint string) (*ledger.Metadata, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("Metadata"); err != nil {
		return nil, err
	}
	m, ok := l.mints[mint]
	if !ok || m.metadata == nil {
		return nil, nil
	}
	out := *m.metadata
	if doc, ok := l.MetadataJSON[out.URI]; ok {
		out.Description = doc.Description
		out.Image = doc.Image
		out.Attributes = doc.Attributes
	}
	return &out, nil
}
