package ledger

import (
	"context"                     // Context for blocking calls
	"harry_hype/internal/metrics" // Prometheus metrics
	"net/http"                    // HTTP client
	"strings"                     // String manipulation
	"time"                        // Time durations

	"github.com/blocto/solana-go-sdk/client"                           // Solana RPC client
	"github.com/blocto/solana-go-sdk/common"                           // Solana public keys
	"github.com/blocto/solana-go-sdk/program/associated_token_account" // Associated token accounts
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"  // Metaplex metadata
	"github.com/blocto/solana-go-sdk/program/system"                   // System program
	"github.com/blocto/solana-go-sdk/program/token"                    // SPL token program
	"github.com/blocto/solana-go-sdk/rpc"                              // RPC types
	"github.com/blocto/solana-go-sdk/types"                            // Solana accounts and transactions
	"github.com/cenkalti/backoff/v4"                                   // Retry with backoff
	"github.com/pkg/errors"                                            // Error wrapping
	"github.com/sirupsen/logrus"                                       // Logging library
)

// Options configures Dial
type Options struct {
	Endpoint        string        // JSON-RPC endpoint, devnet when empty
	Commitment      string        // processed, confirmed or finalized
	ConfirmTimeout  time.Duration // Upper bound on waiting for a signature
	FeePayer        string        // Base58 64-byte keypair of the platform wallet
	Signer          Signer        // Signs for user wallets
	MetadataTimeout time.Duration // Timeout for metadata JSON documents
	MetadataHosts   []string      // Hosts metadata JSON may be fetched from
}

// Client is the Solana-backed Ledger. It is safe for concurrent use and is
// meant to be shared by every request.
type Client struct {
	rpc        *client.Client
	commitment rpc.Commitment
	timeout    time.Duration
	payer      types.Account
	signer     Signer
	metadata   *metadataFetcher
}

var _ Ledger = (*Client)(nil)

// Dial opens the RPC client and checks the endpoint answers
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = rpc.DevnetRPCEndpoint
	}
	commitment, err := parseCommitment(opts.Commitment)
	if err != nil {
		return nil, err
	}
	if opts.Signer == nil {
		return nil, errors.New("ledger: signer is required")
	}
	payer, err := types.AccountFromBase58(strings.TrimSpace(opts.FeePayer))
	if err != nil {
		return nil, errors.Wrap(err, "decode fee payer keypair")
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = time.Minute // Default confirmation window
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 5 * time.Second // Default metadata fetch timeout
	}

	c := &Client{
		rpc:        client.NewClient(opts.Endpoint),
		commitment: commitment,
		timeout:    opts.ConfirmTimeout,
		payer:      payer,
		signer:     opts.Signer,
		metadata:   newMetadataFetcher(&http.Client{Timeout: opts.MetadataTimeout}, opts.MetadataHosts), // Only allowed hosts are fetched
	}
	if _, err := c.rpc.GetLatestBlockhash(ctx); err != nil { // Fail fast when the RPC is unreachable
		return nil, errors.Wrapf(err, "reach solana rpc %s", opts.Endpoint)
	}
	logrus.WithFields(logrus.Fields{
		"endpoint":   opts.Endpoint,
		"commitment": commitment,
		"fee_payer":  payer.PublicKey.ToBase58(),
	}).Info("ledger connected")
	return c, nil
}

func parseCommitment(s string) (rpc.Commitment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	default:
		return "", errors.Errorf("unknown commitment %q", s)
	}
}

func commitmentRank(c rpc.Commitment) int {
	switch c {
	case rpc.CommitmentFinalized:
		return 2
	case rpc.CommitmentConfirmed:
		return 1
	default:
		return 0
	}
}

func observe(op string, start time.Time, err *error) {
	metrics.LedgerCalls.WithLabelValues(op, metrics.Result(*err)).Inc()
	metrics.LedgerLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// submit signs with the fee payer, the local signers and the custody signer
// for each delegated public key, sends, and waits for the configured commitment
func (c *Client) submit(ctx context.Context, op string, ixs []types.Instruction, local []types.Account, delegated []string) (string, error) {
	latest, err := c.rpc.GetLatestBlockhash(ctx) // Fresh blockhash per transaction
	if err != nil {
		return "", errors.Wrapf(err, "%s: get latest blockhash", op)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        c.payer.PublicKey,
			RecentBlockhash: latest.Blockhash,
			Instructions:    ixs,
		}),
		Signers: append([]types.Account{c.payer}, local...), // Fee payer signs first
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s: build transaction", op)
	}

	if len(delegated) > 0 {
		msg, err := tx.Message.Serialize()
		if err != nil {
			return "", errors.Wrapf(err, "%s: serialize message", op)
		}
		for _, pub := range delegated {
			sig, err := c.signer.Sign(ctx, pub, msg) // Custody signs for user wallets
			if err != nil {
				return "", errors.Wrapf(err, "%s: sign for %s", op, pub)
			}
			if err := placeSignature(&tx, pub, sig); err != nil {
				return "", errors.Wrap(err, op)
			}
		}
	}

	sig, err := c.rpc.SendTransaction(ctx, tx) // Broadcast
	if err != nil {
		return "", errors.Wrapf(err, "%s: send transaction", op)
	}
	if err := c.confirm(ctx, sig); err != nil { // Wait for the configured commitment
		return sig, errors.Wrapf(err, "%s: confirm %s", op, sig)
	}
	logrus.WithFields(logrus.Fields{"op": op, "signature": sig}).Debug("transaction confirmed")
	return sig, nil
}

// placeSignature stores sig in the slot of the required signer pub
func placeSignature(tx *types.Transaction, pub string, sig []byte) error {
	n := int(tx.Message.Header.NumRequireSignatures)
	for i := 0; i < n && i < len(tx.Message.Accounts); i++ {
		if tx.Message.Accounts[i].ToBase58() == pub {
			tx.Signatures[i] = sig
			return nil
		}
	}
	return errors.Errorf("%s is not a required signer", pub)
}

func (c *Client) confirm(ctx context.Context, sig string) error {
	return waitConfirmed(ctx, c.timeout, func(ctx context.Context) (bool, error) {
		status, err := c.rpc.GetSignatureStatus(ctx, sig)
		if err != nil {
			return false, err
		}
		if status == nil { // Not seen yet
			return false, nil
		}
		if status.Err != nil { // Failed on chain, stop polling
			return false, backoff.Permanent(errors.Wrapf(ErrTransactionFailed, "%v", status.Err))
		}
		if status.ConfirmationStatus == nil {
			return false, nil
		}
		return commitmentRank(*status.ConfirmationStatus) >= commitmentRank(c.commitment), nil
	})
}

// accountData returns the raw data of an account and whether it exists
func (c *Client) accountData(ctx context.Context, addr string) ([]byte, bool, error) {
	info, err := c.rpc.GetAccountInfoWithConfig(ctx, addr, client.GetAccountInfoConfig{Commitment: c.commitment})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") { // Missing accounts are not errors
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "get account %s", addr)
	}
	if len(info.Data) == 0 && info.Lamports == 0 {
		return nil, false, nil
	}
	return info.Data, true, nil
}

func (c *Client) CreateMint(ctx context.Context, authority string, decimals uint8) (res MintResult, err error) {
	defer observe("create_mint", time.Now(), &err)
	auth, err := parseKey(authority)
	if err != nil {
		return MintResult{}, errors.Wrap(err, "mint authority")
	}
	mint := types.NewAccount() // New mint keypair, signs its own creation

	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize) // Mint account must be rent exempt
	if err != nil {
		return MintResult{}, errors.Wrap(err, "create mint: rent exemption")
	}

	sig, err := c.submit(ctx, "create mint", []types.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     c.payer.PublicKey,
			New:      mint.PublicKey,
			Owner:    common.TokenProgramID,
			Lamports: rent,
			Space:    token.MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals: decimals,
			Mint:     mint.PublicKey,
			MintAuth: auth,
		}),
	}, []types.Account{mint}, nil)
	if err != nil {
		return MintResult{}, err
	}
	return MintResult{Mint: mint.PublicKey.ToBase58(), Signature: sig}, nil
}

func (c *Client) AttachMetadata(ctx context.Context, in MetadataInput) (sig string, err error) {
	defer observe("attach_metadata", time.Now(), &err)
	mint, err := parseKey(in.Mint)
	if err != nil {
		return "", errors.Wrap(err, "mint")
	}
	auth, err := parseKey(in.Authority)
	if err != nil {
		return "", errors.Wrap(err, "authority")
	}
	metaAddr, err := MetadataAddress(in.Mint)
	if err != nil {
		return "", err
	}

	return c.submit(ctx, "attach metadata", []types.Instruction{
		token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
			Metadata:                common.PublicKeyFromString(metaAddr),
			Mint:                    mint,
			MintAuthority:           auth,
			Payer:                   c.payer.PublicKey,
			UpdateAuthority:         auth,
			UpdateAuthorityIsSigner: true, // Owner wallet keeps update rights
			IsMutable:               true,
			Data: token_metadata.DataV2{
				Name:                 in.Name,
				Symbol:               in.Symbol,
				Uri:                  in.URI,
				SellerFeeBasisPoints: 0, // No royalties on shares
			},
		}),
	}, nil, []string{in.Authority})
}

func (c *Client) EnsureAssociatedAccount(ctx context.Context, mint, owner string) (addr string, err error) {
	defer observe("ensure_account", time.Now(), &err)
	addr, err = AssociatedAddress(mint, owner)
	if err != nil {
		return "", err
	}
	if _, ok, err := c.accountData(ctx, addr); err != nil {
		return "", err
	} else if ok { // Already exists
		return addr, nil
	}

	_, err = c.submit(ctx, "create associated account", []types.Instruction{
		associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 c.payer.PublicKey,
			Owner:                  common.PublicKeyFromString(owner),
			Mint:                   common.PublicKeyFromString(mint),
			AssociatedTokenAccount: common.PublicKeyFromString(addr),
		}),
	}, nil, nil)
	if err != nil {
		// Another request may have created it first.
		if _, ok, rerr := c.accountData(ctx, addr); rerr == nil && ok {
			return addr, nil
		}
		return "", err
	}
	return addr, nil
}

func (c *Client) MintTo(ctx context.Context, in MintToInput) (sig string, err error) {
	defer observe("mint_to", time.Now(), &err)
	mint, err := parseKey(in.Mint)
	if err != nil {
		return "", errors.Wrap(err, "mint")
	}
	dest, err := parseKey(in.Destination)
	if err != nil {
		return "", errors.Wrap(err, "destination")
	}
	auth, err := parseKey(in.Authority)
	if err != nil {
		return "", errors.Wrap(err, "authority")
	}

	return c.submit(ctx, "mint to", []types.Instruction{
		token.MintTo(token.MintToParam{
			Mint:   mint,
			To:     dest,
			Auth:   auth,
			Amount: in.Amount,
		}),
	}, nil, []string{in.Authority})
}

func (c *Client) Transfer(ctx context.Context, in TransferInput) (sig string, err error) {
	defer observe("transfer", time.Now(), &err)
	from, err := AssociatedAddress(in.Mint, in.FromOwner) // Sender token account
	if err != nil {
		return "", errors.Wrap(err, "sender account")
	}
	to, err := AssociatedAddress(in.Mint, in.ToOwner) // Receiver token account
	if err != nil {
		return "", errors.Wrap(err, "receiver account")
	}

	return c.submit(ctx, "transfer", []types.Instruction{
		token.Transfer(token.TransferParam{
			From:   common.PublicKeyFromString(from),
			To:     common.PublicKeyFromString(to),
			Auth:   common.PublicKeyFromString(in.FromOwner),
			Amount: in.Amount,
		}),
	}, nil, []string{in.FromOwner})
}

func (c *Client) TokenBalance(ctx context.Context, account string) (amt TokenAmount, err error) {
	defer observe("token_balance", time.Now(), &err)
	if err := ValidateAddress(account); err != nil {
		return TokenAmount{}, err
	}
	data, ok, err := c.accountData(ctx, account)
	if err != nil {
		return TokenAmount{}, err
	}
	if !ok {
		return TokenAmount{}, ErrAccountNotFound
	}
	acc, err := token.TokenAccountFromData(data) // Decode the SPL token account
	if err != nil {
		return TokenAmount{}, errors.Wrapf(err, "decode token account %s", account)
	}
	supply, err := c.MintSupply(ctx, acc.Mint.ToBase58()) // Decimals come from the mint
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Amount: acc.Amount, Decimals: supply.Decimals}, nil
}

func (c *Client) MintSupply(ctx context.Context, mint string) (amt TokenAmount, err error) {
	defer observe("mint_supply", time.Now(), &err)
	if err := ValidateAddress(mint); err != nil {
		return TokenAmount{}, err
	}
	data, ok, err := c.accountData(ctx, mint)
	if err != nil {
		return TokenAmount{}, err
	}
	if !ok {
		return TokenAmount{}, ErrAccountNotFound
	}
	m, err := token.MintAccountFromData(data)
	if err != nil {
		return TokenAmount{}, errors.Wrapf(err, "decode mint %s", mint)
	}
	return TokenAmount{Amount: m.Supply, Decimals: m.Decimals}, nil
}

func (c *Client) Metadata(ctx context.Context, mint string) (meta *Metadata, err error) {
	defer observe("metadata", time.Now(), &err)
	addr, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	data, ok, err := c.accountData(ctx, addr)
	if err != nil || !ok { // No metadata account yields nil
		return nil, err
	}
	meta, err = decodeMetadata(data) // Borsh-decode the Metaplex account
	if err != nil {
		return nil, err
	}
	c.metadata.resolve(ctx, meta)
	return meta, nil
}
