package shares

import (
	"context"
	"testing"

	"harry_hype/internal/apperr"
	"harry_hype/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintSharesCreditsOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	startup := f.issue(t, owner, "k")
	mint := startup.Token.MintAddress

	sig, err := f.svc.MintShares(context.Background(), owner, startup.ID, "10.5")
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
	assert.Equal(t, uint64(1050), f.ledger.Balance(mint, owner.WalletPublicKey))

	_, err = f.svc.MintShares(context.Background(), owner, startup.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1150), f.ledger.Balance(mint, owner.WalletPublicKey))

	var txs int64
	f.db.Model(&domain.Transaction{}).Count(&txs)
	assert.Zero(t, txs)
}

func TestMintSharesRejections(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	other := f.user(t, "bob")
	startup := f.issue(t, owner, "k")

	bare := domain.Startup{UserID: owner.ID, Name: "No token", Description: "d"}
	require.NoError(t, f.db.Create(&bare).Error)

	calls := f.ledger.TotalCalls()
	cases := []struct {
		name      string
		caller    *domain.User
		startupID string
		amount    string
		kind      apperr.Kind
	}{
		{"zero amount", owner, startup.ID, "0", apperr.KindValidation},
		{"negative amount", owner, startup.ID, "-3", apperr.KindValidation},
		{"three decimals", owner, startup.ID, "1.005", apperr.KindValidation},
		{"missing startup id", owner, "", "1", apperr.KindValidation},
		{"unknown startup", owner, "00000000-0000-0000-0000-000000000000", "1", apperr.KindNotFound},
		{"startup without token", owner, bare.ID, "1", apperr.KindNotFound},
		{"not the owner", other, startup.ID, "1", apperr.KindForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.MintShares(context.Background(), tc.caller, tc.startupID, tc.amount)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
	assert.Equal(t, calls, f.ledger.TotalCalls())
}
