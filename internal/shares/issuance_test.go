package shares

import (
	"context"
	"strings"
	"testing"
	"time"

	"harry_hype/internal/apperr"
	"harry_hype/internal/domain"
	"harry_hype/internal/storage"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateStartupIssuesToken(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")

	startup, iss, err := f.svc.CreateStartup(context.Background(), owner, startupInput("k1"))
	require.NoError(t, err)

	assert.True(t, startup.Tokenized())
	require.NotNil(t, startup.Token)
	assert.Equal(t, owner.ID, startup.UserID)
	assert.Equal(t, *startup.TokenID, startup.Token.ID)
	assert.Equal(t, owner.ID, startup.Token.UserID)
	assert.Equal(t, *iss.MintSignature, startup.Token.Signature)
	assert.True(t, strings.HasPrefix(startup.StartupImage, "https://storage.googleapis.com/startup/Cafe_Nandu_"))

	mint := startup.Token.MintAddress
	assert.Equal(t, owner.WalletPublicKey, f.ledger.MintAuthority(mint))
	assert.Equal(t, 1, f.uploader.Count(storage.BucketToken))
	assert.Equal(t, 1, f.uploader.Count(storage.BucketStartup))

	meta, err := f.ledger.Metadata(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Cafe Shares", meta.Name)
	assert.Equal(t, "CAFE", meta.Symbol)
	assert.Equal(t, *iss.TokenImageURL, meta.URI)

	assert.Equal(t, domain.IssuanceCompleted, iss.Status)
	assert.Equal(t, domain.StepRecorded, iss.Step)
	assert.Equal(t, startup.Token.ID, *iss.TokenID)
	assert.Nil(t, iss.LeaseUntil)

	var startups, tokens int64
	f.db.Model(&domain.Startup{}).Count(&startups)
	f.db.Model(&domain.Token{}).Count(&tokens)
	assert.Equal(t, int64(1), startups)
	assert.Equal(t, int64(1), tokens)
}

func TestCreateStartupWithoutStartupImage(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	in := startupInput("")
	in.StartupImage = nil

	startup, iss, err := f.svc.CreateStartup(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Empty(t, startup.StartupImage)
	assert.NotEmpty(t, iss.IdempotencyKey)
	assert.Equal(t, 0, f.uploader.Count(storage.BucketStartup))
}

func TestCreateStartupValidationOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")

	cases := []struct {
		mutate func(*CreateStartupInput)
		msg    string
	}{
		{func(in *CreateStartupInput) { in.TokenImage = nil; in.Name = "" }, "Es necesario colocar un icono o imagen para tus shares!"},
		{func(in *CreateStartupInput) { in.Name = ""; in.TokenName = "" }, "Es necesario colocar el nombre del startUp"},
		{func(in *CreateStartupInput) { in.TokenName = ""; in.Description = "" }, "Es necesario colocar el nombre de las shares"},
		{func(in *CreateStartupInput) { in.Description = " "; in.TokenSymbol = "" }, "Necesitamos una description de tu startUp"},
		{func(in *CreateStartupInput) { in.TokenSymbol = "" }, "Necesitamos un símbolo para tus shares"},
	}
	for _, tc := range cases {
		in := startupInput("v")
		tc.mutate(&in)
		_, _, err := f.svc.CreateStartup(context.Background(), owner, in)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Equal(t, tc.msg, err.Error())
	}
	assert.Equal(t, 0, f.ledger.TotalCalls())

	var n int64
	f.db.Model(&domain.Issuance{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateStartupResumesAfterFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	ctx := context.Background()

	f.ledger.FailOn("AttachMetadata", errors.New("blockhash expired"))
	_, iss, err := f.svc.CreateStartup(ctx, owner, startupInput("retry-me"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindLedger))
	require.NotNil(t, iss)
	assert.Equal(t, domain.IssuanceFailed, iss.Status)
	assert.Equal(t, domain.StepTokenImage, iss.Step)
	assert.Contains(t, iss.LastError, "blockhash expired")
	require.NotNil(t, iss.MintAddress)
	orphan := *iss.MintAddress

	stored, err := f.svc.GetIssuance(ctx, owner, iss.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssuanceFailed, stored.Status)

	f.ledger.FailOn("AttachMetadata", nil)
	startup, iss, err := f.svc.CreateStartup(ctx, owner, startupInput("retry-me"))
	require.NoError(t, err)
	assert.Equal(t, orphan, startup.Token.MintAddress)
	assert.Equal(t, 2, iss.Attempts)

	assert.Equal(t, 1, f.ledger.Calls("CreateMint"))
	assert.Equal(t, 1, f.ledger.MintCount())
	assert.Equal(t, 1, f.uploader.Count(storage.BucketToken))

	var startups int64
	f.db.Model(&domain.Startup{}).Count(&startups)
	assert.Equal(t, int64(1), startups)
}

func TestCreateStartupCompletedIsReturned(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	ctx := context.Background()

	first, _, err := f.svc.CreateStartup(ctx, owner, startupInput("once"))
	require.NoError(t, err)
	calls := f.ledger.TotalCalls()

	again, iss, err := f.svc.CreateStartup(ctx, owner, startupInput("once"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, iss.Attempts)
	assert.Equal(t, calls, f.ledger.TotalCalls())
}

func TestCreateStartupConflictWhileRunning(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	lease := time.Now().Add(time.Hour)
	require.NoError(t, f.db.Create(&domain.Issuance{
		UserID:         owner.ID,
		IdempotencyKey: "busy",
		Status:         domain.IssuanceRunning,
		Attempts:       1,
		LeaseUntil:     &lease,
	}).Error)

	_, _, err := f.svc.CreateStartup(context.Background(), owner, startupInput("busy"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 0, f.ledger.TotalCalls())
}

func TestCreateStartupStorageFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	f.uploader.Fail[storage.BucketToken] = errors.New("bucket unavailable")

	_, iss, err := f.svc.CreateStartup(context.Background(), owner, startupInput("s"))
	assert.True(t, apperr.Is(err, apperr.KindStorage))
	assert.Equal(t, domain.StepMintCreated, iss.Step)
	assert.Equal(t, 0, f.ledger.Calls("AttachMetadata"))
}

func TestGetIssuanceOwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	other := f.user(t, "bob")
	_, iss, err := f.svc.CreateStartup(context.Background(), owner, startupInput("k"))
	require.NoError(t, err)

	_, err = f.svc.GetIssuance(context.Background(), other, iss.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateStartupInsertFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_issuance", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*domain.Issuance); ok {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, iss, err := f.svc.CreateStartup(context.Background(), owner, startupInput("k"))
	require.Error(t, err)
	assert.Nil(t, iss)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 0, f.ledger.TotalCalls())
}

func TestCreateStartupLostInsertRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "ana")
	raced := false
	// Another request inserts the same key between the lookup and the insert.
	err := f.db.Callback().Create().Before("gorm:begin_transaction").Register("test:race_issuance", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*domain.Issuance); !ok || raced {
			return
		}
		raced = true
		_ = tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO issuances (id, user_id, idempotency_key, status, attempts) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), owner.ID, "k", domain.IssuanceRunning, 1,
		).Error
	})
	require.NoError(t, err)

	_, _, err = f.svc.CreateStartup(context.Background(), owner, startupInput("k"))
	require.Error(t, err)
	assert.True(t, raced)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 0, f.ledger.TotalCalls())
}
