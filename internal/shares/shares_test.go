package shares

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"harry_hype/internal/custody"
	"harry_hype/internal/db/dbtest"
	"harry_hype/internal/domain"
	"harry_hype/internal/ledger/ledgertest"
	"harry_hype/internal/storage/storagetest"
	"harry_hype/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	ledger   *ledgertest.Ledger
	uploader *storagetest.Uploader
	custody  *custody.SealedStore
	backlog  *utils.RedisBacklog
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	store, err := custody.NewSealedStore(gdb, base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		db:       gdb,
		ledger:   ledgertest.New(store),
		uploader: storagetest.New(),
		custody:  store,
		backlog:  utils.NewRedisBacklog(rdb, "audit:transactions"),
		redis:    mr,
	}
	f.svc = NewService(gdb, f.ledger, f.uploader, utils.NewRedisCache(rdb), f.backlog, Options{AuditRetry: 50 * time.Millisecond})
	return f
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	pub, err := f.custody.CreateWallet(context.Background())
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: name + "@example.com", WalletPublicKey: pub}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func startupInput(key string) CreateStartupInput {
	return CreateStartupInput{
		Name:           "Café Ñandú",
		Description:    "Specialty coffee",
		TokenName:      "Cafe Shares",
		TokenSymbol:    "CAFE",
		TokenImage:     &File{Name: "icon.png", ContentType: "image/png", Data: []byte("png")},
		StartupImage:   &File{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
		IdempotencyKey: key,
	}
}

// issue creates a tokenized startup for owner
func (f *fixture) issue(t *testing.T, owner *domain.User, key string) *domain.Startup {
	t.Helper()
	startup, _, err := f.svc.CreateStartup(context.Background(), owner, startupInput(key))
	require.NoError(t, err)
	return startup
}
