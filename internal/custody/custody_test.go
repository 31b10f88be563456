package custody

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"harry_hype/internal/db/dbtest"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func verify(t *testing.T, publicKey string, msg, sig []byte) bool {
	t.Helper()
	pub, err := base58.Decode(publicKey)
	require.NoError(t, err)
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func TestGenerateKeypair(t *testing.T) {
	kp := GenerateKeypair()

	secret, err := base64.StdEncoding.DecodeString(kp.SecretKey)
	require.NoError(t, err)
	require.Len(t, secret, ed25519.PrivateKeySize)

	pub, err := base58.Decode(kp.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(ed25519.PrivateKey(secret).Public().(ed25519.PublicKey)), pub)

	assert.NotEqual(t, kp.PublicKey, GenerateKeypair().PublicKey)
}

func TestSealedStoreSignsForCreatedWallet(t *testing.T) {
	masterKey := base64.StdEncoding.EncodeToString(make([]byte, 32))
	store, err := NewSealedStore(dbtest.Open(t), masterKey)
	require.NoError(t, err)
	ctx := context.Background()

	pub, err := store.CreateWallet(ctx)
	require.NoError(t, err)

	msg := []byte("transfer 100")
	sig, err := store.Sign(ctx, pub, msg)
	require.NoError(t, err)
	assert.True(t, verify(t, pub, msg, sig))

	_, err = store.Sign(ctx, GenerateKeypair().PublicKey, msg)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSealedStoreRejectsWrongMasterKey(t *testing.T) {
	gdb := dbtest.Open(t)
	store, err := NewSealedStore(gdb, base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	pub, err := store.CreateWallet(context.Background())
	require.NoError(t, err)

	other := make([]byte, 32)
	other[0] = 1
	wrong, err := NewSealedStore(gdb, base64.StdEncoding.EncodeToString(other))
	require.NoError(t, err)
	_, err = wrong.Sign(context.Background(), pub, []byte("x"))
	assert.Error(t, err)

	_, err = NewSealedStore(gdb, base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

type fakeSecrets struct {
	data map[string][]byte
}

func (f *fakeSecrets) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	d, ok := f.data[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such secret")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{Name: req.GetName(), Payload: &secretmanagerpb.SecretPayload{Data: d}}, nil
}

func (f *fakeSecrets) CreateSecret(_ context.Context, req *secretmanagerpb.CreateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	return &secretmanagerpb.Secret{Name: req.GetParent() + "/secrets/" + req.GetSecretId()}, nil
}

func (f *fakeSecrets) AddSecretVersion(_ context.Context, req *secretmanagerpb.AddSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	f.data[req.GetParent()+"/versions/latest"] = req.GetPayload().GetData()
	return &secretmanagerpb.SecretVersion{Name: req.GetParent() + "/versions/1"}, nil
}

func TestSecretManagerStore(t *testing.T) {
	fake := &fakeSecrets{data: map[string][]byte{}}
	store, err := NewSecretManagerStore(fake, "hype", "solana-wallet-")
	require.NoError(t, err)
	ctx := context.Background()

	pub, err := store.CreateWallet(ctx)
	require.NoError(t, err)
	assert.Contains(t, fake.data, "projects/hype/secrets/solana-wallet-"+pub+"/versions/latest")

	msg := []byte("mint 250")
	sig, err := store.Sign(ctx, pub, msg)
	require.NoError(t, err)
	assert.True(t, verify(t, pub, msg, sig))

	_, err = store.Sign(ctx, "unknown", msg)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = NewSecretManagerStore(fake, " ", "p-")
	assert.Error(t, err)
}
