package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"harry_hype/internal/accounts"
	"harry_hype/internal/custody"
	"harry_hype/internal/db/dbtest"
	"harry_hype/internal/identity"
	"harry_hype/internal/ledger/ledgertest"
	"harry_hype/internal/shares"
	"harry_hype/internal/storage"
	"harry_hype/internal/storage/storagetest"
	"harry_hype/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Error   bool            `json:"error"`
	Message json.RawMessage `json:"message"`
	Supply  float64         `json:"supply"`
}

type testServer struct {
	router   *gin.Engine
	idp      *identity.Provider
	uploader *storagetest.Uploader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := dbtest.Open(t)
	store, err := custody.NewSealedStore(gdb, base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	up := storagetest.New()
	idp := identity.NewProvider(gdb, "test-secret", time.Hour)
	svc := shares.NewService(gdb, ledgertest.New(store), up, utils.NewRedisCache(rdb), utils.NewRedisBacklog(rdb, "audit"), shares.DefaultOptions())
	r := NewRouter(Deps{
		DB:       gdb,
		Verifier: idp,
		Accounts: accounts.NewService(gdb, idp, store, up),
		Shares:   svc,
	})
	return &testServer{router: r, idp: idp, uploader: up}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, data := range files {
		fw, err := mw.CreateFormFile(k, k+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID     string `json:"id"`
		Wallet string `json:"wallet_public_key"`
	} `json:"user"`
}

func (s *testServer) signUp(t *testing.T, name string) session {
	t.Helper()
	code, env := s.do(t, formRequest(t, "/auth/register", map[string]string{
		"name": name, "email": name + "@example.com", "password": "pw-" + name,
	}, nil), "")
	require.Equal(t, http.StatusCreated, code, string(env.Message))

	code, env = s.do(t, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: name + "@example.com", Password: "pw-" + name}), "")
	require.Equal(t, http.StatusOK, code, string(env.Message))
	var sess session
	require.NoError(t, json.Unmarshal(env.Message, &sess))
	return sess
}

func TestShareLifecycle(t *testing.T) {
	s := newTestServer(t)
	ana := s.signUp(t, "ana")
	bob := s.signUp(t, "bob")

	req := formRequest(t, "/startups", map[string]string{
		"name": "Cafe", "description": "Coffee", "token_name": "Cafe Shares", "token_symbol": "CAFE",
	}, map[string][]byte{"token_image": []byte("icon"), "startup_image": []byte("front")})
	req.Header.Set(IdempotencyHeader, "create-1")
	code, env := s.do(t, req, ana.Token)
	require.Equal(t, http.StatusCreated, code, string(env.Message))
	var startup struct {
		ID           string  `json:"id"`
		Token        *string `json:"token"`
		TokenAccount *string `json:"token_account"`
		TokenInfo    struct {
			MintAddress string `json:"mint_address"`
			ID          string `json:"id"`
		} `json:"token_info"`
	}
	require.NoError(t, json.Unmarshal(env.Message, &startup))
	require.NotNil(t, startup.Token)
	require.NotNil(t, startup.TokenAccount)
	mint := startup.TokenInfo.MintAddress

	code, env = s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{"startup_id": startup.ID, "amount_to_mint": 10}), ana.Token)
	require.Equal(t, http.StatusOK, code, string(env.Message))
	var sig string
	require.NoError(t, json.Unmarshal(env.Message, &sig))
	assert.NotEmpty(t, sig)

	code, env = s.do(t, jsonRequest(t, http.MethodPost, "/shares/transfer", map[string]any{"receiver": bob.User.Wallet, "amount": "2.5", "token_mint": mint}), ana.Token)
	require.Equal(t, http.StatusOK, code, string(env.Message))

	code, env = s.do(t, httptest.NewRequest(http.MethodGet, "/token/balance?mint="+mint+"&userWallet="+bob.User.Wallet, nil), "")
	require.Equal(t, http.StatusOK, code)
	var holding struct {
		Balance  float64 `json:"balance"`
		Metadata struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(env.Message, &holding))
	assert.Equal(t, 2.5, holding.Balance)
	assert.Equal(t, "CAFE", holding.Metadata.Symbol)

	code, env = s.do(t, jsonRequest(t, http.MethodPost, "/shares/issued", map[string]string{"mintAddress": mint}), "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, env.Error)
	assert.Equal(t, 10.0, env.Supply)

	code, env = s.do(t, httptest.NewRequest(http.MethodGet, "/token/balances?userId="+ana.User.ID, nil), "")
	require.Equal(t, http.StatusOK, code)
	var all []shares.HoldingResult
	require.NoError(t, json.Unmarshal(env.Message, &all))
	require.Len(t, all, 1)
	assert.Equal(t, 7.5, all[0].Balance)

	code, env = s.do(t, httptest.NewRequest(http.MethodGet, "/transactions?token_id="+startup.TokenInfo.ID, nil), bob.Token)
	require.Equal(t, http.StatusOK, code)
	var history shares.HistoryPage
	require.NoError(t, json.Unmarshal(env.Message, &history))
	assert.Equal(t, int64(1), history.Total)
}

func TestCreateStartupValidationMessage(t *testing.T) {
	s := newTestServer(t)
	ana := s.signUp(t, "ana")

	code, env := s.do(t, formRequest(t, "/startups", map[string]string{"name": "Cafe"}, nil), ana.Token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, env.Error)
	assert.JSONEq(t, `"Es necesario colocar un icono o imagen para tus shares!"`, string(env.Message))
}

func TestMintRejectsBadAmounts(t *testing.T) {
	s := newTestServer(t)
	ana := s.signUp(t, "ana")

	code, env := s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{"startup_id": "x", "amount_to_mint": 0}), ana.Token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `"amount must be greater than zero"`, string(env.Message))

	code, _ = s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{"startup_id": "x", "amount_to_mint": "abc"}), ana.Token)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{}), "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.True(t, env.Error)

	code, _ = s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{}), "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	// A valid credential without a local user row is forbidden.
	_, err := s.idp.SignUp(nil, "ghost@example.com", "pw")
	require.NoError(t, err)
	_, token, err := s.idp.SignIn("ghost@example.com", "pw")
	require.NoError(t, err)
	code, _ = s.do(t, jsonRequest(t, http.MethodPost, "/shares/mint", map[string]any{}), token)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestLoginFailure(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ana")

	code, env := s.do(t, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: "ana@example.com", Password: "nope"}), "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `"Invalid credentials"`, string(env.Message))
}

func TestRegisterSucceedsWhenPhotoUploadFails(t *testing.T) {
	s := newTestServer(t)
	s.uploader.Fail[storage.BucketUser] = errors.New("bucket offline")
	fields := map[string]string{"name": "ana", "email": "ana@example.com", "password": "pw-ana"}

	code, env := s.do(t, formRequest(t, "/auth/register", fields, map[string][]byte{"photo": []byte("png")}), "")
	require.Equal(t, http.StatusCreated, code, string(env.Message))
	var created struct {
		User struct {
			ID    string  `json:"id"`
			Photo *string `json:"photo"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Message, &created))
	assert.NotEmpty(t, created.User.ID)
	assert.Nil(t, created.User.Photo)

	code, _ = s.do(t, jsonRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: "ana@example.com", Password: "pw-ana"}), "")
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, formRequest(t, "/auth/register", fields, nil), "")
	assert.Equal(t, http.StatusConflict, code)
	assert.JSONEq(t, `"Email already registered"`, string(env.Message))
}

func TestRequiredFieldsAreBound(t *testing.T) {
	s := newTestServer(t)
	ana := s.signUp(t, "ana")

	cases := []struct {
		path  string
		token string
		body  any
		msg   string
	}{
		{"/shares/transfer", ana.Token, map[string]any{"receiver": ana.User.Wallet, "amount": 1}, "receiver, amount, and token_mint are required"},
		{"/shares/mint", ana.Token, map[string]any{"amount_to_mint": 5}, "startup_id and amount_to_mint are required"},
		{"/shares/issued", "", map[string]any{}, "mintAddress is required"},
		{"/auth/login", "", map[string]any{"email": "ana@example.com"}, "email and password are required"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			code, env := s.do(t, jsonRequest(t, http.MethodPost, tc.path, tc.body), tc.token)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.True(t, env.Error)
			assert.JSONEq(t, `"`+tc.msg+`"`, string(env.Message))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/shares/issued", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	code, env := s.do(t, req, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `"Invalid request"`, string(env.Message))
}
