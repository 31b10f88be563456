package identity

import (
	"testing"
	"time"

	"harry_hype/internal/db/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpSignInVerify(t *testing.T) {
	p := NewProvider(dbtest.Open(t), "secret", time.Hour)

	id, err := p.SignUp(nil, " Ana@Example.com ", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = p.SignUp(nil, "ana@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	gotID, token, err := p.SignIn("ana@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	verified, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, verified)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	p := NewProvider(dbtest.Open(t), "secret", time.Hour)
	_, err := p.SignUp(nil, "ana@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = p.SignIn("ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = p.SignIn("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	p := NewProvider(dbtest.Open(t), "secret", time.Hour)
	other := NewProvider(dbtest.Open(t), "another", time.Hour)

	_, err := other.SignUp(nil, "ana@example.com", "hunter22")
	require.NoError(t, err)
	_, token, err := other.SignIn("ana@example.com", "hunter22")
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
