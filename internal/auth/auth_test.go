package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
)

func TestMintAndVerify(t *testing.T) {
	a := New("s3cret")
	token, err := a.Mint("alice", time.Hour)
	require.NoError(t, err)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, RoleAuthor, claims.Role)
}

func TestVerifyRejects(t *testing.T) {
	a := New("s3cret")

	expired, err := a.Mint("alice", -time.Minute)
	require.NoError(t, err)

	otherKey, err := New("other").Mint("alice", time.Hour)
	require.NoError(t, err)

	player, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "player",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleAuthor}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":      "",
		"garbage":    "not-a-token",
		"expired":    expired,
		"wrong key":  otherKey,
		"wrong role": player,
		"no expiry":  noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(token)
			require.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestMintWithoutSecret(t *testing.T) {
	a := New("")
	assert.False(t, a.Enabled())
	_, err := a.Mint("alice", time.Hour)
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}
