package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/exequial/internal/store"
)

type fakeUsers map[string]store.User

func (f fakeUsers) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := f[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("secreto1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secreto1"))
	assert.False(t, CheckPassword(hash, "secreto2"))
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("secreto1")
	require.NoError(t, err)

	users := fakeUsers{
		"activo@example.com":   {ID: "u1", Email: "activo@example.com", PasswordHash: hash, Role: store.RoleReseller, Active: true},
		"inactivo@example.com": {ID: "u2", Email: "inactivo@example.com", PasswordHash: hash, Role: store.RoleReseller},
	}
	a := NewAuthenticator(users)
	ctx := context.Background()

	u, err := a.Authenticate(ctx, "activo@example.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = a.Authenticate(ctx, "activo@example.com", "otra-clave")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nadie@example.com", "secreto1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "inactivo@example.com", "secreto1")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	u := store.User{ID: "u1", Email: "admin@example.com", Role: store.RoleAdmin}

	raw, err := tokens.Issue(u)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, store.RoleAdmin, claims.Role)
}

func TestTokensRejectsTamperedAndExpired(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	raw, err := tokens.Issue(store.User{ID: "u1", Role: store.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokens("other-secret", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse(raw + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
