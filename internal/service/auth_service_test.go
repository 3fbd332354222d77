package service

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T, password string) AuthService {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return NewAuthService("admin", hash, "test-secret")
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newAuthFixture(t, "s3cret")

	token, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthFixture(t, "s3cret")

	_, err := svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	issuer := NewAuthService("admin", hash, "secret-a")
	verifier := NewAuthService("admin", hash, "secret-b")

	token, err := issuer.Login("admin", "s3cret")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)

	_, err = verifier.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestProperty_OnlyTheConfiguredPasswordLogsIn(t *testing.T) {
	svc := newAuthFixture(t, "correct horse battery staple")

	properties := gopter.NewProperties(nil)

	properties.Property("every other password is rejected", prop.ForAll(
		func(password string) bool {
			if password == "correct horse battery staple" {
				return true
			}
			_, err := svc.Login("admin", password)
			return err == ErrInvalidCredentials
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
