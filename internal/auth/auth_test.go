package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5f1b0c47-9353-4f51-a1b2-0f3b7a9ce001",
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, validClaims())

	user, err := v.VerifyHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "5f1b0c47-9353-4f51-a1b2-0f3b7a9ce001", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestVerifier_NoToken(t *testing.T) {
	v := NewVerifier(testSecret)

	for _, header := range []string{"", "Bearer ", "Basic abc", "token-without-scheme"} {
		_, err := v.VerifyHeader(header)
		assert.ErrorIs(t, err, ErrNoToken, "header %q", header)
	}
}

func TestVerifier_InvalidTokens(t *testing.T) {
	v := NewVerifier(testSecret)

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "some-other-secret", validClaims())
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(signToken(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims.Audience = jwt.ClaimStrings{"anon"}
		_, err := v.Verify(signToken(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing sub", func(t *testing.T) {
		claims := validClaims()
		claims.Subject = ""
		_, err := v.Verify(signToken(t, testSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifier_EmptySecretRejectsEverything(t *testing.T) {
	v := NewVerifier("")
	_, err := v.Verify(signToken(t, testSecret, validClaims()))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignInURL(t *testing.T) {
	got := SignInURL("https://abc.supabase.co/", "google", "https://yoink.app", "/auth/callback")
	assert.Equal(t,
		"https://abc.supabase.co/auth/v1/authorize?provider=google&redirect_to=https%3A%2F%2Fyoink.app%2Fauth%2Fcallback",
		got,
	)
}
