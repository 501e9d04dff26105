// Package auth bridges the hosted identity provider into the API: optional
// bearer-token verification and the sign-in redirect URL.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the fixed audience claim the identity provider stamps on
// session tokens.
const Audience = "authenticated"

// User is a verified identity extracted from a session token.
type User struct {
	ID    string
	Email string
}

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier validates HS256 session tokens issued by the hosted auth service.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared signing secret. An empty
// secret disables verification: every request is treated as a guest.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyHeader extracts and verifies the token from an Authorization header
// value. Returns ErrNoToken when no bearer token is present so callers can
// distinguish guests from forged tokens.
func (v *Verifier) VerifyHeader(header string) (*User, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, ErrNoToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return nil, ErrNoToken
	}
	return v.Verify(token)
}

// Verify checks the token signature, expiry, and audience, and returns the
// identity carried in the sub claim.
func (v *Verifier) Verify(tokenString string) (*User, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithAudience(Audience))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

// SignInURL builds the OAuth authorize redirect for the fixed provider,
// returning control to the app at callbackPath under its own origin.
func SignInURL(authBase, provider, appOrigin, callbackPath string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", strings.TrimRight(appOrigin, "/")+callbackPath)
	return strings.TrimRight(authBase, "/") + "/auth/v1/authorize?" + q.Encode()
}
