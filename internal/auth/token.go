package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Remember-me sessions get the long expiry at login only.
const (
	DefaultTokenTTL    = 24 * time.Hour
	RememberMeTokenTTL = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("token is not valid")

// userClaim mirrors the {"user":{"id":N}} payload shape carried by every
// issued credential.
type userClaim struct {
	ID int64 `json:"id"`
}

type tokenClaims struct {
	User userClaim `json:"user"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies bearer credentials with a shared secret.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a manager for the given signing secret.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty jwt secret")
	}
	return &TokenManager{secret: []byte(secret)}, nil
}

// Issue creates a signed token for the user. rememberMe extends the expiry
// from one day to thirty.
func (m *TokenManager) Issue(userID int64, rememberMe bool) (string, error) {
	ttl := DefaultTokenTTL
	if rememberMe {
		ttl = RememberMeTokenTTL
	}

	now := time.Now()
	claims := tokenClaims{
		User: userClaim{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the embedded user id. Malformed,
// badly signed and expired tokens all come back as ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (int64, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	if claims.User.ID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.User.ID, nil
}

// ExpiresAt reports the expiry of a token issued by this manager, used by
// callers that want to inspect session length.
func (m *TokenManager) ExpiresAt(tokenString string) (time.Time, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}
