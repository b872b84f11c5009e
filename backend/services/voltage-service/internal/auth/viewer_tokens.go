package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidViewerToken is returned for malformed, expired or foreign tokens.
var ErrInvalidViewerToken = errors.New("auth: invalid viewer token")

// ViewerClaims is the JWT payload accepted on dashboard facing endpoints.
type ViewerClaims struct {
	jwt.RegisteredClaims
}

// ViewerTokens issues and validates HS256 viewer tokens.
type ViewerTokens struct {
	secret    []byte
	expiresIn time.Duration
}

// NewViewerTokens returns token helper. A non-positive ttl defaults to 24h.
func NewViewerTokens(secret string, expiresIn time.Duration) *ViewerTokens {
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return &ViewerTokens{secret: []byte(secret), expiresIn: expiresIn}
}

// Generate issues a token for subject.
func (v *ViewerTokens) Generate(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("auth: token subject is required")
	}
	now := time.Now().UTC()
	claims := ViewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Validate verifies signature and expiry and returns the claims.
func (v *ViewerTokens) Validate(tokenString string) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidViewerToken, err)
	}
	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidViewerToken
	}
	return claims, nil
}
