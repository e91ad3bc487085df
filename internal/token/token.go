// Package token mints and verifies the stateless config tokens. All state a
// delivery endpoint needs lives inside the signed token, so no store backs
// it — the trade-off is that a single token cannot be revoked early.
package token

import (
	"errors"
	"fmt"
	"time"

	"VPN-Connect-API/internal/panel"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// token, expired, not yet valid.
var ErrInvalidToken = errors.New("token: invalid or expired")

// Payload is the signed claim set: the full client identity plus iat/exp.
type Payload struct {
	panel.ClientInfo
	jwt.RegisteredClaims
}

// Codec signs and verifies config tokens with a server-held HS256 secret.
type Codec struct {
	secret []byte
}

// NewCodec fails when the secret is missing — a misconfigured secret must
// stop the process, never fall back silently.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: JWT_SECRET is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// GenerateConfigToken signs client into a token valid for days.
func (c *Codec) GenerateConfigToken(client panel.ClientInfo, days int) (string, error) {
	now := time.Now()
	claims := Payload{
		ClientInfo: client,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(days) * 24 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign config token: %w", err)
	}
	return signed, nil
}

// ValidateConfigToken verifies signature and expiry and returns the decoded
// payload. Every failure maps to ErrInvalidToken.
func (c *Codec) ValidateConfigToken(tokenString string) (*Payload, error) {
	var payload Payload
	parsed, err := jwt.ParseWithClaims(tokenString, &payload, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &payload, nil
}
