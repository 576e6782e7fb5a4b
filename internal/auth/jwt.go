// Package auth issues and validates the short-lived pairing tokens used
// by the `omega pair` CLI flow and the WHATSAPP_QR marker handshake. It
// does not model users or sessions; a pairing token just proves that
// whoever holds it was handed it by this agent's own `pair` command.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAuthDisabled = errors.New("auth disabled: no jwt secret configured")
	ErrInvalidToken = errors.New("invalid or expired pairing token")
)

// PairingClaims identifies which channel and device a pairing token
// was issued for.
type PairingClaims struct {
	Channel string `json:"channel"`
	Device  string `json:"device,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies pairing tokens with an HMAC secret.
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService builds a JWT helper with the given secret and expiry.
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

// Generate issues a signed pairing token for channel (e.g. "whatsapp")
// and an optional device identifier.
func (s *JWTService) Generate(channel, device string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", errors.New("channel required")
	}

	now := time.Now()
	claims := PairingClaims{
		Channel: channel,
		Device:  strings.TrimSpace(device),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  channel,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a pairing token.
func (s *JWTService) Validate(token string) (*PairingClaims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &PairingClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*PairingClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Channel) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
