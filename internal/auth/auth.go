package auth

import (
	"strings"
	"sync"
	"time"
)

// Config configures the pairing-token service.
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// Service issues and checks pairing tokens. It is safe for concurrent
// use; Reconfigure lets `omega start` rotate the secret without
// restarting the gateway.
type Service struct {
	mu  sync.RWMutex
	jwt *JWTService
}

// NewService constructs a pairing-token service from static
// configuration. A zero Config leaves the service disabled.
func NewService(cfg Config) *Service {
	service := &Service{}
	service.Reconfigure(cfg)
	return service
}

// Reconfigure swaps the signing secret and expiry.
func (s *Service) Reconfigure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		s.jwt = nil
		return
	}
	s.jwt = NewJWTService(cfg.JWTSecret, cfg.TokenExpiry)
}

// Enabled reports whether pairing-token issuance is configured.
func (s *Service) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jwt != nil
}

// IssuePairingToken signs a short-lived token for the `pair` CLI flow
// or a WHATSAPP_QR handshake.
func (s *Service) IssuePairingToken(channel, device string) (string, error) {
	if s == nil {
		return "", ErrAuthDisabled
	}
	s.mu.RLock()
	jwt := s.jwt
	s.mu.RUnlock()
	if jwt == nil {
		return "", ErrAuthDisabled
	}
	return jwt.Generate(channel, device)
}

// ValidatePairingToken checks a token issued by IssuePairingToken.
func (s *Service) ValidatePairingToken(token string) (*PairingClaims, error) {
	if s == nil {
		return nil, ErrAuthDisabled
	}
	s.mu.RLock()
	jwt := s.jwt
	s.mu.RUnlock()
	if jwt == nil {
		return nil, ErrAuthDisabled
	}
	return jwt.Validate(token)
}
