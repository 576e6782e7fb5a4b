package auth

import "testing"

func TestServiceIssueAndValidatePairingToken(t *testing.T) {
	service := NewService(Config{JWTSecret: "secret"})
	if !service.Enabled() {
		t.Fatal("Enabled() = false, want true")
	}

	token, err := service.IssuePairingToken("whatsapp", "my-phone")
	if err != nil {
		t.Fatalf("IssuePairingToken() error = %v", err)
	}
	claims, err := service.ValidatePairingToken(token)
	if err != nil {
		t.Fatalf("ValidatePairingToken() error = %v", err)
	}
	if claims.Channel != "whatsapp" || claims.Device != "my-phone" {
		t.Fatalf("ValidatePairingToken() claims = %+v, want channel=whatsapp device=my-phone", claims)
	}
}

func TestServiceDisabledWithoutSecret(t *testing.T) {
	service := NewService(Config{})
	if service.Enabled() {
		t.Fatal("Enabled() = true, want false without a secret")
	}
	if _, err := service.IssuePairingToken("whatsapp", ""); err != ErrAuthDisabled {
		t.Fatalf("IssuePairingToken() error = %v, want ErrAuthDisabled", err)
	}
}

func TestValidatePairingTokenRejectsTampered(t *testing.T) {
	service := NewService(Config{JWTSecret: "secret"})
	token, err := service.IssuePairingToken("whatsapp", "")
	if err != nil {
		t.Fatalf("IssuePairingToken() error = %v", err)
	}
	if _, err := service.ValidatePairingToken(token + "x"); err != ErrInvalidToken {
		t.Fatalf("ValidatePairingToken() error = %v, want ErrInvalidToken", err)
	}
}
