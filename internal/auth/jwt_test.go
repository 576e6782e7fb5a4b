package auth

import (
	"testing"
	"time"
)

func TestJWTServiceGenerateValidate(t *testing.T) {
	service := NewJWTService("secret", time.Hour)
	token, err := service.Generate("whatsapp", "device-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Channel != "whatsapp" {
		t.Fatalf("expected channel whatsapp, got %q", claims.Channel)
	}
	if claims.Device != "device-1" {
		t.Fatalf("expected device device-1, got %q", claims.Device)
	}
}

func TestJWTServiceValidateRejectsExpired(t *testing.T) {
	service := NewJWTService("secret", -time.Hour)
	token, err := service.Generate("whatsapp", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := service.Validate(token); err != ErrInvalidToken {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTServiceValidateWrongSecret(t *testing.T) {
	service := NewJWTService("secret", time.Hour)
	token, err := service.Generate("whatsapp", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	other := NewJWTService("different", time.Hour)
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}
