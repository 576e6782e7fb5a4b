package models

import "testing"

func TestChannelTypeConstants(t *testing.T) {
	cases := map[ChannelType]string{
		ChannelTelegram: "telegram",
		ChannelWhatsApp: "whatsapp",
		ChannelCLI:      "cli",
	}
	for constant, want := range cases {
		if string(constant) != want {
			t.Errorf("constant = %q, want %q", constant, want)
		}
	}
}

func TestRoleConstants(t *testing.T) {
	if RoleUser != "user" || RoleAssistant != "assistant" {
		t.Fatalf("unexpected role constants: %q %q", RoleUser, RoleAssistant)
	}
}
