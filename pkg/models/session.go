package models

import "time"

// ProviderSession is the provider-side continuation handle for one
// (channel, sender, project) tuple.
type ProviderSession struct {
	Channel   ChannelType `json:"channel"`
	SenderID  string      `json:"sender_id"`
	Project   string      `json:"project,omitempty"`
	SessionID string      `json:"session_id"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AuditStatus classifies how an exchange concluded, for §7 error policy.
type AuditStatus string

const (
	AuditOK     AuditStatus = "ok"
	AuditError  AuditStatus = "error"
	AuditDenied AuditStatus = "denied"
)

// AuditEntry is an append-only record of one pipeline exchange.
type AuditEntry struct {
	ID            int64       `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Channel       ChannelType `json:"channel"`
	SenderID      string      `json:"sender_id"`
	Input         string      `json:"input"`
	Output        string      `json:"output"`
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	ProcessingMS  int64       `json:"processing_ms"`
	Status        AuditStatus `json:"status"`
	DenialReason  string      `json:"denial_reason,omitempty"`
}
