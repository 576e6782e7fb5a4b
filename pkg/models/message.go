package models

import "time"

// ChannelType identifies a messaging platform a message or task originated from.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelCLI      ChannelType = "cli"
)

// Role indicates the author of a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment is a file or image accompanying an inbound or outbound message.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
	URL      string `json:"url,omitempty"`
}

// IncomingMessage is what a Channel adapter produces for the gateway to dispatch.
type IncomingMessage struct {
	Channel     ChannelType  `json:"channel"`
	SenderID    string       `json:"sender_id"`
	SenderName  string       `json:"sender_name,omitempty"`
	ReplyTarget string       `json:"reply_target"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// Message is a persisted turn within a Conversation.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversation_id"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}
