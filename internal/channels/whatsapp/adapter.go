// Package whatsapp implements the channels.Listener port (C12) against
// WhatsApp via whatsmeow's multidevice protocol, pairing by QR code
// rather than a bot token.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/omegacore/omega/pkg/models"
)

// Adapter bridges a whatsmeow client to the gateway. Session state
// lives in a SQLite store alongside the rest of omega's data so a
// paired session survives restarts without scanning a new QR code.
type Adapter struct {
	dbPath string
	logger *slog.Logger
	client *whatsmeow.Client
}

// New constructs an Adapter; dbPath is the whatsmeow session store
// (distinct from the agent's own memory.db).
func New(dbPath string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{dbPath: dbPath, logger: logger.With("channel", "whatsapp")}
}

func (a *Adapter) Name() string { return "whatsapp" }

// Start opens the session store, connects, and (if no session is
// paired yet) prints a pairing QR code to stderr. It returns once ctx
// is canceled.
func (a *Adapter) Start(ctx context.Context, inbox chan<- models.IncomingMessage) error {
	container, err := sqlstore.New(ctx, "sqlite3", "file:"+a.dbPath+"?_foreign_keys=on", waLog.Noop)
	if err != nil {
		return fmt.Errorf("whatsapp: open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: load device: %w", err)
	}

	a.client = whatsmeow.NewClient(device, waLog.Noop)
	a.client.AddEventHandler(func(evt any) { a.handleEvent(evt, inbox) })

	if a.client.Store.ID == nil {
		if err := a.pair(ctx); err != nil {
			return err
		}
	} else if err := a.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}

	<-ctx.Done()
	a.client.Disconnect()
	return nil
}

// pair runs whatsmeow's QR login flow, printing each code to stderr
// until the user scans one or ctx is canceled.
func (a *Adapter) pair(ctx context.Context) error {
	qrChan, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: get qr channel: %w", err)
	}
	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event == "code" {
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stderr)
			a.logger.Info("scan the QR code above with WhatsApp to pair")
		} else {
			a.logger.Info("whatsapp pairing event", "event", evt.Event)
		}
	}
	return nil
}

// RequestPairing forces a fresh pairing flow, implementing
// channels.Pairer for the WHATSAPP_QR marker.
func (a *Adapter) RequestPairing(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("whatsapp: adapter not started")
	}
	a.client.Disconnect()
	a.client.Store.ID = nil
	return a.pair(ctx)
}

func (a *Adapter) handleEvent(evt any, inbox chan<- models.IncomingMessage) {
	msg, ok := evt.(*events.Message)
	if !ok || msg.Info.IsFromMe {
		return
	}
	text := extractText(msg.Message)
	if text == "" {
		return
	}

	in := models.IncomingMessage{
		Channel:     models.ChannelWhatsApp,
		SenderID:    msg.Info.Sender.User,
		SenderName:  msg.Info.PushName,
		ReplyTarget: msg.Info.Chat.String(),
		Text:        text,
		ReceivedAt:  msg.Info.Timestamp,
	}
	select {
	case inbox <- in:
	default:
		a.logger.Warn("inbox full, dropping whatsapp message", "chat", in.ReplyTarget)
	}
}

func extractText(m *waProto.Message) string {
	if m == nil {
		return ""
	}
	if m.GetConversation() != "" {
		return m.GetConversation()
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

// Stop disconnects the whatsmeow client; Start's ctx cancellation
// already triggers the same disconnect, so this is best-effort.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.client != nil {
		a.client.Disconnect()
	}
	return nil
}

// Send delivers text to replyTarget, a whatsmeow JID string.
func (a *Adapter) Send(ctx context.Context, replyTarget, text string) error {
	if a.client == nil {
		return fmt.Errorf("whatsapp: adapter not started")
	}
	jid, err := types.ParseJID(replyTarget)
	if err != nil {
		return fmt.Errorf("whatsapp: invalid jid %q: %w", replyTarget, err)
	}
	_, err = a.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	return err
}

// SendTyping emits a "composing" presence update.
func (a *Adapter) SendTyping(ctx context.Context, replyTarget string) error {
	if a.client == nil {
		return nil
	}
	jid, err := types.ParseJID(replyTarget)
	if err != nil {
		return nil
	}
	return a.client.SendChatPresence(jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}
