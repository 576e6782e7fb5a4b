// Package markers implements spec §4.5's marker protocol: a catalog of
// known NAME: payload lines an LLM response may contain, extracted,
// dispatched to a handler, and stripped from the text before delivery
// so the protocol never leaks to the user.
package markers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/pkg/models"
)

// Marker is one extracted occurrence of a known marker.
type Marker struct {
	Name    string
	Payload string
	Fields  []string
	Raw     string
}

// Env carries everything a handler needs to act on a marker: the
// sender's identity, the live config (for HEARTBEAT_INTERVAL's
// persist-and-notify), the memory store, and the project/heartbeat
// file locations a handler may need to touch.
type Env struct {
	Ctx               context.Context
	Memory            *memory.Store
	Sender            string
	Channel           models.ChannelType
	Project           string
	ConversationID    int64
	ReplyTarget       string
	DataDir           string
	Config            *config.Config
	ConfigPath        string
	HeartbeatInterval *atomic.Int64
	NotifyHeartbeat   func()
	Logger            *slog.Logger
	Now               func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Outcome reports a side effect of dispatch that the pipeline needs to
// know about beyond "it ran": whether the user-facing reply must be
// suppressed entirely, and whether a pairing flow should start.
type Outcome struct {
	Silent       bool
	StartPairing bool
}

// Handler executes one marker's effect against Env.
type Handler func(env *Env, m Marker) error
