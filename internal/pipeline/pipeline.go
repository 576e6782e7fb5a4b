// Package pipeline implements spec §4.8's deterministic per-message
// flow (C8): the single path every inbound channel message travels,
// from per-sender serialization through sanitization, command dispatch,
// prompt and context assembly, the provider call, marker processing,
// and persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/omegacore/omega/internal/channels"
	"github.com/omegacore/omega/internal/config"
	"github.com/omegacore/omega/internal/markers"
	"github.com/omegacore/omega/internal/memory"
	"github.com/omegacore/omega/internal/projects"
	"github.com/omegacore/omega/internal/prompt"
	"github.com/omegacore/omega/internal/provider"
	"github.com/omegacore/omega/internal/sanitizer"
	"github.com/omegacore/omega/internal/skills"
	"github.com/omegacore/omega/pkg/models"
)

// pendingRequestTTL bounds how long a pending_discovery or
// pending_build_request fact reroutes conversation before it's treated
// as stale and ignored (spec §4.5's BUILD_PROPOSAL TTL).
const pendingRequestTTL = 120 * time.Second

// Pipeline holds every dependency step 1-15 needs. One Pipeline serves
// every sender and channel; per-sender ordering is enforced internally
// by dispatcher.
type Pipeline struct {
	Memory            *memory.Store
	Skills            *skills.Manager
	DataDir           string
	Config            *config.Config
	ConfigPath        string
	Provider          provider.Provider
	Selection         provider.Selection
	Senders           Senders
	Template          prompt.Template
	WelcomePath       string
	HeartbeatInterval *atomic.Int64
	NotifyHeartbeat   func()
	Logger            *slog.Logger
	AttachmentInbox   string
	Now               func() time.Time

	startedAt time.Time
	dispatch  *dispatcher
}

// New constructs a Pipeline ready to Handle messages.
func New(p Pipeline) *Pipeline {
	p.startedAt = time.Now()
	p.dispatch = newDispatcher()
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &p
}

func (p *Pipeline) now() time.Time { return p.Now() }

// Handle runs one inbound message through the full pipeline. A message
// that arrives while the same sender already has a call in flight is
// buffered and acknowledged, and Handle returns at once; the call that
// holds the sender's slot runs the buffered messages in arrival order
// before it returns, per spec §5's per-sender strict FIFO guarantee.
func (p *Pipeline) Handle(ctx context.Context, in models.IncomingMessage) {
	key := string(in.Channel) + ":" + in.SenderID
	q := p.dispatch.queueFor(key)

	if !q.claim(in) {
		if sender := p.Senders.For(string(in.Channel)); sender != nil {
			_ = sender.Send(ctx, in.ReplyTarget, "Got it, I'll get to this right after your previous message.")
		}
		return
	}

	p.run(ctx, in)
	for {
		next, ok := q.next()
		if !ok {
			return
		}
		p.run(ctx, next)
	}
}

// run executes steps 2-15 for a single already-claimed message.
func (p *Pipeline) run(ctx context.Context, in models.IncomingMessage) {
	start := p.now()
	sender := p.Senders.For(string(in.Channel))

	// Step 2: auth.
	if !p.authorize(in) {
		if sender != nil {
			_ = sender.Send(ctx, in.ReplyTarget, "You are not authorized to use this assistant.")
		}
		p.audit(ctx, in, "", start, models.AuditDenied, "not authorized")
		return
	}

	// Step 3: sanitize.
	text := sanitizer.Sanitize(in.Text)

	// Step 4: attachment intake (RAII-style: clean up on return).
	cleanup := p.stageAttachments(in.Attachments)
	defer cleanup()

	// Step 5: identity resolution. No cross-channel alias table is wired
	// yet, so sender_id is used as-is; aliasing is a no-op hook for C12.
	senderID := in.SenderID

	// Step 6: command dispatch.
	if name, args, ok := parseCommand(text); ok {
		if cmd, found := commandTable[name]; found {
			reply, err := cmd(ctx, p, in, args)
			if err != nil {
				p.Logger.Error("command failed", "command", name, "error", err)
				reply = "Sorry, that command failed."
			}
			if reply != "" && sender != nil {
				_ = sender.Send(ctx, in.ReplyTarget, reply)
			}
			p.audit(ctx, in, reply, start, models.AuditOK, "")
			return
		}
	}

	// Step 7: state-machine checks.
	if rerouted, reply := p.checkPendingState(ctx, senderID, text); rerouted {
		if reply != "" && sender != nil {
			_ = sender.Send(ctx, in.ReplyTarget, reply)
		}
		p.audit(ctx, in, reply, start, models.AuditOK, "")
		return
	}

	// Step 8: typing indicator, canceled once the provider call returns.
	typingCtx, stopTyping := context.WithCancel(ctx)
	startTyping(typingCtx, sender, in.ReplyTarget)
	defer stopTyping()

	activeProject, err := p.activeProject(ctx, senderID)
	if err != nil {
		p.fail(ctx, in, start, err)
		return
	}

	// Step 9: keyword detection + skill trigger match.
	needsSet := prompt.DetectNeeds(text)
	matchedSkills, err := p.Skills.Match(text)
	if err != nil {
		p.Logger.Warn("skill match failed", "error", err)
	}

	facts, err := p.Memory.GetAll(ctx, senderID)
	if err != nil {
		p.fail(ctx, in, start, err)
		return
	}

	var projectRole string
	if activeProject != "" {
		proj, err := projects.Load(p.DataDir, activeProject)
		if err != nil {
			p.Logger.Warn("project load failed", "project", activeProject, "error", err)
		} else if proj != nil {
			projectRole = proj.RoleInstructions
		}
	}

	language := prompt.ResolveLanguage(factValue(facts, "preferred_language"), text)
	if factValue(facts, "preferred_language") == "" {
		_ = p.Memory.SetSystemFact(ctx, senderID, "preferred_language", language)
	}

	prevStage := -1
	if raw := factValue(facts, "onboarding_stage"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			prevStage = n
		}
	}
	currentStage := prompt.Stage(countNonSystem(facts))
	if currentStage != prevStage {
		_ = p.Memory.SetSystemFact(ctx, senderID, "onboarding_stage", strconv.Itoa(currentStage))
	}

	profileFacts := make([]models.Fact, 0, len(facts))
	for _, f := range facts {
		profileFacts = append(profileFacts, *f)
	}

	// Step 10: system prompt assembly (C7).
	identitySystemPrompt := prompt.Build(prompt.Options{
		Now:               p.now().UTC(),
		Template:          p.Template,
		UserText:          text,
		Facts:             profileFacts,
		ActiveProjectRole: projectRole,
		PreviousStage:     prevStage,
		WelcomePath:       p.WelcomePath,
		PreferredLanguage: language,
	})
	identitySystemPrompt = appendSkillInstructions(identitySystemPrompt, matchedSkills)

	conv, err := p.Memory.GetOrCreateActive(ctx, in.Channel, senderID, activeProject)
	if err != nil {
		p.fail(ctx, in, start, err)
		return
	}

	// Step 11: context assembly (C2 build_context).
	memCtx, err := p.Memory.BuildContext(ctx, memory.BuildRequest{
		Sender:         senderID,
		Channel:        in.Channel,
		ActiveProject:  activeProject,
		ConversationID: conv.ID,
		Needs:          needsFromCapabilitySet(needsSet),
		RecallQuery:    text,
		ProjectRole:    projectRole,
	})
	if err != nil {
		p.fail(ctx, in, start, err)
		return
	}

	systemPrompt := strings.TrimSpace(identitySystemPrompt + "\n\n" + memCtx.SystemPrompt)

	// Step 12: session lookup.
	var sessionID string
	if sess, err := p.Memory.GetSession(ctx, in.Channel, senderID, activeProject); err == nil && sess != nil {
		sessionID = sess.SessionID
	}

	// Step 13: provider call, with delayed-status pings.
	statusCtx, stopStatus := context.WithCancel(ctx)
	startStatusPings(statusCtx, sender, in.ReplyTarget)

	result, err := p.Provider.Complete(ctx, provider.Context{
		SystemPrompt:   systemPrompt,
		History:        toProviderHistory(memCtx.History),
		CurrentMessage: text,
		Model:          p.Selection.ModelFor(false),
		MaxTurns:       0,
		SessionID:      sessionID,
		MCPServers:     skillMCPServers(matchedSkills),
	})
	stopStatus()
	stopTyping()

	if err != nil {
		p.fail(ctx, in, start, err)
		return
	}

	// Step 14: marker processing (C5).
	env := &markers.Env{
		Ctx:               ctx,
		Memory:            p.Memory,
		Sender:            senderID,
		Channel:           in.Channel,
		Project:           activeProject,
		ConversationID:    conv.ID,
		ReplyTarget:       in.ReplyTarget,
		DataDir:           p.DataDir,
		Config:            p.Config,
		ConfigPath:        p.ConfigPath,
		HeartbeatInterval: p.HeartbeatInterval,
		NotifyHeartbeat:   p.NotifyHeartbeat,
		Logger:            p.Logger,
		Now:               p.Now,
	}
	cleanedText, outcome, markerErrs := markers.Dispatch(env, result.Text)
	for _, mErr := range markerErrs {
		p.Logger.Warn("marker dispatch error", "error", mErr)
	}

	// Step 15: persist & audit.
	if _, err := p.Memory.Append(ctx, conv.ID, senderID, models.RoleUser, text, in.Attachments); err != nil {
		p.Logger.Error("failed to persist user message", "error", err)
	}
	if _, err := p.Memory.Append(ctx, conv.ID, senderID, models.RoleAssistant, cleanedText, nil); err != nil {
		p.Logger.Error("failed to persist assistant message", "error", err)
	}
	if result.SessionID != "" {
		_ = p.Memory.UpsertSession(ctx, &models.ProviderSession{
			Channel:   in.Channel,
			SenderID:  senderID,
			Project:   activeProject,
			SessionID: result.SessionID,
			UpdatedAt: p.now(),
		})
	}

	p.audit(ctx, in, cleanedText, start, models.AuditOK, "")

	if !outcome.Silent && strings.TrimSpace(cleanedText) != "" && sender != nil {
		_ = sender.Send(ctx, in.ReplyTarget, cleanedText)
	}

	if outcome.StartPairing {
		if pairer, ok := p.Senders.For("whatsapp").(channels.Pairer); ok {
			if err := pairer.RequestPairing(ctx); err != nil {
				p.Logger.Warn("whatsapp pairing request failed", "error", err)
			}
		}
	}
}

func (p *Pipeline) authorize(in models.IncomingMessage) bool {
	cc, ok := p.Config.Channel[string(in.Channel)]
	if !ok || len(cc.AllowedUsers) == 0 {
		return true
	}
	for _, id := range cc.AllowedUsers {
		if id == in.SenderID {
			return true
		}
	}
	return false
}

func (p *Pipeline) activeProject(ctx context.Context, sender string) (string, error) {
	fact, err := p.Memory.GetOne(ctx, sender, "active_project")
	if err != nil {
		return "", err
	}
	if fact == nil {
		return "", nil
	}
	return fact.Value, nil
}

// checkPendingState implements step 7: a pending_discovery or
// pending_build_request fact reroutes the message into a yes/no
// confirmation rather than the normal provider round-trip, and clears
// the fact once answered either way.
func (p *Pipeline) checkPendingState(ctx context.Context, sender, text string) (bool, string) {
	for _, key := range []string{"pending_build_request", "pending_discovery"} {
		fact, err := p.Memory.GetOne(ctx, sender, key)
		if err != nil || fact == nil {
			continue
		}
		if p.now().Sub(fact.UpdatedAt) > pendingRequestTTL {
			_ = p.Memory.DeleteSystemFact(ctx, sender, key)
			continue
		}
		confirmed := containsAffirmation(text)
		_ = p.Memory.DeleteSystemFact(ctx, sender, key)
		if confirmed {
			return true, fmt.Sprintf("Confirmed: %s", fact.Value)
		}
		return true, "Okay, I won't proceed with that."
	}
	return false, ""
}

func containsAffirmation(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, word := range []string{"yes", "y", "confirm", "go ahead", "do it", "si", "sí", "oui", "ja"} {
		if lower == word || strings.HasPrefix(lower, word+" ") {
			return true
		}
	}
	return false
}

func (p *Pipeline) fail(ctx context.Context, in models.IncomingMessage, start time.Time, err error) {
	p.Logger.Error("pipeline error", "error", err)
	if sender := p.Senders.For(string(in.Channel)); sender != nil {
		_ = sender.Send(ctx, in.ReplyTarget, "Something went wrong handling that. Please try again.")
	}
	p.audit(ctx, in, "", start, models.AuditError, err.Error())
}

func (p *Pipeline) audit(ctx context.Context, in models.IncomingMessage, output string, start time.Time, status models.AuditStatus, denialReason string) {
	entry := &models.AuditEntry{
		Timestamp:    p.now(),
		Channel:      in.Channel,
		SenderID:     in.SenderID,
		Input:        in.Text,
		Output:       output,
		Provider:     providerName(p.Provider),
		ProcessingMS: p.now().Sub(start).Milliseconds(),
		Status:       status,
		DenialReason: denialReason,
	}
	if err := p.Memory.AppendAudit(ctx, entry); err != nil {
		p.Logger.Error("failed to write audit entry", "error", err)
	}
}

func providerName(pr provider.Provider) string {
	if pr == nil {
		return ""
	}
	return pr.Name()
}

func factValue(facts []*models.Fact, key string) string {
	for _, f := range facts {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

func countNonSystem(facts []*models.Fact) int {
	n := 0
	for _, f := range facts {
		if !models.IsSystemFactKey(f.Key) {
			n++
		}
	}
	return n
}

func needsFromCapabilitySet(c prompt.CapabilitySet) memory.Needs {
	return memory.Needs{
		memory.NeedScheduling: c.Scheduling,
		memory.NeedRecall:     c.Recall,
		memory.NeedTasks:      c.Tasks,
		memory.NeedProjects:   c.Projects,
		memory.NeedBuilds:     c.Builds,
		memory.NeedMeta:       c.Meta,
		memory.NeedProfile:    true,
		memory.NeedSummaries:  c.Summarize,
		memory.NeedOutcomes:   c.Outcomes,
		memory.NeedHeartbeat:  c.Heartbeat,
	}
}

func toProviderHistory(messages []*models.Message) []provider.Message {
	out := make([]provider.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func appendSkillInstructions(systemPrompt string, matched []*models.Skill) string {
	if len(matched) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n## Relevant skills\n")
	for _, s := range matched {
		fmt.Fprintf(&b, "### %s\n%s\n", s.Name, s.Instructions)
	}
	return b.String()
}

func skillMCPServers(matched []*models.Skill) []provider.MCPServer {
	var out []provider.MCPServer
	for _, s := range matched {
		for _, m := range s.MCPServers {
			out = append(out, provider.MCPServer{Name: m.Name, Command: m.Command, Args: m.Args, Env: m.Env})
		}
	}
	return out
}
