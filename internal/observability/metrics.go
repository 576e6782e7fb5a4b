package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the Prometheus surface for the gateway: message flow through
// the two channel adapters, provider latency and token usage, marker
// dispatch outcomes, and the background loops (scheduler, heartbeat,
// summarizer).
type Metrics struct {
	// MessageCounter tracks messages by channel and direction.
	// Labels: channel (telegram|whatsapp|cli), direction (inbound|outbound)
	MessageCounter *prometheus.CounterVec

	// ProviderRequestDuration measures provider completion latency in seconds.
	// Labels: provider, model
	ProviderRequestDuration *prometheus.HistogramVec

	// ProviderRequestCounter counts provider completions by outcome.
	// Labels: provider, model, status (success|error|denied)
	ProviderRequestCounter *prometheus.CounterVec

	// ProviderTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	ProviderTokensUsed *prometheus.CounterVec

	// MarkerDispatched counts marker handler invocations.
	// Labels: marker, status (applied|denied|error)
	MarkerDispatched *prometheus.CounterVec

	// PipelineDuration measures end-to-end per-message pipeline latency.
	// Labels: channel
	PipelineDuration *prometheus.HistogramVec

	// ActiveConversations is a gauge of currently-active conversations.
	// Labels: channel
	ActiveConversations *prometheus.GaugeVec

	// SchedulerTaskRun counts scheduler task dispatch outcomes.
	// Labels: task_type (reminder|action), status (delivered|failed|retried)
	SchedulerTaskRun *prometheus.CounterVec

	// HeartbeatRun counts heartbeat cycle completions.
	// Labels: scope (global|project), status (ok|suppressed|error)
	HeartbeatRun *prometheus.CounterVec

	// SummarizerRun counts idle-conversation summarization passes.
	// Labels: status (summarized|skipped|error)
	SummarizerRun *prometheus.CounterVec

	// SandboxDenied counts file-access denials by the sandbox.
	// Labels: mode (sandbox|rx|rwx), operation (read|write)
	SandboxDenied *prometheus.CounterVec
}

// NewMetrics registers and returns all metrics. Call once at startup.
func NewMetrics() *Metrics {
	return &Metrics{
		MessageCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_messages_total",
				Help: "Total number of messages processed by channel and direction",
			},
			[]string{"channel", "direction"},
		),

		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omega_provider_request_duration_seconds",
				Help:    "Duration of provider completions in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		ProviderRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_provider_requests_total",
				Help: "Total number of provider completions by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		ProviderTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_provider_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		MarkerDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_marker_dispatched_total",
				Help: "Total number of marker handler invocations by marker and status",
			},
			[]string{"marker", "status"},
		),

		PipelineDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omega_pipeline_duration_seconds",
				Help:    "End-to-end per-message pipeline duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"channel"},
		),

		ActiveConversations: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omega_active_conversations",
				Help: "Current number of active conversations by channel",
			},
			[]string{"channel"},
		),

		SchedulerTaskRun: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_scheduler_task_runs_total",
				Help: "Total number of scheduled task dispatch outcomes by type and status",
			},
			[]string{"task_type", "status"},
		),

		HeartbeatRun: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_heartbeat_runs_total",
				Help: "Total number of heartbeat cycle completions by scope and status",
			},
			[]string{"scope", "status"},
		),

		SummarizerRun: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_summarizer_runs_total",
				Help: "Total number of idle-conversation summarization passes by status",
			},
			[]string{"status"},
		),

		SandboxDenied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omega_sandbox_denied_total",
				Help: "Total number of file-access denials by the sandbox, by mode and operation",
			},
			[]string{"mode", "operation"},
		),
	}
}

func (m *Metrics) MessageReceived(channel string) {
	m.MessageCounter.WithLabelValues(channel, "inbound").Inc()
}

func (m *Metrics) MessageSent(channel string) {
	m.MessageCounter.WithLabelValues(channel, "outbound").Inc()
}

// RecordProviderRequest records one provider completion's latency, outcome,
// and token usage.
func (m *Metrics) RecordProviderRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.ProviderRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.ProviderTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.ProviderTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

func (m *Metrics) RecordMarkerDispatched(marker, status string) {
	m.MarkerDispatched.WithLabelValues(marker, status).Inc()
}

func (m *Metrics) RecordPipelineDuration(channel string, durationSeconds float64) {
	m.PipelineDuration.WithLabelValues(channel).Observe(durationSeconds)
}

func (m *Metrics) ConversationStarted(channel string) {
	m.ActiveConversations.WithLabelValues(channel).Inc()
}

func (m *Metrics) ConversationClosed(channel string) {
	m.ActiveConversations.WithLabelValues(channel).Dec()
}

func (m *Metrics) RecordSchedulerTaskRun(taskType, status string) {
	m.SchedulerTaskRun.WithLabelValues(taskType, status).Inc()
}

func (m *Metrics) RecordHeartbeatRun(scope, status string) {
	m.HeartbeatRun.WithLabelValues(scope, status).Inc()
}

func (m *Metrics) RecordSummarizerRun(status string) {
	m.SummarizerRun.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordSandboxDenied(mode, operation string) {
	m.SandboxDenied.WithLabelValues(mode, operation).Inc()
}
