package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return &Metrics{
		MessageCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_messages_total", Help: "test"},
			[]string{"channel", "direction"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_provider_duration_seconds", Help: "test", Buckets: []float64{1, 5, 30}},
			[]string{"provider", "model"},
		),
		ProviderRequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_provider_requests_total", Help: "test"},
			[]string{"provider", "model", "status"},
		),
		ProviderTokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_provider_tokens_total", Help: "test"},
			[]string{"provider", "model", "type"},
		),
		MarkerDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_marker_dispatched_total", Help: "test"},
			[]string{"marker", "status"},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_pipeline_duration_seconds", Help: "test", Buckets: []float64{1, 5, 30}},
			[]string{"channel"},
		),
		ActiveConversations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "test_active_conversations", Help: "test"},
			[]string{"channel"},
		),
		SchedulerTaskRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_scheduler_task_runs_total", Help: "test"},
			[]string{"task_type", "status"},
		),
		HeartbeatRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_heartbeat_runs_total", Help: "test"},
			[]string{"scope", "status"},
		),
		SummarizerRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_summarizer_runs_total", Help: "test"},
			[]string{"status"},
		),
		SandboxDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_sandbox_denied_total", Help: "test"},
			[]string{"mode", "operation"},
		),
	}
}

func TestMessageReceivedAndSent(t *testing.T) {
	m := newTestMetrics()
	m.MessageReceived("telegram")
	m.MessageReceived("telegram")
	m.MessageSent("whatsapp")

	expected := `
		# HELP test_messages_total test
		# TYPE test_messages_total counter
		test_messages_total{channel="telegram",direction="inbound"} 2
		test_messages_total{channel="whatsapp",direction="outbound"} 1
	`
	if err := testutil.CollectAndCompare(m.MessageCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestRecordProviderRequest(t *testing.T) {
	m := newTestMetrics()
	m.RecordProviderRequest("anthropic", "claude", "success", 1.5, 100, 50)

	if got := testutil.ToFloat64(m.ProviderRequestCounter.WithLabelValues("anthropic", "claude", "success")); got != 1 {
		t.Errorf("expected 1 request recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensUsed.WithLabelValues("anthropic", "claude", "prompt")); got != 100 {
		t.Errorf("expected 100 prompt tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProviderTokensUsed.WithLabelValues("anthropic", "claude", "completion")); got != 50 {
		t.Errorf("expected 50 completion tokens, got %v", got)
	}
}

func TestRecordMarkerDispatched(t *testing.T) {
	m := newTestMetrics()
	m.RecordMarkerDispatched("REMIND", "applied")
	m.RecordMarkerDispatched("REMIND", "applied")
	m.RecordMarkerDispatched("SANDBOX_MODE", "denied")

	if got := testutil.ToFloat64(m.MarkerDispatched.WithLabelValues("REMIND", "applied")); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.MarkerDispatched.WithLabelValues("SANDBOX_MODE", "denied")); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestConversationLifecycle(t *testing.T) {
	m := newTestMetrics()
	m.ConversationStarted("telegram")
	m.ConversationStarted("telegram")
	m.ConversationClosed("telegram")

	if got := testutil.ToFloat64(m.ActiveConversations.WithLabelValues("telegram")); got != 1 {
		t.Errorf("expected 1 active conversation, got %v", got)
	}
}

func TestRecordSchedulerAndHeartbeatAndSummarizer(t *testing.T) {
	m := newTestMetrics()
	m.RecordSchedulerTaskRun("reminder", "delivered")
	m.RecordHeartbeatRun("global", "ok")
	m.RecordSummarizerRun("summarized")
	m.RecordSandboxDenied("sandbox", "write")

	if got := testutil.ToFloat64(m.SchedulerTaskRun.WithLabelValues("reminder", "delivered")); got != 1 {
		t.Errorf("expected 1 scheduler run, got %v", got)
	}
	if got := testutil.ToFloat64(m.HeartbeatRun.WithLabelValues("global", "ok")); got != 1 {
		t.Errorf("expected 1 heartbeat run, got %v", got)
	}
	if got := testutil.ToFloat64(m.SummarizerRun.WithLabelValues("summarized")); got != 1 {
		t.Errorf("expected 1 summarizer run, got %v", got)
	}
	if got := testutil.ToFloat64(m.SandboxDenied.WithLabelValues("sandbox", "write")); got != 1 {
		t.Errorf("expected 1 sandbox denial, got %v", got)
	}
}
