package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

const (
	namespace = "wa_assistant"
)

// Metrics holds the relay's Prometheus collectors
type Metrics struct {
	// webhookEvents counts inbound webhook deliveries.
	// Labels: event (messages.received, messages.upsert, session.status, ...), result (dispatched, skipped, ignored, invalid)
	webhookEvents *prometheus.CounterVec

	// pipelineRuns counts finished pipeline runs.
	// Labels: outcome (replied, gated_out, failed), reason (gate reason or failed stage)
	pipelineRuns *prometheus.CounterVec

	// providerErrors counts provider failures by kind.
	// Labels: stage (generate, deliver), kind (auth, rate_limit, timeout, other, configuration)
	providerErrors *prometheus.CounterVec

	// replyLatency measures receive-to-delivery latency of replied messages
	replyLatency prometheus.Histogram

	// inFlight tracks pipeline runs currently executing
	inFlight prometheus.Gauge

	// alerts counts operator alerts by result (sent, failed)
	alerts *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Inbound webhook events by event type and handling result",
		}, []string{"event", "result"}),
		pipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished pipeline runs by outcome",
		}, []string{"outcome", "reason"}),
		providerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "provider_errors_total",
			Help:      "AI and delivery provider failures by stage and kind",
		}, []string{"stage", "kind"}),
		replyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reply_latency_seconds",
			Help:      "Seconds from receipt to delivered reply, including the response delay",
			Buckets:   []float64{1, 2, 4, 6, 8, 10, 15, 20, 30, 45, 60, 120},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Pipeline runs currently executing",
		}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "sent_total",
			Help:      "Operator alerts by result",
		}, []string{"result"}),
	}
}

// WebhookEvent records one inbound webhook event. Event names outside the
// known set are folded into "other" to bound label cardinality.
func (m *Metrics) WebhookEvent(event, result string) {
	switch event {
	case "messages.received", "messages.upsert", "session.status":
	case "":
		event = "unknown"
	default:
		event = "other"
	}
	m.webhookEvents.WithLabelValues(event, result).Inc()
}

// RunStarted marks a pipeline run as in flight
func (m *Metrics) RunStarted() {
	m.inFlight.Inc()
}

// RunFinished records the result of a pipeline run
func (m *Metrics) RunFinished(res *domain.ProcessResult) {
	m.inFlight.Dec()

	reason := ""
	switch res.Outcome {
	case domain.OutcomeGatedOut:
		reason = string(res.Gate)
	case domain.OutcomeFailed:
		reason = string(res.Stage)
		if res.Stage == domain.StageGenerate || res.Stage == domain.StageDeliver {
			kind := string(domain.KindOf(res.Err))
			if domain.IsConfigurationError(res.Err) {
				kind = "configuration"
			} else if kind == "" {
				kind = string(domain.ErrorKindOther)
			}
			m.providerErrors.WithLabelValues(string(res.Stage), kind).Inc()
		}
	case domain.OutcomeReplied:
		m.replyLatency.Observe(res.Latency.Seconds())
	}
	m.pipelineRuns.WithLabelValues(string(res.Outcome), reason).Inc()
}

// Alert records an operator alert attempt
func (m *Metrics) Alert(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.alerts.WithLabelValues(result).Inc()
}
