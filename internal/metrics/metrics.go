package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments exported by the bot.
// A private registry keeps the endpoint free of default Go collectors noise
// from third party libraries registering globally.
type Metrics struct {
	registry *prometheus.Registry

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerRetries  *prometheus.CounterVec
	ledgerWrites     *prometheus.CounterVec
	commandsHandled  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "provider_calls_total",
			Help:      "Provider requests by capability and settled outcome",
		}, []string{"capability", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hermes",
			Name:      "provider_call_duration_seconds",
			Help:      "Wall time of a single provider attempt",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"capability"}),
		providerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "provider_retries_total",
			Help:      "Retries triggered by retryable soft failures",
		}, []string{"capability"}),
		ledgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "ledger_writes_total",
			Help:      "Usage ledger write attempts by status",
		}, []string{"status"}),
		commandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Name:      "commands_handled_total",
			Help:      "Bot commands handled by name",
		}, []string{"command"}),
	}

	m.registry.MustRegister(
		m.providerCalls,
		m.providerDuration,
		m.providerRetries,
		m.ledgerWrites,
		m.commandsHandled,
	)
	return m
}

// Handler serves the scrape endpoint for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProviderCall(capability, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(capability, outcome).Inc()
	m.providerDuration.WithLabelValues(capability).Observe(elapsed.Seconds())
}

func (m *Metrics) IncProviderRetry(capability string) {
	if m == nil {
		return
	}
	m.providerRetries.WithLabelValues(capability).Inc()
}

func (m *Metrics) IncLedgerWrite(status string) {
	if m == nil {
		return
	}
	m.ledgerWrites.WithLabelValues(status).Inc()
}

func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.commandsHandled.WithLabelValues(command).Inc()
}
