// Package metrics exposes Prometheus counters for quoting and sales activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exequial"

// Webhook outcomes.
const (
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeDeclined  = "declined"
	OutcomeInvalid   = "invalid"
)

// Metrics groups the application collectors under a private registry.
type Metrics struct {
	registry *prometheus.Registry

	QuotesPriced   prometheus.Counter
	QuotesCreated  prometheus.Counter
	SalesRecorded  *prometheus.CounterVec
	CommissionsCOP prometheus.Counter
	WebhookEvents  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		QuotesPriced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_priced_total",
			Help:      "Quotations priced, persisted or not.",
		}),
		QuotesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_created_total",
			Help:      "Quotations persisted.",
		}),
		SalesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Sales recorded, by payment method.",
		}, []string{"method"}),
		CommissionsCOP: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commissions_cop_total",
			Help:      "Reseller commission accrued, in COP.",
		}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment gateway events received, by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QuotesPriced,
		m.QuotesCreated,
		m.SalesRecorded,
		m.CommissionsCOP,
		m.WebhookEvents,
		m.HTTPRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler counts requests served by next.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequests, next)
}
