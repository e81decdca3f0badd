// Package metrics owns the prometheus collectors of the service. Collectors
// are registered on an injected registry so tests can build isolated sets.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "certledger"

// Verification outcomes.
const (
	OutcomeFound         = "found"
	OutcomeNotFound      = "not_found"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInvalid       = "invalid"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	verifyRequests *prometheus.CounterVec
	ledgerCalls    *prometheus.HistogramVec
	ledgerErrors   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	issued         prometheus.Counter
	ledgerUp       prometheus.Gauge
	blockHeight    prometheus.Gauge
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		verifyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_requests_total",
			Help:      "Credential lookups by outcome.",
		}, []string{"outcome"}),
		ledgerCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_call_duration_seconds",
			Help:      "Latency of smart contract calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ledgerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_call_errors_total",
			Help:      "Failed smart contract calls.",
		}, []string{"method"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Credential cache lookups by result.",
		}, []string{"result"}),
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Issuance transactions submitted by this process.",
		}),
		ledgerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_up",
			Help:      "1 when the last ledger probe succeeded.",
		}),
		blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_block_height",
			Help:      "Latest block number seen by the ledger probe.",
		}),
	}
	reg.MustRegister(
		m.verifyRequests, m.ledgerCalls, m.ledgerErrors, m.cacheLookups,
		m.issued, m.ledgerUp, m.blockHeight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) VerifyOutcome(outcome string) {
	if m == nil {
		return
	}
	m.verifyRequests.WithLabelValues(outcome).Inc()
}

// ObserveLedgerCall records the latency of method and counts it as failed when err is set.
func (m *Metrics) ObserveLedgerCall(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.ledgerCalls.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		m.ledgerErrors.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CredentialIssued() {
	if m == nil {
		return
	}
	m.issued.Inc()
}

// LedgerProbe records the outcome of a health probe.
func (m *Metrics) LedgerProbe(height uint64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ledgerUp.Set(0)
		return
	}
	m.ledgerUp.Set(1)
	m.blockHeight.Set(float64(height))
}

// Gatherer exposes the registry for scraping and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the exposition format on a fiber route.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
