// Package metrics exposes scanner counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const namespace = "triscan"

// Metrics holds the scanner collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	ScansTotal          prometheus.Counter
	ScanDuration        prometheus.Histogram
	ExchangeErrorsTotal *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	CandidatesTotal     *prometheus.CounterVec
	DiscardedTotal      *prometheus.CounterVec
	OpportunitiesFound  *prometheus.CounterVec
	Opportunities       *prometheus.GaugeVec
	BestProfitPct       *prometheus.GaugeVec
	QuotesAccepted      *prometheus.GaugeVec
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scans_total", Help: "Completed scans.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "scan_duration_seconds", Help: "Wall time of a full scan.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ExchangeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "exchange_errors_total", Help: "Exchanges that failed during a scan.",
		}, []string{"exchange"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "fetch_duration_seconds", Help: "Ticker fetch latency by exchange.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"exchange"}),
		CandidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_total", Help: "Triangles evaluated.",
		}, []string{"exchange"}),
		DiscardedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_discarded_total", Help: "Triangles discarded by reason.",
		}, []string{"exchange", "reason"}),
		OpportunitiesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "opportunities_found_total", Help: "Opportunities reported.",
		}, []string{"exchange"}),
		Opportunities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "opportunities", Help: "Opportunities in the latest scan.",
		}, []string{"exchange"}),
		BestProfitPct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "best_profit_pct", Help: "Best after-fee profit in the latest scan.",
		}, []string{"exchange"}),
		QuotesAccepted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "quotes_accepted", Help: "Quotes that became graph edges in the latest scan.",
		}, []string{"exchange"}),
	}

	m.reg.MustRegister(
		m.ScansTotal, m.ScanDuration, m.ExchangeErrorsTotal, m.FetchDuration,
		m.CandidatesTotal, m.DiscardedTotal, m.OpportunitiesFound,
		m.Opportunities, m.BestProfitPct, m.QuotesAccepted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveReport records a finished scan.
func (m *Metrics) ObserveReport(r domain.ScanReport) {
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())

	for _, ex := range r.Exchanges {
		name := ex.Exchange
		m.FetchDuration.WithLabelValues(name).Observe(ex.FetchDuration.Seconds())
		if ex.Error != "" {
			m.ExchangeErrorsTotal.WithLabelValues(name).Inc()
			m.Opportunities.WithLabelValues(name).Set(0)
			continue
		}

		m.CandidatesTotal.WithLabelValues(name).Add(float64(ex.Stats.Candidates))
		for reason, n := range ex.Stats.Discarded {
			m.DiscardedTotal.WithLabelValues(name, reason).Add(float64(n))
		}
		m.QuotesAccepted.WithLabelValues(name).Set(float64(ex.Stats.QuotesAccepted))
		m.OpportunitiesFound.WithLabelValues(name).Add(float64(len(ex.Opportunities)))
		m.Opportunities.WithLabelValues(name).Set(float64(len(ex.Opportunities)))
		if len(ex.Opportunities) > 0 {
			// Opportunities are ranked, so the first is the best.
			m.BestProfitPct.WithLabelValues(name).Set(ex.Opportunities[0].ProfitAfterFeesPct)
		} else {
			m.BestProfitPct.DeleteLabelValues(name)
		}
	}
}
