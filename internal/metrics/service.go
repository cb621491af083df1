package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// Service holds the Prometheus collectors.
type Service struct {
	Queued             prometheus.Counter
	MatchesCreated     prometheus.Counter
	MatchesSettled     *prometheus.CounterVec
	SettlementFailures prometheus.Counter
	QueueWait          prometheus.Histogram
	SettlementDuration prometheus.Histogram
	QueueLength        prometheus.Gauge
	LiveMatches        prometheus.Gauge
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "royale_queue_joins_total",
			Help: "The total number of connections that entered the waiting queue.",
		}),
		MatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "royale_matches_created_total",
			Help: "The total number of matches paired.",
		}),
		MatchesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "royale_matches_settled_total",
			Help: "The total number of matches settled, by what closed them.",
		}, []string{"reason"}),
		SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "royale_settlement_failures_total",
			Help: "The total number of per-player counter updates that failed during settlement.",
		}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "royale_queue_wait_seconds",
			Help:    "Time a connection waited in the queue before being paired.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "royale_settlement_duration_seconds",
			Help:    "The duration of match settlement including store writes.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "royale_queue_length",
			Help: "Connections currently waiting for an opponent.",
		}),
		LiveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "royale_live_matches",
			Help: "Matches currently tracked, including settled ones inside the grace window.",
		}),
	}

	reg.MustRegister(
		s.Queued,
		s.MatchesCreated,
		s.MatchesSettled,
		s.SettlementFailures,
		s.QueueWait,
		s.SettlementDuration,
		s.QueueLength,
		s.LiveMatches,
	)

	return s
}

func (s *Service) IncQueued() {
	s.Queued.Inc()
}

func (s *Service) IncMatchesCreated() {
	s.MatchesCreated.Inc()
}

func (s *Service) IncMatchesSettled(reason string) {
	s.MatchesSettled.WithLabelValues(reason).Inc()
}

func (s *Service) IncSettlementFailures() {
	s.SettlementFailures.Inc()
}

func (s *Service) ObserveQueueWait(seconds float64) {
	s.QueueWait.Observe(seconds)
}

func (s *Service) ObserveSettlementDuration(seconds float64) {
	s.SettlementDuration.Observe(seconds)
}

func (s *Service) SetQueueLength(n int) {
	s.QueueLength.Set(float64(n))
}

func (s *Service) SetLiveMatches(n int) {
	s.LiveMatches.Set(float64(n))
}
