package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bid outcomes recorded by ObserveBid
const (
	BidAccepted = "accepted"
	BidRejected = "rejected"
	BidFailed   = "failed"
)

// Metrics holds the service's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	bids          *prometheus.CounterVec
	closures      *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	invoices      *prometheus.CounterVec
	notifyFailed  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bids: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bids received, by result.",
		}, []string{"result"}),
		closures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_closures_total",
			Help: "Auctions moved to ended, by trigger.",
		}, []string{"trigger"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		invoices: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_invoices_total",
			Help: "Invoice generation attempts, by result.",
		}, []string{"result"}),
		notifyFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_notification_failures_total",
			Help: "Notification batches that could not be delivered, by type.",
		}, []string{"type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveBid(result string) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveClosure(trigger string) {
	if m == nil {
		return
	}
	m.closures.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveInvoice(result string) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveNotifyFailure(notificationType string) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
