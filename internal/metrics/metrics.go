package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sla-tracker/internal/tracker"
)

const namespace = "sla_tracker"

// StatsSource yields per-SOP compliance counts at scrape time.
type StatsSource interface {
	StatsBySOP() ([]tracker.Stats, error)
}

// Metrics owns a private registry so several servers can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry
	Events   *prometheus.CounterVec
	Requests *prometheus.HistogramVec
}

// New builds the registry. A nil source skips the SLA item gauges.
func New(src StatsSource) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "SLA lifecycle events by kind.",
		}, []string{"event"}),
		Requests: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if src != nil {
		reg.MustRegister(newItemsCollector(src))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts one lifecycle event (created, completed, adjusted, deleted).
func (m *Metrics) ObserveEvent(event string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event).Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

type itemsCollector struct {
	src    StatsSource
	items  *prometheus.Desc
	onTime *prometheus.Desc
}

func newItemsCollector(src StatsSource) *itemsCollector {
	return &itemsCollector{
		src: src,
		items: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "items"),
			"SLAs per SOP and compliance bucket.",
			[]string{"sop", "bucket"}, nil,
		),
		onTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "on_time_ratio"),
			"Share of completed SLAs closed within budget.",
			[]string{"sop"}, nil,
		),
	}
}

func (c *itemsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.onTime
}

func (c *itemsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.src.StatsBySOP()
	if err != nil {
		logrus.WithError(err).Warn("collect sla stats")
		ch <- prometheus.NewInvalidMetric(c.items, err)
		return
	}
	for _, st := range stats {
		for _, bucket := range tracker.Buckets {
			ch <- prometheus.MustNewConstMetric(c.items, prometheus.GaugeValue, float64(st.Counts[bucket]), st.SOPID, string(bucket))
		}
		ch <- prometheus.MustNewConstMetric(c.onTime, prometheus.GaugeValue, st.OnTimeRate(), st.SOPID)
	}
}
