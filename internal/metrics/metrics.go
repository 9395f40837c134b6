// Package metrics exposes the server's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors and the registry they are exposed from
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	storeBusy      prometheus.Counter
	chatMessages   prometheus.Counter
	mediaUploads   *prometheus.CounterVec
	previewFetches *prometheus.CounterVec
}

// New creates and registers every collector on a fresh registry
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hive_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		storeBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hive_store_busy_total",
			Help: "Operations that failed because the store stayed locked past the busy timeout",
		}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hive_chat_messages_total",
			Help: "Chat messages posted, including room announcements",
		}),
		mediaUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hive_media_uploads_total",
				Help: "Stored media files by kind",
			},
			[]string{"kind"},
		),
		previewFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hive_preview_fetch_total",
				Help: "Link preview lookups by result",
			},
			[]string{"result"}, // result: found, none, error, cached
		),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests,
		m.storeBusy,
		m.chatMessages,
		m.mediaUploads,
		m.previewFetches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) StoreBusy() {
	if m == nil {
		return
	}
	m.storeBusy.Inc()
}

func (m *Metrics) ChatMessage() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

func (m *Metrics) MediaUpload(kind string) {
	if m == nil {
		return
	}
	m.mediaUploads.WithLabelValues(kind).Inc()
}

func (m *Metrics) PreviewFetch(result string) {
	if m == nil {
		return
	}
	m.previewFetches.WithLabelValues(result).Inc()
}
