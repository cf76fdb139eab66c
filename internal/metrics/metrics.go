// Package metrics owns the Prometheus collectors for the relay and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hackmate"

// Metrics is a private registry; tests create their own instance.
type Metrics struct {
	Registry *prometheus.Registry

	Connections        prometheus.Gauge
	RoomJoins          prometheus.Counter
	MessagesPersisted  prometheus.Counter
	BroadcastDelivered prometheus.Counter
	BroadcastDropped   prometheus.Counter
	RelayErrors        *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "connections",
			Help: "Currently registered relay connections.",
		}),
		RoomJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "room_joins_total",
			Help: "Join events processed.",
		}),
		MessagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "messages_persisted_total",
			Help: "Messages written to the message store.",
		}),
		BroadcastDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "broadcast_delivered_total",
			Help: "new-message events queued to a connection.",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "broadcast_dropped_total",
			Help: "new-message events dropped because the connection buffer was full.",
		}),
		RelayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "errors_total",
			Help: "Relay errors by kind (validation, storage, transport, bad-request).",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections,
		m.RoomJoins,
		m.MessagesPersisted,
		m.BroadcastDelivered,
		m.BroadcastDropped,
		m.RelayErrors,
		m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// GinMiddleware counts requests by matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
