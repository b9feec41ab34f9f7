/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package metrics exposes the gateway's prometheus series.
// Adopted from the wider codebase (memcp exposes no
// metrics of its own); registered against a private registry rather
// than the global default so tests can spin up independent instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsTotal   *prometheus.CounterVec
	QueriesTotal       *prometheus.CounterVec
	ActiveConnections  *prometheus.GaugeVec
	QueryDuration      *prometheus.HistogramVec
}

// New builds and registers every series. Histogram buckets run 1ms-10s.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumadb_connections_total",
			Help: "Total connections accepted, by protocol.",
		}, []string{"protocol"}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumadb_queries_total",
			Help: "Total queries executed, by protocol and query type.",
		}, []string{"protocol", "query_type"}),
		ActiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lumadb_active_connections",
			Help: "Currently open connections, by protocol.",
		}, []string{"protocol"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumadb_query_duration_seconds",
			Help:    "Query latency in seconds, by protocol and query type.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"protocol", "query_type"}),
	}
	reg.MustRegister(m.ConnectionsTotal, m.QueriesTotal, m.ActiveConnections, m.QueryDuration)
	return m
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records a new connection and bumps its gauge.
func (m *Metrics) ConnectionOpened(protocol string) {
	m.ConnectionsTotal.WithLabelValues(protocol).Inc()
	m.ActiveConnections.WithLabelValues(protocol).Inc()
}

// ConnectionClosed drops the active-connections gauge for protocol.
func (m *Metrics) ConnectionClosed(protocol string) {
	m.ActiveConnections.WithLabelValues(protocol).Dec()
}

// ObserveQuery records one completed query's latency and type.
func (m *Metrics) ObserveQuery(protocol, queryType string, seconds float64) {
	m.QueriesTotal.WithLabelValues(protocol, queryType).Inc()
	m.QueryDuration.WithLabelValues(protocol, queryType).Observe(seconds)
}
