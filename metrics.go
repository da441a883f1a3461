/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"

	"github.com/Seednode/beachteams/rotation"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics methods are no-ops on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	rounds   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	clients  prometheus.Gauge
}

func newMetrics(sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beachteams",
			Name:      "rounds_generated_total",
			Help:      "Rounds generated, by where the request came from.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beachteams",
			Name:      "requests_rejected_total",
			Help:      "Generate requests and client actions that were refused, by reason.",
		}, []string{"reason"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beachteams",
			Name:      "websocket_clients",
			Help:      "Open websocket connections.",
		}),
	}

	m.registry.MustRegister(
		m.rounds,
		m.rejected,
		m.clients,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "beachteams",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(sessions()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) round(source string) {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues(source).Inc()
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// rejectReason labels an error returned while generating a round.
func rejectReason(err error) string {
	var short *rotation.InsufficientPlayersError
	var invalid *rotation.InvalidCourtCountError
	switch {
	case errors.As(err, &short):
		return "insufficient_players"
	case errors.As(err, &invalid):
		return "invalid_courts"
	case errors.Is(err, rotation.ErrInvalidGameMode):
		return "invalid_mode"
	case errors.Is(err, errRosterTooLarge):
		return "roster_too_large"
	}
	return "other"
}

func (m *Metrics) connected(delta float64) {
	if m == nil {
		return
	}
	m.clients.Add(delta)
}

func serveMetrics(cfg *Config, m *Metrics) httprouter.Handle {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		h.ServeHTTP(w, r)
	}
}
