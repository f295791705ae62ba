// Package metrics exposes the Prometheus gauges and counters named in
// SPEC_FULL.md §6.1, served over GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlayersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resonance_players_connected",
		Help: "Number of Slimproto players currently connected.",
	})

	StreamGenerationTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resonance_stream_generation_total",
		Help: "Total number of streaming slot generations created across all players.",
	})

	CometdSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resonance_cometd_sessions",
		Help: "Number of active Cometd client sessions.",
	})

	TranscodeProcessesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resonance_transcode_processes_active",
		Help: "Number of transcode pipeline processes currently running.",
	})

	SeekDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resonance_seek_dropped_total",
		Help: "Total number of seek requests dropped due to lock contention.",
	})
)
