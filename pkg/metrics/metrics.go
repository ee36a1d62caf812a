// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	activeWatchers    prometheus.GaugeVec
	statusTransitions prometheus.CounterVec
	feedMessages      prometheus.CounterVec
	reconnects        prometheus.CounterVec
	discoveryElapsed  prometheus.HistogramVec
	pipelineOutcomes  prometheus.CounterVec
}

func setupPrometheusMetrics(registry *prometheus.Registry) prometheusMetrics {
	factory := promauto.With(registry)
	providerLabel := []string{"provider"}

	activeWatchers := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mjob_active_watchers",
			Help: "Number of watchers currently registered per provider",
		}, providerLabel)

	//nolint:promlinter
	statusTransitions := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mjob_watcher_status_transitions",
			Help: "Watcher status writes by resulting status",
		}, append(providerLabel, "status"))

	//nolint:promlinter
	feedMessages := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mjob_feed_messages",
			Help: "Feed messages seen by watchers, accepted or dropped by the sequence check",
		}, append(providerLabel, "outcome"))

	//nolint:promlinter
	reconnects := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mjob_feed_reconnects",
			Help: "Reconnect attempts of streaming feeds",
		}, providerLabel)

	//nolint:promlinter
	discoveryElapsed := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mjob_discovery_elapsed_time_ms",
			Help:    "A histogram of discovery cycle elapsed time in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, providerLabel)

	//nolint:promlinter
	pipelineOutcomes := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mjob_pipeline_outcomes",
			Help: "Watchables leaving the attach pipeline by outcome",
		}, append(providerLabel, "outcome"))

	return prometheusMetrics{
		activeWatchers:    *activeWatchers,
		statusTransitions: *statusTransitions,
		feedMessages:      *feedMessages,
		reconnects:        *reconnects,
		discoveryElapsed:  *discoveryElapsed,
		pipelineOutcomes:  *pipelineOutcomes,
	}
}

func (metrics prometheusMetrics) SetActiveWatchers(provider string, count int) {
	metrics.activeWatchers.With(prometheus.Labels{"provider": provider}).Set(float64(count))
}

func (metrics prometheusMetrics) AddStatusTransition(provider string, status string) {
	metrics.statusTransitions.With(prometheus.Labels{"provider": provider, "status": status}).Inc()
}

func (metrics prometheusMetrics) AddFeedMessage(provider string, outcome string) {
	metrics.feedMessages.With(prometheus.Labels{"provider": provider, "outcome": outcome}).Inc()
}

func (metrics prometheusMetrics) AddReconnect(provider string) {
	metrics.reconnects.With(prometheus.Labels{"provider": provider}).Inc()
}

func (metrics prometheusMetrics) AddDiscoveryElapsedTime(provider string, elapsedTime time.Duration) {
	metrics.discoveryElapsed.With(prometheus.Labels{"provider": provider}).Observe(float64(elapsedTime.Milliseconds()))
}

func (metrics prometheusMetrics) AddPipelineOutcome(provider string, outcome string, count int) {
	if count <= 0 {
		return
	}
	metrics.pipelineOutcomes.With(prometheus.Labels{"provider": provider, "outcome": outcome}).Add(float64(count))
}
