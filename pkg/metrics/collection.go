// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type WatcherMetrics interface {
	SetActiveWatchers(provider string, count int)
	AddStatusTransition(provider string, status string)
	AddFeedMessage(provider string, outcome string)
	AddReconnect(provider string)
	AddDiscoveryElapsedTime(provider string, elapsedTime time.Duration)
	AddPipelineOutcome(provider string, outcome string, count int)
}

func NewMetrics(registry *prometheus.Registry) WatcherMetrics {
	return setupPrometheusMetrics(registry)
}

type nopMetrics struct{}

// Nop returns a WatcherMetrics that records nothing.
func Nop() WatcherMetrics {
	return nopMetrics{}
}

func (nopMetrics) SetActiveWatchers(string, int)                 {}
func (nopMetrics) AddStatusTransition(string, string)            {}
func (nopMetrics) AddFeedMessage(string, string)                 {}
func (nopMetrics) AddReconnect(string)                           {}
func (nopMetrics) AddDiscoveryElapsedTime(string, time.Duration) {}
func (nopMetrics) AddPipelineOutcome(string, string, int)        {}
