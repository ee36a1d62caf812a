// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"sync"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
)

// StubMetrics records counters in memory so tests can assert on them.
type StubMetrics struct {
	mu          sync.Mutex
	Active      map[string]int
	Transitions map[string]int
	Feed        map[string]int
	Reconnects  map[string]int
	Outcomes    map[string]int
}

func (s *StubMetrics) SetActiveWatchers(provider string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Active[provider] = count
}

func (s *StubMetrics) AddStatusTransition(provider string, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transitions[provider+"/"+status]++
}

func (s *StubMetrics) AddFeedMessage(provider string, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Feed[provider+"/"+outcome]++
}

func (s *StubMetrics) AddReconnect(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reconnects[provider]++
}

func (s *StubMetrics) AddDiscoveryElapsedTime(provider string, elapsedTime time.Duration) {
}

func (s *StubMetrics) AddPipelineOutcome(provider string, outcome string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outcomes[provider+"/"+outcome] += count
}

// Count reads one recorded counter, e.g. Count(s.Feed, "majsoul/dropped").
func (s *StubMetrics) Count(m map[string]int, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m[key]
}

func NewMetrics() *StubMetrics {
	return &StubMetrics{
		Active:      map[string]int{},
		Transitions: map[string]int{},
		Feed:        map[string]int{},
		Reconnects:  map[string]int{},
		Outcomes:    map[string]int{},
	}
}

var _ metrics.WatcherMetrics = (*StubMetrics)(nil)
