// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package pipeline decides which discovered matches become watchers and who is notified about them.
//
// A batch first goes through the attach handlers, which see the whole batch and mark the
// watchables worth watching. Every approved watchable then goes through the before-watch
// handlers, which may narrow its subscribers or veto it. Handlers run in registration order.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// AttachHandler inspects or mutates a whole batch. Returning stop ends the batch: nothing in it is watched.
type AttachHandler func(scope *envelope.Scope, provider string, batch []*models.Watchable) (stop bool, err error)

// BeforeWatchHandler inspects or mutates one approved watchable. Returning stop vetoes it.
type BeforeWatchHandler func(scope *envelope.Scope, watchable *models.Watchable) (stop bool, err error)

type Pipeline struct {
	metrics metrics.WatcherMetrics

	mu          sync.RWMutex
	attach      []AttachHandler
	beforeWatch []BeforeWatchHandler
}

func New(m metrics.WatcherMetrics) *Pipeline {
	if m == nil {
		m = metrics.Nop()
	}
	return &Pipeline{metrics: m}
}

func (p *Pipeline) OnAttach(h AttachHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attach = append(p.attach, h)
}

func (p *Pipeline) OnBeforeWatch(h BeforeWatchHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beforeWatch = append(p.beforeWatch, h)
}

// Attach runs both stages over batch and returns the watchables that should become watchers,
// in batch order. An attach handler error aborts the batch; a before-watch handler error
// vetoes only the watchable it was looking at.
func (p *Pipeline) Attach(rootScope *envelope.Scope, provider string, batch []*models.Watchable) ([]*models.Watchable, error) {
	scope := rootScope.NewChildScope("pipeline.attach")
	defer scope.Finish()
	scope.SetAttributes(envelope.ProviderTag, provider)
	scope.SetAttributes(envelope.BatchTag, len(batch))

	if len(batch) == 0 {
		return nil, nil
	}

	p.mu.RLock()
	attach := append([]AttachHandler(nil), p.attach...)
	beforeWatch := append([]BeforeWatchHandler(nil), p.beforeWatch...)
	p.mu.RUnlock()

	for i, h := range attach {
		stop, err := h(scope, provider, batch)
		if err != nil {
			scope.RecordError(err)
			return nil, fmt.Errorf("attach handler %d: %w", i, err)
		}
		if stop {
			scope.Log.Debugf("[pipeline] attach handler %d stopped batch of %d", i, len(batch))
			return nil, nil
		}
	}

	approved := make([]*models.Watchable, 0, len(batch))
	vetoed := 0
	for _, watchable := range batch {
		if watchable.Decision != models.DecisionApproved {
			continue
		}
		if p.veto(scope, beforeWatch, watchable) {
			vetoed++
			continue
		}
		approved = append(approved, watchable)
	}

	p.metrics.AddPipelineOutcome(provider, constants.OutcomeApproved, len(approved))
	p.metrics.AddPipelineOutcome(provider, constants.OutcomeVetoed, vetoed)
	scope.Log.Debugf("[pipeline] %s: %d discovered, %d approved, %d vetoed", provider, len(batch), len(approved), vetoed)
	return approved, nil
}

func (p *Pipeline) veto(scope *envelope.Scope, chain []BeforeWatchHandler, watchable *models.Watchable) bool {
	if len(watchable.Subscribers) == 0 {
		return true
	}
	for i, h := range chain {
		stop, err := h(scope, watchable)
		if err != nil {
			scope.Log.WithField("wid", watchable.WID()).Warnf("[pipeline] before-watch handler %d failed: %s", i, err)
			return true
		}
		if stop {
			return true
		}
	}
	return len(watchable.Subscribers) == 0
}
