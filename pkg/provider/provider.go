// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package provider runs discovery, submission and crash recovery for one external platform.
// Platform specifics live behind Adapter; everything here is shared by all platforms.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/pipeline"
	"github.com/AccelByte/extend-match-watcher/pkg/recovery"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

var ErrDuplicate = errors.New("match is already watched")

// Adapter is the platform specific half of a provider.
type Adapter interface {
	Name() string
	// Discover lists the live matches. With force set, the adapter skips its own freshness checks.
	Discover(scope *envelope.Scope, force bool) ([]*models.Watchable, error)
	// Lookup resolves one match by its external id for a manual watch.
	Lookup(scope *envelope.Scope, watchID string) (*models.Watchable, error)
	// FromDump rebuilds the watchable a snapshot was taken from.
	FromDump(dump models.WatcherDump) (*models.Watchable, error)
	// Protocol builds a fresh feed protocol for watchable.
	Protocol(watchable *models.Watchable) watcher.Protocol
}

type Options struct {
	Registry *watcher.Registry
	Pipeline *pipeline.Pipeline
	Bus      *watcher.Bus
	Recovery recovery.Store
	Metrics  metrics.WatcherMetrics
	Logger   *logrus.Entry
	Clock    func() time.Time

	UpdateInterval  time.Duration
	MatchExpireTime time.Duration
	RestoreMaxAge   time.Duration
}

type Provider struct {
	adapter  Adapter
	registry *watcher.Registry
	pipeline *pipeline.Pipeline
	bus      *watcher.Bus
	recovery recovery.Store
	metrics  metrics.WatcherMetrics
	log      *logrus.Entry
	now      func() time.Time

	updateInterval  time.Duration
	matchExpireTime time.Duration
	restoreMaxAge   time.Duration
}

func New(adapter Adapter, opts Options) *Provider {
	p := &Provider{
		adapter:         adapter,
		registry:        opts.Registry,
		pipeline:        opts.Pipeline,
		bus:             opts.Bus,
		recovery:        opts.Recovery,
		metrics:         opts.Metrics,
		log:             opts.Logger,
		now:             opts.Clock,
		updateInterval:  opts.UpdateInterval,
		matchExpireTime: opts.MatchExpireTime,
		restoreMaxAge:   opts.RestoreMaxAge,
	}
	if p.metrics == nil {
		p.metrics = metrics.Nop()
	}
	if p.log == nil {
		p.log = logrus.NewEntry(logrus.StandardLogger())
	}
	p.log = p.log.WithField("provider", adapter.Name())
	if p.bus == nil {
		p.bus = watcher.NewBus(p.log)
	}
	if p.pipeline == nil {
		p.pipeline = pipeline.New(p.metrics)
	}
	if p.registry == nil {
		p.registry = watcher.NewRegistry(watcher.RegistryOptions{Metrics: p.metrics, Logger: p.log})
	}
	if p.recovery == nil {
		p.recovery = recovery.NewMemoryStore()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.restoreMaxAge <= 0 {
		p.restoreMaxAge = constants.DefaultRestoreMaxAge
	}
	return p
}

func (p *Provider) Name() string {
	return p.adapter.Name()
}

// Update runs one discovery cycle and returns the number of watchers it started. Failures
// are logged and end the cycle; they never reach the caller.
func (p *Provider) Update(ctx context.Context, force bool) int {
	scope := envelope.NewRootScope(ctx, "provider.update", "")
	defer scope.Finish()
	scope.SetAttributes(envelope.ProviderTag, p.Name())
	scope.Log = p.log.WithField("traceID", scope.TraceID)

	start := p.now()
	created, err := p.update(scope, force)
	p.metrics.AddDiscoveryElapsedTime(p.Name(), p.now().Sub(start))
	if err != nil {
		scope.RecordError(err)
		scope.Log.Warnf("[provider] update failed: %s", err)
		return created
	}
	scope.Log.Debugf("[provider] update done, %d new watchers", created)
	return created
}

func (p *Provider) update(scope *envelope.Scope, force bool) (int, error) {
	discovered, err := p.adapter.Discover(scope, force)
	if err != nil {
		return 0, fmt.Errorf("discover: %w", err)
	}

	now := p.now()
	batch := make([]*models.Watchable, 0, len(discovered))
	for _, watchable := range discovered {
		if !force && p.matchExpireTime > 0 && !watchable.StartTime.IsZero() && now.Sub(watchable.StartTime) > p.matchExpireTime {
			continue
		}
		if p.registry.Has(watchable.WID()) {
			continue
		}
		batch = append(batch, watchable)
	}

	approved, err := p.pipeline.Attach(scope, p.Name(), batch)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, watchable := range approved {
		w := p.newWatcher(watchable, p.registry.GenerateID(), nil)
		if p.Submit(scope.Ctx, w) {
			w.Log().Infof("watch %s", w.WatchID())
			created++
		}
	}
	return created, nil
}

func (p *Provider) newWatcher(watchable *models.Watchable, id string, dump *models.WatcherDump) *watcher.Watcher {
	return watcher.New(watchable, p.adapter.Protocol(watchable), watcher.Options{
		ID:      id,
		Restore: dump,
		Bus:     p.bus,
		Metrics: p.metrics,
		Logger:  p.log,
		Clock:   p.now,
	})
}

// Submit registers w, announces it and starts its feed. It returns false when the match
// is already watched, leaving the registered watcher untouched.
func (p *Provider) Submit(ctx context.Context, w *watcher.Watcher) bool {
	return p.submit(ctx, w, true)
}

func (p *Provider) submit(ctx context.Context, w *watcher.Watcher, announce bool) bool {
	if !p.registry.Set(w) {
		p.metrics.AddPipelineOutcome(p.Name(), constants.OutcomeDuplicate, 1)
		return false
	}
	p.metrics.AddPipelineOutcome(p.Name(), constants.OutcomeRegistered, 1)
	if announce {
		p.bus.EmitWatch(w)
	}
	// feeds outlive the cycle or request that created them; Registry.Stop ends them
	w.Start(context.WithoutCancel(ctx))
	return true
}

// Watch starts an ad-hoc watcher for watchID, bypassing the attach pipeline.
func (p *Provider) Watch(ctx context.Context, watchID string) (*watcher.Watcher, error) {
	scope := envelope.NewRootScope(ctx, "provider.watch", "")
	defer scope.Finish()
	scope.SetAttributes(envelope.ProviderTag, p.Name())
	scope.SetAttributes(envelope.WatchIDTag, watchID)

	if p.registry.Has(models.WID(p.Name(), watchID)) {
		return nil, ErrDuplicate
	}
	watchable, err := p.adapter.Lookup(scope, watchID)
	if err != nil {
		scope.RecordError(err)
		return nil, fmt.Errorf("lookup %s: %w", watchID, err)
	}
	w := p.newWatcher(watchable, p.registry.GenerateID(), nil)
	if !p.Submit(scope.Ctx, w) {
		return nil, ErrDuplicate
	}
	w.Log().Infof("manual watch %s", watchID)
	return w, nil
}

// Dump saves a snapshot of every live watcher of this provider and returns how many were saved.
func (p *Provider) Dump(ctx context.Context) (int, error) {
	var dumps []models.WatcherDump
	for _, w := range p.registry.ListByProvider(p.Name()) {
		if dump, ok := w.Dump(); ok {
			dumps = append(dumps, dump)
		}
	}
	if len(dumps) == 0 {
		return 0, nil
	}
	if err := p.recovery.Save(ctx, p.Name(), dumps); err != nil {
		return 0, fmt.Errorf("save %s dumps: %w", p.Name(), err)
	}
	p.log.Infof("[provider] dumped %d watchers", len(dumps))
	return len(dumps), nil
}

// Restore resumes the watchers saved by a previous Dump. Stored snapshots are consumed;
// snapshots that are invalid, stale or already watched are skipped.
func (p *Provider) Restore(ctx context.Context) int {
	scope := envelope.NewRootScope(ctx, "provider.restore", "")
	defer scope.Finish()
	scope.SetAttributes(envelope.ProviderTag, p.Name())

	dumps, err := p.recovery.Take(scope.Ctx, p.Name())
	if err != nil {
		scope.RecordError(err)
		p.log.Warnf("[provider] restore failed: %s", err)
		return 0
	}

	now := p.now()
	restored := 0
	for _, dump := range dumps {
		log := p.log.WithField("watchId", dump.WatchID)
		if err := dump.Validate(); err != nil {
			log.Warnf("[provider] skip invalid dump (code %d): %s", models.ValidationErrorCode(err), err)
			continue
		}
		if dump.Provider != p.Name() {
			log.Warnf("[provider] skip dump of provider %s", dump.Provider)
			continue
		}
		watchable, err := p.adapter.FromDump(dump)
		if err != nil {
			log.Warnf("[provider] cannot rebuild dump: %s", err)
			continue
		}
		if now.Sub(dumpStartTime(watchable, dump)) > p.restoreMaxAge {
			p.metrics.AddPipelineOutcome(p.Name(), constants.OutcomeStale, 1)
			log.Debug("[provider] skip stale dump")
			continue
		}
		if p.registry.Has(dump.WID()) {
			log.Debug("[provider] skip dump of a live match")
			continue
		}
		if p.restore(scope.Ctx, dump, watchable) {
			restored++
		}
	}
	if len(dumps) > 0 {
		p.log.Infof("[provider] restored %d of %d watchers", restored, len(dumps))
	}
	return restored
}

// RestoreWatcher rebuilds and submits one watcher from dump. The dumped id is kept unless
// another watcher took it. Restored watchers are not announced again.
func (p *Provider) RestoreWatcher(ctx context.Context, dump models.WatcherDump) bool {
	watchable, err := p.adapter.FromDump(dump)
	if err != nil {
		p.log.WithField("watchId", dump.WatchID).Warnf("[provider] cannot rebuild dump: %s", err)
		return false
	}
	return p.restore(ctx, dump, watchable)
}

func (p *Provider) restore(ctx context.Context, dump models.WatcherDump, watchable *models.Watchable) bool {
	id := dump.ID
	if id == "" || p.registry.HasByID(id) {
		id = p.registry.GenerateID()
	}
	w := p.newWatcher(watchable, id, &dump)
	if !p.submit(ctx, w, false) {
		return false
	}
	p.metrics.AddPipelineOutcome(p.Name(), constants.OutcomeRestored, 1)
	w.Log().Infof("restored at seq %d", w.Sequence())
	return true
}

// dumpStartTime is the match start embedded in the dumped document, falling back to the
// time the dumped watcher was created.
func dumpStartTime(watchable *models.Watchable, dump models.WatcherDump) time.Time {
	if watchable.StartTime.IsZero() {
		return dump.StartTime
	}
	return watchable.StartTime
}

// Run updates immediately and then on every update interval until ctx is done.
func (p *Provider) Run(ctx context.Context) {
	if p.updateInterval <= 0 {
		p.log.Info("[provider] periodic update disabled")
		return
	}
	p.Update(ctx, false)
	ticker := time.NewTicker(p.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Update(ctx, false)
		}
	}
}
