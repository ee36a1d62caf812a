// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
)

type RegistryOptions struct {
	GracePeriod     time.Duration
	RecycleInterval time.Duration
	Metrics         metrics.WatcherMetrics
	Logger          *logrus.Entry
	Clock           func() time.Time
}

// Registry indexes live watchers by wid and by short id, and sweeps terminal ones.
type Registry struct {
	grace    time.Duration
	interval time.Duration
	metrics  metrics.WatcherMetrics
	log      *logrus.Entry
	now      func() time.Time

	mu       sync.Mutex
	watchers map[string]*Watcher
	ids      map[string]string
	counts   map[string]int
}

func NewRegistry(opts RegistryOptions) *Registry {
	r := &Registry{
		grace:    opts.GracePeriod,
		interval: opts.RecycleInterval,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		now:      opts.Clock,
		watchers: map[string]*Watcher{},
		ids:      map[string]string{},
		counts:   map[string]int{},
	}
	if r.grace <= 0 {
		r.grace = constants.DefaultGracePeriod
	}
	if r.interval <= 0 {
		r.interval = constants.DefaultRecycleInterval
	}
	if r.metrics == nil {
		r.metrics = metrics.Nop()
	}
	if r.log == nil {
		r.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func randomID() string {
	var sb strings.Builder
	sb.WriteByte(constants.IDPrefixAlphabet[rand.Intn(len(constants.IDPrefixAlphabet))])
	for i := 0; i < constants.IDSuffixLength; i++ {
		sb.WriteByte(constants.IDSuffixAlphabet[rand.Intn(len(constants.IDSuffixAlphabet))])
	}
	return sb.String()
}

// GenerateID returns a short id not used by a registered watcher. After the retry limit
// the last candidate is returned even if it collides; Set rejects it in that case.
func (r *Registry) GenerateID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := randomID()
	for retry := 0; retry < constants.IDRetryLimit; retry++ {
		if _, taken := r.ids[id]; !taken {
			break
		}
		id = randomID()
	}
	return id
}

// Set registers w. It fails when the wid or the short id is already registered.
func (r *Registry) Set(w *Watcher) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	wid := w.WID()
	if existing, ok := r.watchers[wid]; ok {
		r.log.Warnf("[registry] duplicate watcher with wid %s (id %s), reject", wid, existing.ID())
		return false
	}
	id := strings.ToLower(w.ID())
	if existing, ok := r.ids[id]; ok {
		r.log.Warnf("[registry] duplicate watcher with id %s (wid %s), reject", id, existing)
		return false
	}
	r.watchers[wid] = w
	r.ids[id] = wid
	r.adjustLocked(w.ProviderType(), 1)
	return true
}

func (r *Registry) adjustLocked(provider string, delta int) {
	r.counts[provider] += delta
	r.metrics.SetActiveWatchers(provider, r.counts[provider])
}

func (r *Registry) Get(wid string) *Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watchers[wid]
}

// GetByID looks a watcher up by short id, ignoring case.
func (r *Registry) GetByID(id string) *Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	wid, ok := r.ids[strings.ToLower(id)]
	if !ok {
		return nil
	}
	return r.watchers[wid]
}

func (r *Registry) Has(wid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watchers[wid]
	return ok
}

func (r *Registry) HasByID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[strings.ToLower(id)]
	return ok
}

func (r *Registry) Remove(wid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(wid)
}

func (r *Registry) RemoveByID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(id)
	if wid, ok := r.ids[key]; ok {
		r.removeLocked(wid)
	}
	delete(r.ids, key)
}

func (r *Registry) removeLocked(wid string) {
	w, ok := r.watchers[wid]
	if !ok {
		return
	}
	delete(r.ids, strings.ToLower(w.ID()))
	delete(r.watchers, wid)
	r.adjustLocked(w.ProviderType(), -1)
}

// List returns the registered watchers ordered by wid.
func (r *Registry) List() []*Watcher {
	r.mu.Lock()
	list := make([]*Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		list = append(list, w)
	}
	r.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].WID() < list[j].WID() })
	return list
}

// ListByProvider returns the registered watchers of one provider.
func (r *Registry) ListByProvider(provider string) []*Watcher {
	all := r.List()
	list := all[:0]
	for _, w := range all {
		if w.ProviderType() == provider {
			list = append(list, w)
		}
	}
	return list
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Recycle evicts every watcher that stayed terminal longer than the grace period.
func (r *Registry) Recycle(now time.Time) int {
	r.mu.Lock()
	var evicted []*Watcher
	for wid, w := range r.watchers {
		if w.ShouldRecycle(now, r.grace) {
			r.removeLocked(wid)
			evicted = append(evicted, w)
		}
	}
	r.mu.Unlock()

	for _, w := range evicted {
		w.Close()
	}
	if len(evicted) > 0 {
		r.log.Debugf("[registry] recycled %d watchers", len(evicted))
	}
	return len(evicted)
}

// Run sweeps the registry on the recycle interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Recycle(r.now())
		}
	}
}

// Stop closes every watcher and empties the registry.
func (r *Registry) Stop() {
	r.mu.Lock()
	watchers := r.watchers
	r.watchers = map[string]*Watcher{}
	r.ids = map[string]string{}
	for provider := range r.counts {
		r.counts[provider] = 0
		r.metrics.SetActiveWatchers(provider, 0)
	}
	r.mu.Unlock()

	r.log.Debug("[registry] stopping watchers")
	for _, w := range watchers {
		w.Close()
	}
}
