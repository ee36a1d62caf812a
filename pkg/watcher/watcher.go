// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// NoSequence is the sequence of a watcher that has not accepted any feed message.
const NoSequence int64 = -1

var (
	ErrRetriesExceeded = errors.New("feed retries exceeded")
	ErrFeedClosed      = errors.New("feed closed by remote")
)

// Protocol drives one provider specific feed for a watcher. Run blocks until the feed
// ends, the watcher reaches a terminal state or ctx is cancelled. A non-nil error other
// than context cancellation moves the watcher to error.
type Protocol interface {
	Run(ctx context.Context, w *Watcher) error
}

// PayloadCodec is implemented by protocols that carry extra state across a restart.
type PayloadCodec interface {
	DumpPayload() map[string]any
	LoadPayload(payload map[string]json.RawMessage) error
}

type Options struct {
	ID string
	// Restore is set when the watcher resumes from a recovery snapshot.
	Restore *models.WatcherDump
	Bus     *Bus
	Metrics metrics.WatcherMetrics
	Logger  *logrus.Entry
	Clock   func() time.Time
}

// Watcher tracks one external match from discovery until its feed says it is over.
type Watcher struct {
	id           string
	providerType string
	watchID      string
	fid          string
	fname        string
	document     any
	startTime    time.Time

	protocol Protocol
	bus      *Bus
	metrics  metrics.WatcherMetrics
	log      *logrus.Entry
	now      func() time.Time

	mu             sync.Mutex
	players        []*models.Player
	gameStatus     models.GameStatus
	subscribers    models.Subscribers
	notifyChannels []string
	status         models.Status
	statusTime     time.Time
	closed         bool
	sequence       int64
	started        bool
	cancel         context.CancelFunc
	done           chan struct{}
	doneOnce       sync.Once
}

func New(watchable *models.Watchable, protocol Protocol, opts Options) *Watcher {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	bus := opts.Bus
	if bus == nil {
		bus = NewBus(log)
	}

	w := &Watcher{
		id:           opts.ID,
		providerType: watchable.ProviderType,
		watchID:      watchable.WatchID,
		fid:          watchable.Fid,
		fname:        watchable.Fname,
		document:     watchable.Document,
		startTime:    now(),
		protocol:     protocol,
		bus:          bus,
		metrics:      m,
		now:          now,
		players:      models.ClonePlayers(watchable.Players),
		subscribers:  watchable.Subscribers.Clone(),
		sequence:     NoSequence,
		done:         make(chan struct{}),
	}
	w.log = log.WithFields(logrus.Fields{
		"provider":  w.providerType,
		"watchId":   w.watchID,
		"watcherId": w.id,
	})

	if dump := opts.Restore; dump != nil {
		w.sequence = dump.Sequence
		if !dump.StartTime.IsZero() {
			w.startTime = dump.StartTime
		}
		w.loadPayload(dump)
	}

	w.setStatusLocked(models.StatusWaiting)
	return w
}

func (w *Watcher) loadPayload(dump *models.WatcherDump) {
	var subscribers models.Subscribers
	if ok, err := dump.PayloadValue(constants.DumpKeySubscribers, &subscribers); err != nil {
		w.log.Warn("[watcher] malformed subscribers in dump:", err)
	} else if ok {
		w.subscribers = subscribers
	}
	var channels []string
	if ok, err := dump.PayloadValue(constants.DumpKeyNotifyChannels, &channels); err != nil {
		w.log.Warn("[watcher] malformed notify channels in dump:", err)
	} else if ok {
		w.notifyChannels = channels
	}
	if codec, ok := w.protocol.(PayloadCodec); ok && len(dump.Payload) > 0 {
		if err := codec.LoadPayload(dump.Payload); err != nil {
			w.log.Warn("[watcher] failed to load protocol payload:", err)
		}
	}
}

func (w *Watcher) ID() string           { return w.id }
func (w *Watcher) ProviderType() string { return w.providerType }
func (w *Watcher) WatchID() string      { return w.watchID }
func (w *Watcher) Fid() string          { return w.fid }
func (w *Watcher) Fname() string        { return w.fname }
func (w *Watcher) Document() any        { return w.document }
func (w *Watcher) StartTime() time.Time { return w.startTime }
func (w *Watcher) Log() *logrus.Entry   { return w.log }

// WID is the global dedup key provider:watchId.
func (w *Watcher) WID() string {
	return models.WID(w.providerType, w.watchID)
}

func (w *Watcher) Status() models.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Watcher) StatusTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusTime
}

func (w *Watcher) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Finished is true once the match completed or the watcher was closed.
func (w *Watcher) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finishedLocked()
}

func (w *Watcher) finishedLocked() bool {
	return w.status.Completed() || w.closed
}

// ShouldRecycle reports whether a terminal watcher has outlived the grace period.
func (w *Watcher) ShouldRecycle(now time.Time, grace time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return (w.finishedLocked() || w.status == models.StatusError) && now.Sub(w.statusTime) > grace
}

func (w *Watcher) Sequence() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sequence
}

// Players returns a deep copy of the current seats.
func (w *Watcher) Players() []*models.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.ClonePlayers(w.players)
}

func (w *Watcher) GameStatus() models.GameStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gameStatus
}

func (w *Watcher) Subscribers() models.Subscribers {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.subscribers.Clone()
}

func (w *Watcher) NotifyChannels() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.notifyChannels...)
}

// Track adds cid to the channels receiving progress of this watcher.
func (w *Watcher) Track(cid string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if pie.Contains(w.notifyChannels, cid) {
		return false
	}
	w.notifyChannels = append(w.notifyChannels, cid)
	return true
}

func (w *Watcher) Untrack(cid string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !pie.Contains(w.notifyChannels, cid) {
		return false
	}
	w.notifyChannels = pie.Filter(w.notifyChannels, func(c string) bool { return c != cid })
	return true
}

// Start launches the feed. It has no effect on a watcher that was started or closed.
func (w *Watcher) Start(parent context.Context) {
	w.mu.Lock()
	if w.started || w.finishedLocked() || w.status == models.StatusError {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.started = true
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		defer w.markDone()
		defer cancel()
		err := w.protocol.Run(ctx, w)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		w.Fail(err)
	}()
}

// Done is closed when the feed goroutine exits, or on Close for a watcher never started.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) markDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

// Close stops feed processing. It is idempotent.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	cancel := w.cancel
	started := w.started
	w.started = true
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		w.markDone()
	}
}

// Accept applies the sequence check to a feed message at position seq and records it
// when it is newer than every accepted message.
func (w *Watcher) Accept(seq int64) bool {
	w.mu.Lock()
	accepted := seq > w.sequence
	last := w.sequence
	if accepted {
		w.sequence = seq
	}
	w.mu.Unlock()

	if !accepted {
		w.metrics.AddFeedMessage(w.providerType, constants.OutcomeDropped)
		w.log.Tracef("drop stale message seq=%d last=%d", seq, last)
		return false
	}
	w.metrics.AddFeedMessage(w.providerType, constants.OutcomeAccepted)
	return true
}

func (w *Watcher) SetStatus(status models.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finishedLocked() || w.status == status {
		return
	}
	w.setStatusLocked(status)
}

func (w *Watcher) setStatusLocked(status models.Status) {
	w.status = status
	w.statusTime = w.now()
	w.metrics.AddStatusTransition(w.providerType, string(status))
}

// enterReconnecting marks a feed outage and returns the status to restore afterwards.
func (w *Watcher) enterReconnecting() models.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.status
	if w.finishedLocked() || prev == models.StatusReconnecting {
		return prev
	}
	w.setStatusLocked(models.StatusReconnecting)
	return prev
}

func (w *Watcher) leaveReconnecting(prev models.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != models.StatusReconnecting || w.finishedLocked() {
		return
	}
	if prev == models.StatusReconnecting {
		prev = models.StatusWaiting
	}
	w.setStatusLocked(prev)
}

func (w *Watcher) SetPlayers(players []*models.Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players = players
}

// UpdatePlayers mutates the seats under the watcher lock.
func (w *Watcher) UpdatePlayers(fn func(players []*models.Player) []*models.Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players = fn(w.players)
}

func (w *Watcher) SetGameStatus(status models.GameStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gameStatus = status
}

// Progress emits a progress event built from the current state. It is a no-op once finished.
func (w *Watcher) Progress(event models.ProgressKind, raw any, details string) bool {
	w.mu.Lock()
	if w.finishedLocked() {
		w.mu.Unlock()
		return false
	}
	progress := models.ProgressEvent{
		Event:   event,
		Status:  w.gameStatus,
		Players: models.ClonePlayers(w.players),
		Raw:     raw,
		Details: details,
	}
	w.mu.Unlock()

	w.log.WithField("event", event).Debugf("progress %s", progress.Status)
	w.bus.EmitProgress(w, progress)
	return true
}

// Finish moves the watcher to a completed status and emits the final players. Only the
// first terminal transition takes effect.
func (w *Watcher) Finish(players []*models.Player, status models.Status) bool {
	if !status.Completed() {
		status = models.StatusFinished
	}

	w.mu.Lock()
	if w.finishedLocked() || w.status == models.StatusError {
		w.mu.Unlock()
		return false
	}
	if status == models.StatusFinished {
		w.closed = true
	}
	w.setStatusLocked(status)
	if players == nil {
		players = w.players
	}
	final := models.ClonePlayers(players)
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.log.WithField("status", status).Info("finish")
	w.bus.EmitFinish(w, final)
	return true
}

// Fail moves the watcher to error and emits err. It has no effect on a terminal watcher.
func (w *Watcher) Fail(err error) {
	w.mu.Lock()
	if w.finishedLocked() || w.status == models.StatusError {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.setStatusLocked(models.StatusError)
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.log.WithError(err).Warn("[watcher] feed failed")
	w.bus.EmitError(w, err)
}

// Dump snapshots a live watcher. It reports false for finished watchers.
func (w *Watcher) Dump() (models.WatcherDump, bool) {
	w.mu.Lock()
	if w.finishedLocked() {
		w.mu.Unlock()
		return models.WatcherDump{}, false
	}
	dump := models.WatcherDump{
		ID:        w.id,
		Provider:  w.providerType,
		WatchID:   w.watchID,
		Sequence:  w.sequence,
		StartTime: w.startTime,
		Payload:   map[string]json.RawMessage{},
	}
	extra := map[string]any{}
	if len(w.subscribers) > 0 {
		extra[constants.DumpKeySubscribers] = w.subscribers.Clone()
	}
	if len(w.notifyChannels) > 0 {
		extra[constants.DumpKeyNotifyChannels] = append([]string(nil), w.notifyChannels...)
	}
	w.mu.Unlock()

	if codec, ok := w.protocol.(PayloadCodec); ok {
		for key, value := range codec.DumpPayload() {
			extra[key] = value
		}
	}
	for key, value := range extra {
		raw, err := json.Marshal(value)
		if err != nil {
			w.log.Warnf("[watcher] skip dump payload %s: %v", key, err)
			continue
		}
		dump.Payload[key] = raw
	}
	if w.document != nil {
		doc, err := json.Marshal(w.document)
		if err != nil {
			w.log.Warn("[watcher] failed to marshal document:", err)
			return models.WatcherDump{}, false
		}
		dump.Document = doc
	}
	return dump, true
}

// Info is a point in time view of a watcher for listings.
type Info struct {
	ID             string             `json:"id"`
	WID            string             `json:"wid"`
	Provider       string             `json:"provider"`
	WatchID        string             `json:"watchId"`
	Fid            string             `json:"fid,omitempty"`
	Fname          string             `json:"fname,omitempty"`
	Status         models.Status      `json:"status"`
	StatusTime     time.Time          `json:"statustime"`
	StartTime      time.Time          `json:"starttime"`
	Closed         bool               `json:"closed"`
	Sequence       int64              `json:"seq"`
	GameStatus     string             `json:"gameStatus"`
	Players        []*models.Player   `json:"players"`
	Subscribers    models.Subscribers `json:"subscribers,omitempty"`
	NotifyChannels []string           `json:"notifyChannels,omitempty"`
}

func (w *Watcher) Info() Info {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Info{
		ID:             w.id,
		WID:            models.WID(w.providerType, w.watchID),
		Provider:       w.providerType,
		WatchID:        w.watchID,
		Fid:            w.fid,
		Fname:          w.fname,
		Status:         w.status,
		StatusTime:     w.statusTime,
		StartTime:      w.startTime,
		Closed:         w.closed,
		Sequence:       w.sequence,
		GameStatus:     w.gameStatus.String(),
		Players:        models.ClonePlayers(w.players),
		Subscribers:    w.subscribers.Clone(),
		NotifyChannels: append([]string(nil), w.notifyChannels...),
	}
}
