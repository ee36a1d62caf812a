// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package notify is the consumer side of the watcher bus. It resolves the channels each
// lifecycle event targets and hands one Notification per channel to a Sink.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

var ErrUnknownWatcher = errors.New("unknown watcher")

type Kind string

const (
	KindWatch    Kind = "watch"
	KindProgress Kind = "progress"
	KindFinish   Kind = "finish"
	KindError    Kind = "error"
)

// Notification is one event addressed to one channel.
type Notification struct {
	Kind      Kind
	Channel   string
	WatcherID string
	Provider  string
	WatchID   string
	Fname     string
	Status    models.Status
	// Tokens are the tracked players that made the channel a subscriber, if any.
	Tokens   []string
	Progress *models.ProgressEvent
	Players  []*models.Player
	Err      error
}

// Sink delivers notifications. Delivery is at least once; implementations must be idempotent.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Lookup resolves a watcher by its short id.
type Lookup interface {
	GetByID(id string) *watcher.Watcher
}

type Tracker struct {
	sink   Sink
	lookup Lookup
	log    *logrus.Entry
}

func NewTracker(sink Sink, lookup Lookup, log *logrus.Entry) *Tracker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if sink == nil {
		sink = NewLogSink(log)
	}
	return &Tracker{sink: sink, lookup: lookup, log: log}
}

// Register subscribes the tracker to every lifecycle event of bus.
func (t *Tracker) Register(bus *watcher.Bus) {
	bus.OnWatch(func(w *watcher.Watcher) {
		t.deliver(w, KindWatch, w.Subscribers().Channels(), func(n *Notification) {
			n.Players = w.Players()
		})
	})
	bus.OnProgress(func(w *watcher.Watcher, progress models.ProgressEvent) {
		t.deliver(w, KindProgress, w.NotifyChannels(), func(n *Notification) {
			n.Progress = &progress
			n.Players = progress.Players
		})
	})
	bus.OnFinish(func(w *watcher.Watcher, players []*models.Player) {
		t.deliver(w, KindFinish, t.everyChannel(w), func(n *Notification) {
			n.Players = players
		})
	})
	bus.OnError(func(w *watcher.Watcher, err error) {
		t.deliver(w, KindError, t.everyChannel(w), func(n *Notification) {
			n.Err = err
		})
	})
}

func (t *Tracker) everyChannel(w *watcher.Watcher) []string {
	channels := w.Subscribers().Channels()
	for _, cid := range w.NotifyChannels() {
		if !pie.Contains(channels, cid) {
			channels = append(channels, cid)
		}
	}
	return channels
}

func (t *Tracker) deliver(w *watcher.Watcher, kind Kind, channels []string, fill func(n *Notification)) {
	subscribers := w.Subscribers()
	for _, cid := range channels {
		n := Notification{
			Kind:      kind,
			Channel:   cid,
			WatcherID: w.ID(),
			Provider:  w.ProviderType(),
			WatchID:   w.WatchID(),
			Fname:     w.Fname(),
			Status:    w.Status(),
			Tokens:    subscribers[cid],
		}
		fill(&n)
		if err := t.sink.Deliver(context.Background(), n); err != nil {
			t.log.WithFields(logrus.Fields{
				"kind":    kind,
				"channel": cid,
				"wid":     w.WID(),
			}).WithError(err).Warn("[notify] delivery failed")
		}
	}
}

// Track makes cid receive the progress of the watcher with short id id.
func (t *Tracker) Track(id, cid string) (bool, error) {
	w := t.lookup.GetByID(id)
	if w == nil {
		return false, ErrUnknownWatcher
	}
	return w.Track(cid), nil
}

func (t *Tracker) Untrack(id, cid string) (bool, error) {
	w := t.lookup.GetByID(id)
	if w == nil {
		return false, ErrUnknownWatcher
	}
	return w.Untrack(cid), nil
}

// LogSink writes every notification to a logger.
type LogSink struct {
	log *logrus.Entry
}

func NewLogSink(log *logrus.Entry) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	entry := s.log.WithFields(logrus.Fields{
		"kind":      n.Kind,
		"channel":   n.Channel,
		"watcherId": n.WatcherID,
		"provider":  n.Provider,
		"watchId":   n.WatchID,
		"status":    n.Status,
	})
	switch n.Kind {
	case KindError:
		entry.WithError(n.Err).Info("watcher failed")
	case KindProgress:
		entry.WithField("event", n.Progress.Event).Infof("%s %s", n.Progress.Status, Summary(n.Players))
		if n.Progress.Details != "" {
			entry.Debug(n.Progress.Details)
		}
	default:
		entry.Infof("%s %s", n.Fname, Summary(n.Players))
	}
	return nil
}

// Summary renders players as "name point" pairs separated by " / ".
func Summary(players []*models.Player) string {
	parts := make([]string, 0, len(players))
	for _, pl := range players {
		name := pl.Name
		if name == "" {
			name = pl.String()
		}
		parts = append(parts, fmt.Sprintf("%s %d", name, pl.Point))
	}
	return strings.Join(parts, " / ")
}
