// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

type (
	WatchHandler    func(w *Watcher)
	ProgressHandler func(w *Watcher, progress models.ProgressEvent)
	FinishHandler   func(w *Watcher, players []*models.Player)
	ErrorHandler    func(w *Watcher, err error)
)

// Bus delivers watcher lifecycle notifications to consumers. Handlers run synchronously in
// registration order; a panicking handler is logged and does not stop the others.
type Bus struct {
	log *logrus.Entry

	mu       sync.RWMutex
	watch    []WatchHandler
	progress []ProgressHandler
	finish   []FinishHandler
	errs     []ErrorHandler
}

func NewBus(log *logrus.Entry) *Bus {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bus{log: log}
}

func (b *Bus) OnWatch(h WatchHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watch = append(b.watch, h)
}

func (b *Bus) OnProgress(h ProgressHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = append(b.progress, h)
}

func (b *Bus) OnFinish(h FinishHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finish = append(b.finish, h)
}

func (b *Bus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, h)
}

// EmitWatch announces a newly registered watcher.
func (b *Bus) EmitWatch(w *Watcher) {
	b.mu.RLock()
	handlers := append([]WatchHandler(nil), b.watch...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.invoke("watch", w, func() { h(w) })
	}
}

func (b *Bus) EmitProgress(w *Watcher, progress models.ProgressEvent) {
	b.mu.RLock()
	handlers := append([]ProgressHandler(nil), b.progress...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.invoke("progress", w, func() { h(w, progress) })
	}
}

func (b *Bus) EmitFinish(w *Watcher, players []*models.Player) {
	b.mu.RLock()
	handlers := append([]FinishHandler(nil), b.finish...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.invoke("finish", w, func() { h(w, players) })
	}
}

func (b *Bus) EmitError(w *Watcher, err error) {
	b.mu.RLock()
	handlers := append([]ErrorHandler(nil), b.errs...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.invoke("error", w, func() { h(w, err) })
	}
}

func (b *Bus) invoke(event string, w *Watcher, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"event": event,
				"wid":   w.WID(),
			}).Errorf("[bus] handler panicked: %v", r)
		}
	}()
	fn()
}
