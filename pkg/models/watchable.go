// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"time"

	"github.com/elliotchance/pie/v2"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Subscribers maps a destination channel id to the tracked player tokens that justified watching.
type Subscribers map[string][]string

func (s Subscribers) Clone() Subscribers {
	if s == nil {
		return nil
	}
	copied := make(Subscribers, len(s))
	for cid, tokens := range s {
		copied[cid] = append([]string(nil), tokens...)
	}
	return copied
}

// Channels returns the channel ids in lexical order.
func (s Subscribers) Channels() []string {
	return pie.Sort(pie.Keys(s))
}

// Add records token under cid once.
func (s Subscribers) Add(cid, token string) {
	if pie.Contains(s[cid], token) {
		return
	}
	s[cid] = append(s[cid], token)
}

// Watchable is a discovered match that has not been turned into a watcher yet.
type Watchable struct {
	ProviderType string
	WatchID      string
	Players      []*Player
	Decision     Decision
	Subscribers  Subscribers
	Fid          string
	Fname        string
	StartTime    time.Time

	// Document is the raw record the provider discovered the match from.
	Document any
}

func (w *Watchable) WID() string {
	return WID(w.ProviderType, w.WatchID)
}

// Approve marks the watchable approved and merges subscribers.
func (w *Watchable) Approve(subscribers Subscribers) {
	w.Decision = DecisionApproved
	if w.Subscribers == nil {
		w.Subscribers = Subscribers{}
	}
	for _, cid := range subscribers.Channels() {
		for _, token := range subscribers[cid] {
			w.Subscribers.Add(cid, token)
		}
	}
}

// WID builds the global dedup key of a match.
func WID(providerType, watchID string) string {
	return providerType + ":" + watchID
}
