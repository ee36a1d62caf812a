// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import "fmt"

type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusPlaying       Status = "playing"
	StatusFinished      Status = "finished"
	StatusEarlyFinished Status = "earlyFinished"
	StatusError         Status = "error"
	StatusReconnecting  Status = "reconnecting"
)

// Completed reports a successful terminal status.
func (s Status) Completed() bool {
	return s == StatusFinished || s == StatusEarlyFinished
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s.Completed() || s == StatusError
}

type ProgressKind string

const (
	MatchStart ProgressKind = "match-start"
	MatchEnd   ProgressKind = "match-end"
	RoundStart ProgressKind = "round-start"
	RoundEnd   ProgressKind = "round-end"
)

var winds = []string{"東", "南", "西", "北"}

// GameStatus holds the round counters derived from the feed. Round counts hands from the
// first East hand, so Round 4 is South 1.
type GameStatus struct {
	Dealer   int `json:"dealer"`
	Round    int `json:"round"`
	Honba    int `json:"honba"`
	Riichi   int `json:"riichi"`
	LastTile int `json:"lastTile,omitempty"`
}

func (g GameStatus) Wind() string {
	return winds[(g.Round/4)%len(winds)]
}

func (g GameStatus) String() string {
	return fmt.Sprintf("%s%d局 %d本場", g.Wind(), g.Round%4+1, g.Honba)
}

// ProgressEvent is emitted to consumers for every accepted structural feed message.
type ProgressEvent struct {
	Event   ProgressKind `json:"event"`
	Status  GameStatus   `json:"status"`
	Players []*Player    `json:"players"`
	Raw     any          `json:"raw,omitempty"`
	Details string       `json:"details,omitempty"`
}
