// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"strconv"

	"github.com/mitchellh/copystructure"
	"github.com/sirupsen/logrus"
)

// Player is one seat of a match. Token is the identity used for subscription matching:
// "$<accountId>" on account based platforms, the display name otherwise.
type Player struct {
	Token      string  `json:"token"`
	Name       string  `json:"name"`
	AccountID  int64   `json:"accountId,omitempty"`
	Dan        string  `json:"dan,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
	Score      float64 `json:"score,omitempty"`
	Point      int64   `json:"point"`
	DeltaPoint int64   `json:"dpoint"`
}

// AccountToken returns the subscription token of an account id.
func AccountToken(accountID int64) string {
	return "$" + strconv.FormatInt(accountID, 10)
}

// NewAccountPlayer creates a player identified by account id.
func NewAccountPlayer(accountID int64, name string) *Player {
	return &Player{Token: AccountToken(accountID), Name: name, AccountID: accountID}
}

// NewNamedPlayer creates a player identified by display name.
func NewNamedPlayer(name string) *Player {
	return &Player{Token: name, Name: name}
}

func (p *Player) String() string {
	return p.Token
}

// ClonePlayers deep copies a player list so that consumers never observe later feed updates.
func ClonePlayers(players []*Player) []*Player {
	if players == nil {
		return nil
	}
	copied, err := copystructure.Copy(players)
	if err != nil {
		logrus.Warn("failed copy players:", err)
		return nil
	}
	copyPlayers, _ := copied.([]*Player)
	return copyPlayers
}

// PlayerTokens returns the subscription tokens of players in seat order.
func PlayerTokens(players []*Player) []string {
	tokens := make([]string, 0, len(players))
	for _, p := range players {
		if p == nil {
			continue
		}
		tokens = append(tokens, p.Token)
	}
	return tokens
}
