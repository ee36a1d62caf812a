// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package majsoul

import (
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// computerName is the display name of an AI seat.
const computerName = "電腦"

// Document is one live game record of the listing service.
type Document struct {
	ID        string `json:"_id,omitempty"`
	StartTime int64  `json:"starttime"`
	Fid       string `json:"fid"`
	UID       string `json:"uid,omitempty"`
	Wg        Wg     `json:"wg"`
	Fname     string `json:"fname,omitempty"`
}

type Wg struct {
	UUID      string     `json:"uuid"`
	StartTime int64      `json:"start_time"`
	Players   []WgPlayer `json:"players"`
	SeatList  []int64    `json:"seat_list"`
}

type WgPlayer struct {
	AccountID int64  `json:"account_id"`
	Nickname  string `json:"nickname"`
}

func (d Document) Started() time.Time {
	if d.StartTime == 0 {
		return time.Time{}
	}
	return time.Unix(d.StartTime, 0)
}

// Players returns the listed players in listing order.
func (d Document) Players() []*models.Player {
	players := make([]*models.Player, 0, len(d.Wg.Players))
	for _, p := range d.Wg.Players {
		players = append(players, models.NewAccountPlayer(p.AccountID, p.Nickname))
	}
	return players
}

// SeatPlayers orders the players by seat; account 0 is an AI seat.
func (wg Wg) SeatPlayers() []*models.Player {
	byAccount := make(map[int64]WgPlayer, len(wg.Players))
	for _, p := range wg.Players {
		byAccount[p.AccountID] = p
	}
	players := make([]*models.Player, 0, len(wg.SeatList))
	for _, aid := range wg.SeatList {
		p, ok := byAccount[aid]
		if aid == 0 || !ok {
			players = append(players, models.NewAccountPlayer(0, computerName))
			continue
		}
		players = append(players, models.NewAccountPlayer(p.AccountID, p.Nickname))
	}
	return players
}

// PaipuHead is the archived summary of a finished game.
type PaipuHead struct {
	Err  any `json:"err,omitempty"`
	Head struct {
		UUID     string         `json:"uuid"`
		Accounts []PaipuAccount `json:"accounts"`
		Result   GameResult     `json:"result"`
	} `json:"head"`
}

type PaipuAccount struct {
	Seat      int    `json:"seat"`
	AccountID int64  `json:"account_id"`
	Nickname  string `json:"nickname"`
}

type GameResult struct {
	Players []ResultPlayer `json:"players"`
}

type ResultPlayer struct {
	Seat         int     `json:"seat"`
	GradingScore float64 `json:"grading_score"`
	PartPoint1   int64   `json:"part_point_1"`
	TotalPoint   int64   `json:"total_point"`
}

// Apply writes the final scores onto players, ignoring seats out of range.
func (r GameResult) Apply(players []*models.Player) {
	for _, p := range r.Players {
		if p.Seat < 0 || p.Seat >= len(players) || players[p.Seat] == nil {
			continue
		}
		players[p.Seat].Score = p.GradingScore
		players[p.Seat].Point = p.PartPoint1
	}
}
