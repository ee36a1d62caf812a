// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package riichicity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

type roundKey struct {
	changCi int
	honba   int
}

// protocol polls the room record. The first poll replays the whole room to rebuild
// seats and scores; events already delivered before a restart update state silently.
type protocol struct {
	api     API
	cfg     config.RiichiCityConfig
	watchID string
	room    Room

	started bool
	round   *roundKey
	melds   map[int64][][]int
}

func (p *protocol) Run(ctx context.Context, w *watcher.Watcher) error {
	maxTimes := p.cfg.QueryMaxTimes
	return watcher.RunPoll(ctx, w, watcher.PollOptions{
		Interval: p.cfg.QueryInterval,
		Poll: func(ctx context.Context) (bool, error) {
			return p.poll(ctx, w)
		},
		IsIdle: func(err error) bool {
			return errors.Is(err, ErrStaleSession)
		},
		MaxIdle:     maxTimes,
		MaxFailures: maxTimes,
	})
}

func (p *protocol) poll(ctx context.Context, w *watcher.Watcher) (bool, error) {
	if !p.started {
		data, err := p.api.RoomData(ctx, p.watchID)
		if err != nil {
			return false, err
		}
		p.started = true
		fresh := w.Sequence() == watcher.NoSequence
		w.SetPlayers(nil)
		for _, round := range data.HandRecord {
			if len(w.Players()) == 0 && len(round.Players) > 0 {
				w.SetPlayers(Room{Players: round.Players}.ModelPlayers())
				if p.room.Players == nil {
					p.room.Players = round.Players
				}
				if fresh {
					w.Progress(models.MatchStart, nil, "")
				}
			}
			for _, event := range round.HandEventRecord {
				p.receive(w, event)
			}
		}
		return true, nil
	}

	data, err := p.api.GameData(ctx, p.watchID, w.Sequence()+1)
	if err != nil {
		return false, err
	}
	for _, event := range data.HandEventRecord {
		p.receive(w, event)
	}
	return len(data.HandEventRecord) > 0, nil
}

// receive applies one event. Stale events still update state but raise no progress.
func (p *protocol) receive(w *watcher.Watcher, event EventRecord) {
	fresh := w.Accept(event.EventPos)

	switch event.EventType {
	case EventGameStart:
		var data gameStart
		if !decode(w, event, &data) {
			return
		}
		key := roundKey{changCi: data.ChangCi, honba: data.BenChangNum}
		if p.round != nil && *p.round == key {
			return
		}
		p.round = &key
		for _, info := range data.UserInfoList {
			p.updatePlayer(w, info.UserID, info.HandPoints, 0)
		}
		wind := 2
		switch data.QuanFeng {
		case windEast:
			wind = 0
		case windSouth:
			wind = 1
		}
		w.SetGameStatus(models.GameStatus{
			Dealer: data.DealerPos,
			Round:  wind*4 + data.ChangCi - 1,
			Honba:  data.BenChangNum,
			Riichi: data.LiZhiBangNum,
		})
		p.melds = map[int64][][]int{}
		w.SetStatus(models.StatusPlaying)
		if fresh {
			w.Progress(models.RoundStart, data, "")
		}
	case EventActionBrc:
		var data actionBrc
		if !decode(w, event, &data) {
			return
		}
		p.applyAction(w, data)
	case EventGameEnd:
		var data gameEnd
		if !decode(w, event, &data) {
			return
		}
		for _, info := range data.UserProfit {
			p.updatePlayer(w, info.UserID, info.UserPoint, info.PointProfit)
		}
		if fresh {
			w.Progress(models.RoundEnd, data, p.roundDetails(w, data))
		}
	case EventRoomEnd:
		var data roomEnd
		if !decode(w, event, &data) {
			return
		}
		for _, info := range data.UserData {
			p.updatePlayer(w, info.UserID, info.PointNum, 0)
			score := info.Score
			w.UpdatePlayers(func(players []*models.Player) []*models.Player {
				for _, pl := range players {
					if pl.AccountID == info.UserID {
						pl.Score = score
					}
				}
				return players
			})
		}
		if fresh {
			w.Progress(models.MatchEnd, data, "")
			w.Finish(nil, models.StatusFinished)
		}
	case EventSendCurrentAction, EventSendOtherAction, EventGangBaoBrc, EventLiZhiBrc,
		EventUserZhenTing, EventPause, EventTing:
	default:
		w.Log().Warnf("unexpected event type %d at %d", event.EventType, event.EventPos)
	}
}

func (p *protocol) applyAction(w *watcher.Watcher, data actionBrc) {
	if p.melds == nil {
		p.melds = map[int64][][]int{}
	}
	switch data.Action {
	case ActionZuoChi, ActionZhongChi, ActionYouChi, ActionPeng, ActionMingGang, ActionAnGang, ActionPullNorth:
		meld := append([]int{data.Card}, data.GroupCards...)
		p.melds[data.UserID] = append(p.melds[data.UserID], meld)
	case ActionBuGang:
		for i, meld := range p.melds[data.UserID] {
			if sameTile(meld, data.Card) {
				p.melds[data.UserID][i] = append(meld, data.Card)
				break
			}
		}
	case ActionChiHu, ActionZiMo:
		status := w.GameStatus()
		status.LastTile = data.Card
		w.SetGameStatus(status)
	}
}

func sameTile(meld []int, card int) bool {
	for _, c := range meld {
		if c%256 != card%256 {
			return false
		}
	}
	return len(meld) > 0
}

// roundDetails describes each win of a round end, or 流局 when nobody won.
func (p *protocol) roundDetails(w *watcher.Watcher, data gameEnd) string {
	var loser int64
	var losers int
	for _, info := range data.UserProfit {
		if info.PointProfit < 0 {
			losers++
			loser = info.UserID
		}
	}
	lastTile := w.GameStatus().LastTile

	var details []string
	for _, win := range data.WinInfo {
		if len(win.FangInfo) == 0 {
			continue
		}
		action := p.nickname(w, win.UserID)
		if losers == 1 {
			action += " ロン " + p.nickname(w, loser) + " "
		} else {
			action += " ツモ "
		}
		action += strconv.FormatInt(win.AllPoint, 10)
		hand := handString(win.UserCards, p.melds[win.UserID], lastTile)
		details = append(details, action+"\n"+hand+"\n"+yakuString(win.FangInfo))
	}
	if len(details) == 0 {
		return "流局"
	}
	return strings.Join(details, "\n")
}

func (p *protocol) nickname(w *watcher.Watcher, userID int64) string {
	for _, pl := range w.Players() {
		if pl.AccountID == userID {
			return pl.Name
		}
	}
	if name := p.room.Nickname(userID); name != "" {
		return name
	}
	return models.AccountToken(userID)
}

func (p *protocol) updatePlayer(w *watcher.Watcher, userID, point, delta int64) {
	nickname := p.room.Nickname(userID)
	w.UpdatePlayers(func(players []*models.Player) []*models.Player {
		for _, pl := range players {
			if pl.AccountID == userID {
				pl.Point = point
				pl.DeltaPoint = delta
				return players
			}
		}
		player := models.NewAccountPlayer(userID, nickname)
		player.Point = point
		player.DeltaPoint = delta
		return append(players, player)
	})
}

func decode(w *watcher.Watcher, event EventRecord, out any) bool {
	if err := json.Unmarshal([]byte(event.Data), out); err != nil {
		w.Log().Warnf("malformed event %d at %d: %v", event.EventType, event.EventPos, err)
		return false
	}
	return true
}
