// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package majsoul

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

const payloadToken = "token"

const (
	msgInit     = "ob_init"
	msgNewRound = ".lq.RecordNewRound"
	msgHule     = ".lq.RecordHule"
	msgLiuju    = ".lq.RecordLiuju"
	msgNoTile   = ".lq.RecordNoTile"
	msgGameEnd  = ".lq.NotifyGameEndResult"
)

// feedMessage is one observer frame. ob_init carries its data as a JSON encoded string,
// record frames carry a JSON object.
type feedMessage struct {
	Seq  int64           `json:"seq"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

type newRound struct {
	Chang    int     `json:"chang"`
	Ju       int     `json:"ju"`
	Ben      int     `json:"ben"`
	Liqibang int     `json:"liqibang"`
	Scores   []int64 `json:"scores"`
}

type hule struct {
	Scores      []int64 `json:"scores"`
	DeltaScores []int64 `json:"delta_scores"`
}

type noTile struct {
	Scores []struct {
		Scores      []int64 `json:"scores"`
		OldScores   []int64 `json:"old_scores"`
		DeltaScores []int64 `json:"delta_scores"`
	} `json:"scores"`
}

type gameEnd struct {
	Result GameResult `json:"result"`
}

type protocol struct {
	api     API
	cfg     config.MajsoulConfig
	dial    func(ctx context.Context, url string) (watcher.Socket, error)
	watchID string

	mu    sync.Mutex
	token string
}

func (p *protocol) DumpPayload() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return nil
	}
	return map[string]any{payloadToken: p.token}
}

func (p *protocol) LoadPayload(payload map[string]json.RawMessage) error {
	raw, ok := payload[payloadToken]
	if !ok {
		return nil
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

func (p *protocol) Run(ctx context.Context, w *watcher.Watcher) error {
	token, err := p.obToken(ctx)
	if err != nil {
		return err
	}
	target := fmt.Sprintf("%s?token=%s&tag=%s", p.cfg.ObURI, url.QueryEscape(token), url.QueryEscape(p.watchID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.RunStream(gctx, w, watcher.StreamOptions{
			Dial: func(ctx context.Context) (watcher.Socket, error) {
				return p.dial(ctx, target)
			},
			Handle: func(_ context.Context, data []byte) {
				p.handle(w, data)
			},
			ReconnectInterval: p.cfg.ReconnectInterval,
			ReconnectTimes:    p.cfg.ReconnectTimes,
		})
	})
	g.Go(func() error {
		p.queryResult(gctx, w)
		return nil
	})
	return g.Wait()
}

// obToken returns the saved token or requests a new one, retrying on a constant interval.
func (p *protocol) obToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token != "" {
		return token, nil
	}

	attempt := func() error {
		t, err := p.api.ObToken(ctx, p.watchID)
		if err != nil {
			return err
		}
		if t == "" {
			return ErrTokenUnavailable
		}
		token = t
		return nil
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.TokenRetryInterval), uint64(p.cfg.TokenRetries)),
		ctx,
	)
	if err := backoff.Retry(attempt, b); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTokenUnavailable, p.watchID, err)
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return token, nil
}

// queryResult polls the paipu archive; an archived game ends the watch early.
func (p *protocol) queryResult(ctx context.Context, w *watcher.Watcher) {
	wait := p.cfg.ResultQueryInterval
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if w.Finished() {
			return
		}

		head, err := p.api.PaipuHead(ctx, p.watchID)
		if err != nil {
			w.Log().WithError(err).Debug("paipu query failed")
			wait = p.cfg.ResultErrorInterval
			continue
		}
		wait = p.cfg.ResultQueryInterval
		if head == nil {
			continue
		}

		w.UpdatePlayers(func(players []*models.Player) []*models.Player {
			if len(players) == 0 {
				players = make([]*models.Player, len(head.Head.Result.Players))
				for i := range players {
					players[i] = models.NewAccountPlayer(0, computerName)
				}
				for _, a := range head.Head.Accounts {
					if a.Seat >= 0 && a.Seat < len(players) {
						players[a.Seat] = models.NewAccountPlayer(a.AccountID, a.Nickname)
					}
				}
			}
			head.Head.Result.Apply(players)
			return players
		})
		w.Finish(nil, models.StatusEarlyFinished)
		return
	}
}

func (p *protocol) handle(w *watcher.Watcher, data []byte) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.Log().Debug("skip malformed frame:", err)
		return
	}
	payload := unwrap(msg.Data)
	if msg.Name == msgInit {
		p.handleInit(w, msg, payload)
		return
	}
	if !w.Accept(msg.Seq) {
		return
	}

	switch msg.Name {
	case msgNewRound:
		var r newRound
		if !decode(w, msg.Name, payload, &r) {
			return
		}
		w.SetGameStatus(models.GameStatus{
			Dealer: r.Ju,
			Round:  r.Chang*4 + r.Ju,
			Honba:  r.Ben,
			Riichi: r.Liqibang,
		})
		w.UpdatePlayers(func(players []*models.Player) []*models.Player {
			for i, pl := range players {
				if i < len(r.Scores) && pl != nil {
					pl.Point = r.Scores[i]
					pl.DeltaPoint = 0
				}
			}
			return players
		})
		w.SetStatus(models.StatusPlaying)
		w.Progress(models.RoundStart, msg, "")
	case msgHule:
		var h hule
		if !decode(w, msg.Name, payload, &h) {
			return
		}
		w.UpdatePlayers(func(players []*models.Player) []*models.Player {
			for i, pl := range players {
				if pl == nil {
					continue
				}
				if i < len(h.Scores) {
					pl.Point = h.Scores[i]
				}
				if i < len(h.DeltaScores) {
					pl.DeltaPoint = h.DeltaScores[i]
				}
			}
			return players
		})
		w.Progress(models.RoundEnd, msg, "和了")
	case msgLiuju:
		w.Progress(models.RoundEnd, msg, "流局")
	case msgNoTile:
		var n noTile
		if !decode(w, msg.Name, payload, &n) {
			return
		}
		if len(n.Scores) > 0 {
			last := n.Scores[len(n.Scores)-1]
			w.UpdatePlayers(func(players []*models.Player) []*models.Player {
				for i, pl := range players {
					if pl == nil {
						continue
					}
					if last.Scores != nil {
						if i < len(last.Scores) {
							pl.Point = last.Scores[i]
						}
						pl.DeltaPoint = 0
						continue
					}
					var delta int64
					if i < len(last.DeltaScores) {
						delta = last.DeltaScores[i]
					}
					pl.DeltaPoint = delta
					if i < len(last.OldScores) {
						pl.Point = last.OldScores[i] + delta
					}
				}
				return players
			})
		}
		w.Progress(models.RoundEnd, msg, "荒牌流局")
	case msgGameEnd:
		var end gameEnd
		if !decode(w, msg.Name, payload, &end) {
			return
		}
		players := w.Players()
		end.Result.Apply(players)
		w.Finish(players, models.StatusFinished)
	}
}

// handleInit applies an ob_init frame. The head snapshot carries the seats and is applied
// regardless of sequence; the first sequenced frame marks the match as started.
func (p *protocol) handleInit(w *watcher.Watcher, msg feedMessage, payload []byte) {
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		w.Log().Debug("skip malformed ob_init:", err)
		return
	}
	if raw, ok := snapshot["head"]; ok {
		var head string
		var wg Wg
		if err := json.Unmarshal(raw, &head); err != nil || json.Unmarshal([]byte(head), &wg) != nil {
			w.Log().Debug("skip malformed ob_init head")
			return
		}
		w.SetPlayers(wg.SeatPlayers())
		return
	}
	if _, ok := snapshot["seq"]; ok {
		w.SetStatus(models.StatusPlaying)
		if w.Accept(msg.Seq) {
			w.Progress(models.MatchStart, msg, "")
		}
	}
}

// unwrap returns the frame data as a JSON document, decoding one level of string
// encoding when present.
func unwrap(data json.RawMessage) []byte {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		return []byte(encoded)
	}
	return data
}

func decode(w *watcher.Watcher, name string, payload []byte, out any) bool {
	if err := json.Unmarshal(payload, out); err != nil {
		w.Log().Debugf("skip malformed %s: %v", name, err)
		return false
	}
	return true
}
