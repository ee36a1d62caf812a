// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package tenhou

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

const (
	origin    = "https://tenhou.net"
	heartbeat = "<Z/>"
)

var ErrRemote = errors.New("tenhou reported an error")

// node is one tag of the JSON encoded XML feed. Attribute values are strings.
type node map[string]json.RawMessage

func (n node) attr(key string) string {
	raw, ok := n[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (n node) has(key string) bool {
	_, ok := n[key]
	return ok
}

func (n node) children() []node {
	var nodes []node
	if raw, ok := n["childNodes"]; ok {
		_ = json.Unmarshal(raw, &nodes)
	}
	return nodes
}

type protocol struct {
	cfg     config.TenhouConfig
	dial    func(ctx context.Context, url string, header http.Header) (watcher.Socket, error)
	watchID string

	// ordinal numbers the feed nodes of the current connection.
	ordinal int64
}

func (p *protocol) Run(ctx context.Context, w *watcher.Watcher) error {
	header := http.Header{}
	header.Set("Origin", origin)
	return watcher.RunStream(ctx, w, watcher.StreamOptions{
		Dial: func(ctx context.Context) (watcher.Socket, error) {
			return p.dial(ctx, p.cfg.ObURI, header)
		},
		OnOpen: p.open,
		Handle: func(_ context.Context, data []byte) {
			p.handle(w, data)
		},
		ReconnectInterval: p.cfg.ReconnectInterval,
		ReconnectTimes:    p.cfg.ReconnectTimes,
	})
}

func (p *protocol) open(ctx context.Context, sock watcher.Socket) error {
	p.ordinal = watcher.NoSequence
	handshake := []map[string]any{
		{"tag": "HELO", "name": "NoName", "sx": "M"},
		{"tag": "WG", "id": p.watchID, "tw": 0},
		{"tag": "GOK"},
	}
	for _, msg := range handshake {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := sock.Write(ctx, data); err != nil {
			return err
		}
	}
	if p.cfg.HeartbeatInterval > 0 {
		go p.heartbeat(ctx, sock)
	}
	return nil
}

func (p *protocol) heartbeat(ctx context.Context, sock watcher.Socket) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := sock.Write(ctx, []byte(heartbeat)); err != nil {
			return
		}
	}
}

func (p *protocol) handle(w *watcher.Watcher, data []byte) {
	var msg node
	if err := json.Unmarshal(data, &msg); err != nil {
		w.Log().Debug("skip malformed frame:", err)
		return
	}

	switch tag := msg.attr("tag"); tag {
	case "UN":
		p.handleUsers(w, msg)
	case "WGC", "INITBYLOG":
		for _, child := range msg.children() {
			p.ordinal++
			if !w.Accept(p.ordinal) {
				continue
			}
			p.handleNode(w, child)
		}
	case "ERR":
		w.Fail(ErrRemote)
	case "SHUFFLE", "HELO", "LN", "GO", "KANSEN":
	default:
		w.Log().Tracef("ignore tag %s", tag)
	}
}

// handleUsers applies the seat snapshot sent on every (re)connect.
func (p *protocol) handleUsers(w *watcher.Watcher, msg node) {
	dans := strings.Split(msg.attr("dan"), ",")
	rates := strings.Split(msg.attr("rate"), ",")
	players := make([]*models.Player, 0, len(dans))
	for i := range dans {
		raw := msg.attr("n" + strconv.Itoa(i))
		if raw == "" {
			continue
		}
		name, err := url.PathUnescape(raw)
		if err != nil {
			name = raw
		}
		player := models.NewNamedPlayer(name)
		player.Dan = dans[i]
		if i < len(rates) {
			player.Rate, _ = strconv.ParseFloat(rates[i], 64)
		}
		players = append(players, player)
	}
	w.SetPlayers(players)
	if w.Sequence() == watcher.NoSequence {
		w.Progress(models.MatchStart, msg, "")
	}
}

func (p *protocol) handleNode(w *watcher.Watcher, n node) {
	switch n.attr("tag") {
	case "INIT":
		seed := splitInts(n.attr("seed"))
		ten := splitInts(n.attr("ten"))
		oya, _ := strconv.Atoi(n.attr("oya"))
		status := models.GameStatus{Dealer: oya}
		if len(seed) >= 3 {
			status.Round, status.Honba, status.Riichi = seed[0], seed[1], seed[2]
		}
		w.SetStatus(models.StatusPlaying)
		w.SetGameStatus(status)
		w.UpdatePlayers(func(players []*models.Player) []*models.Player {
			for i, pl := range players {
				if i < len(ten) {
					pl.Point = int64(ten[i])
					pl.DeltaPoint = 0
				}
			}
			return players
		})
		w.Progress(models.RoundStart, n, "")
	case "AGARI", "RYUUKYOKU":
		sc := splitInts(n.attr("sc"))
		w.UpdatePlayers(func(players []*models.Player) []*models.Player {
			for i, pl := range players {
				if 2*i+1 < len(sc) {
					pl.Point = int64(sc[2*i] + sc[2*i+1])
					pl.DeltaPoint = int64(sc[2*i+1])
				}
			}
			return players
		})
		w.Progress(models.RoundEnd, n, details(n, w.Players()))

		if !n.has("owari") {
			return
		}
		owari := strings.Split(n.attr("owari"), ",")
		players := w.Players()
		for i, pl := range players {
			if 2*i+1 < len(owari) {
				point, _ := strconv.ParseFloat(owari[2*i], 64)
				pl.Point = int64(point)
				pl.Score, _ = strconv.ParseFloat(owari[2*i+1], 64)
			}
		}
		w.Finish(players, models.StatusFinished)
	}
}

// details describes a round end: the winner, the kind of win and the hand for AGARI.
func details(n node, players []*models.Player) string {
	if n.attr("tag") != "AGARI" {
		return "流局"
	}
	name := func(seat string) string {
		i, err := strconv.Atoi(seat)
		if err != nil || i < 0 || i >= len(players) {
			return seat
		}
		return players[i].Name
	}
	who, from := n.attr("who"), n.attr("fromWho")
	action := name(who)
	if who == from {
		action += " ツモ "
	} else {
		action += " ロン " + name(from) + " "
	}
	if ten := strings.Split(n.attr("ten"), ","); len(ten) > 1 {
		action += ten[1]
	}
	return action + "\n" + agariString(n)
}
