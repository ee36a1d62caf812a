// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package tenhou

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

var jst = time.FixedZone("JST", 9*60*60)

// Document is one live game of the lobby list.
type Document struct {
	Info    Info        `json:"info"`
	Players []DocPlayer `json:"players"`
	Fid     string      `json:"fid,omitempty"`
	Fname   string      `json:"fname,omitempty"`
}

type Info struct {
	ID          string `json:"id"`
	StartTime   int64  `json:"starttime"`
	PlayerNum   int    `json:"playernum"`
	PlayLength  int    `json:"playlength"`
	PlayerLevel int    `json:"playerlevel"`
	Kuitanari   int    `json:"kuitanari"`
	Akaari      int    `json:"akaari"`
	Rapid       int    `json:"rapid"`
	Yami        int    `json:"yami"`
}

type DocPlayer struct {
	Name  string  `json:"name"`
	Rate  float64 `json:"rate,omitempty"`
	Grade int     `json:"grade,omitempty"`
}

func (d Document) Started() time.Time {
	if d.Info.StartTime == 0 {
		return time.Time{}
	}
	return time.Unix(d.Info.StartTime, 0)
}

func (d Document) ModelPlayers() []*models.Player {
	players := make([]*models.Player, 0, len(d.Players))
	for _, p := range d.Players {
		players = append(players, models.NewNamedPlayer(p.Name))
	}
	return players
}

// game type bits of a lobby record
const (
	typeNoAka      = 0b00000010
	typeNoKuitan   = 0b00000100
	typeHanchan    = 0b00001000
	typeSanma      = 0b00010000
	typeRapid      = 0b01000000
	typePhoenix    = 0b10100000
	recordBaseSize = 4
)

// ParseWgStrings extracts the quoted records of a lobby list script. Malformed records
// are skipped.
func ParseWgStrings(s string, now time.Time) ([]Document, error) {
	var docs []Document
	var errs []string
	for i, part := range strings.Split(s, `"`) {
		if i%2 == 0 {
			continue
		}
		doc, err := parseWgString(part, now)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no valid records: %s", strings.Join(errs, "; "))
	}
	return docs, nil
}

func parseWgString(s string, now time.Time) (Document, error) {
	ss := strings.Split(s, ",")
	if len(ss) < recordBaseSize {
		return Document{}, fmt.Errorf("short record %q", s)
	}
	gameType, err := strconv.Atoi(ss[3])
	if err != nil {
		return Document{}, fmt.Errorf("game type %q: %w", ss[3], err)
	}
	started, err := startTime(ss[2], now)
	if err != nil {
		return Document{}, err
	}

	info := Info{
		ID:          ss[0],
		StartTime:   started.Unix(),
		PlayerNum:   4,
		PlayLength:  1,
		PlayerLevel: 2,
		Kuitanari:   1,
		Akaari:      1,
	}
	if gameType&typeSanma != 0 {
		info.PlayerNum = 3
	}
	if gameType&typeHanchan != 0 {
		info.PlayLength = 2
	}
	if gameType&typePhoenix == typePhoenix {
		info.PlayerLevel = 3
	}
	if gameType&typeNoKuitan != 0 {
		info.Kuitanari = 0
	}
	if gameType&typeNoAka != 0 {
		info.Akaari = 0
	}
	if gameType&typeRapid != 0 {
		info.Rapid = 1
	}

	if len(ss) < recordBaseSize+3*info.PlayerNum {
		return Document{}, fmt.Errorf("record %s has %d fields for %d players", info.ID, len(ss), info.PlayerNum)
	}
	doc := Document{Info: info}
	for i := 0; i < info.PlayerNum; i++ {
		name, err := base64.StdEncoding.DecodeString(ss[4+3*i])
		if err != nil {
			return Document{}, fmt.Errorf("record %s player %d: %w", info.ID, i, err)
		}
		grade, _ := strconv.Atoi(ss[5+3*i])
		rate, _ := strconv.ParseFloat(ss[6+3*i], 64)
		doc.Players = append(doc.Players, DocPlayer{Name: string(name), Grade: grade, Rate: math.Floor(rate)})
	}
	doc.Fid = FidOf(doc.Info)
	doc.Fname = FnameOf(doc.Info)
	return doc, nil
}

// startTime resolves a JST "hh:mm" wall time to the occurrence nearest to now.
func startTime(hhmm string, now time.Time) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("start time %q: %w", hhmm, err)
	}
	local := now.In(jst)
	t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, jst)
	switch diff := t.Sub(now); {
	case diff > 12*time.Hour:
		t = t.AddDate(0, 0, -1)
	case diff < -12*time.Hour:
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
