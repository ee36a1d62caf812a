// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package riichicity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/transport"
)

// CodeNoNewEvents is the api code for a poll with nothing after the requested position.
const CodeNoNewEvents = 155

var ErrStaleSession = errors.New("riichi city room has no new events")

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("riichi city api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrStaleSession && e.Code == CodeNoNewEvents
}

// API is the riichi city lobby and game record service.
type API interface {
	ListGames(ctx context.Context, query ListQuery) ([]Room, error)
	RoomData(ctx context.Context, roomID string) (*RoomData, error)
	// GameData returns the events of a room starting at position from.
	GameData(ctx context.Context, roomID string, from int64) (*GameData, error)
}

// ListQuery selects a lobby either by its rule triple or by a contest classify id.
type ListQuery struct {
	PlayerCount int
	Round       int
	StageType   int
	ClassifyID  string
}

// QueryForFid decodes a fid: three digits are player count, round and stage, anything
// else is a classify id.
func QueryForFid(fid string) ListQuery {
	if len(fid) <= 3 {
		q := ListQuery{}
		digits := []*int{&q.PlayerCount, &q.Round, &q.StageType}
		for i := 0; i < len(fid); i++ {
			*digits[i], _ = strconv.Atoi(fid[i : i+1])
		}
		return q
	}
	return ListQuery{ClassifyID: fid}
}

func (q ListQuery) values() url.Values {
	if q.ClassifyID != "" {
		return url.Values{"classifyID": {q.ClassifyID}}
	}
	return url.Values{
		"playerCount": {strconv.Itoa(q.PlayerCount)},
		"round":       {strconv.Itoa(q.Round)},
		"stageType":   {strconv.Itoa(q.StageType)},
	}
}

type Room struct {
	RoomID    string       `json:"roomId"`
	StartTime int64        `json:"startTime"`
	IsEnd     bool         `json:"isEnd"`
	Players   []RoomPlayer `json:"players"`
	Fid       string       `json:"fid,omitempty"`
	Fname     string       `json:"fname,omitempty"`
}

type RoomPlayer struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
}

func (r Room) Started() time.Time {
	if r.StartTime == 0 {
		return time.Time{}
	}
	return time.Unix(r.StartTime, 0)
}

func (r Room) ModelPlayers() []*models.Player {
	players := make([]*models.Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, models.NewAccountPlayer(p.UserID, p.Nickname))
	}
	return players
}

func (r Room) Nickname(userID int64) string {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p.Nickname
		}
	}
	return ""
}

type RoomData struct {
	HandRecord []HandRecord `json:"handRecord"`
}

type HandRecord struct {
	Players         []RoomPlayer  `json:"players"`
	HandEventRecord []EventRecord `json:"handEventRecord"`
}

type GameData struct {
	HandEventRecord []EventRecord `json:"handEventRecord"`
}

type EventRecord struct {
	EventPos  int64  `json:"eventPos"`
	EventType int    `json:"eventType"`
	Data      string `json:"data"`
}

type Client struct {
	http *transport.Client
}

func NewClient(apiBase string) *Client {
	return &Client{http: transport.NewClient(apiBase, nil)}
}

type response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var resp response
	if err := c.http.GetJSON(ctx, path, query, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &APIError{Code: resp.Code, Message: resp.Message}
	}
	if len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

func (c *Client) ListGames(ctx context.Context, query ListQuery) ([]Room, error) {
	var rooms []Room
	if err := c.get(ctx, "games", query.values(), &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) RoomData(ctx context.Context, roomID string) (*RoomData, error) {
	var data RoomData
	if err := c.get(ctx, "rooms/"+url.PathEscape(roomID), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) GameData(ctx context.Context, roomID string, from int64) (*GameData, error) {
	var data GameData
	query := url.Values{"from": {strconv.FormatInt(from, 10)}}
	if err := c.get(ctx, "rooms/"+url.PathEscape(roomID)+"/events", query, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
