// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package riichicity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

type fakeAPI struct {
	mu       sync.Mutex
	rooms    map[ListQuery][]Room
	listErr  error
	room     *RoomData
	events   [][]EventRecord
	eventErr error
	from     []int64
}

func (f *fakeAPI) ListGames(ctx context.Context, query ListQuery) ([]Room, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rooms[query], nil
}

func (f *fakeAPI) RoomData(ctx context.Context, roomID string) (*RoomData, error) {
	return f.room, nil
}

func (f *fakeAPI) GameData(ctx context.Context, roomID string, from int64) (*GameData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from = append(f.from, from)
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	if len(f.events) == 0 {
		return &GameData{}, nil
	}
	next := f.events[0]
	f.events = f.events[1:]
	return &GameData{HandEventRecord: next}, nil
}

func event(pos int64, eventType int, data any) EventRecord {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return EventRecord{EventPos: pos, EventType: eventType, Data: string(raw)}
}

var testPlayers = []RoomPlayer{{UserID: 1, Nickname: "u1"}, {UserID: 2, Nickname: "u2"}, {UserID: 3, Nickname: "u3"}, {UserID: 4, Nickname: "u4"}}

func roundEvents() []EventRecord {
	users := []map[string]any{}
	for _, p := range testPlayers {
		users = append(users, map[string]any{"user_id": p.UserID, "hand_points": 25000})
	}
	start := map[string]any{"dealer_pos": 0, "quan_feng": 49, "chang_ci": 1, "ben_chang_num": 0, "li_zhi_bang_num": 0, "user_info_list": users}
	return []EventRecord{
		event(0, EventGameStart, start),
		event(1, EventActionBrc, map[string]any{"action": ActionPeng, "card": 0x21, "user_id": 2, "group_cards": []int{0x21, 0x21}}),
		event(2, EventActionBrc, map[string]any{"action": ActionChiHu, "card": 0x05, "user_id": 1}),
		event(3, EventGameEnd, map[string]any{
			"win_info": []map[string]any{{
				"user_id":    1,
				"all_point":  8000,
				"user_cards": []int{0x04, 0x02, 0x03, 0x01},
				"fang_info":  []map[string]any{{"fang_type": 0, "fang_num": 1}, {"fang_type": 13, "fang_num": 1}},
			}},
			"user_profit": []map[string]any{
				{"user_id": 1, "point_profit": 8000, "user_point": 33000},
				{"user_id": 3, "point_profit": -8000, "user_point": 17000},
				{"user_id": 2, "point_profit": 0, "user_point": 25000},
				{"user_id": 4, "point_profit": 0, "user_point": 25000},
			},
		}),
		// the same round start repeated by the server
		event(4, EventGameStart, start),
	}
}

func roomEndEvent(pos int64) EventRecord {
	return event(pos, EventRoomEnd, map[string]any{"user_data": []map[string]any{
		{"user_id": 1, "point_num": 33000, "score": 43.0},
		{"user_id": 3, "point_num": 17000, "score": -33.0},
	}})
}

type events struct {
	mu       sync.Mutex
	progress []models.ProgressEvent
	finished int
}

func (e *events) kinds() []models.ProgressKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	var kinds []models.ProgressKind
	for _, p := range e.progress {
		kinds = append(kinds, p.Event)
	}
	return kinds
}

func testConfig() config.RiichiCityConfig {
	return config.RiichiCityConfig{QueryInterval: time.Millisecond, QueryMaxTimes: 2}
}

func newTestWatcher(g testsetup.GomegaWithScope, p watcher.Protocol, restore *models.WatcherDump) (*watcher.Watcher, *events) {
	rec := &events{}
	bus := watcher.NewBus(g.Log)
	bus.OnProgress(func(w *watcher.Watcher, p models.ProgressEvent) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.progress = append(rec.progress, p)
	})
	bus.OnFinish(func(w *watcher.Watcher, players []*models.Player) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.finished++
	})
	watchable := &models.Watchable{ProviderType: constants.ProviderRiichiCity, WatchID: "room-1"}
	return watcher.New(watchable, p, watcher.Options{ID: "r000", Bus: bus, Logger: g.Log, Restore: restore}), rec
}

func TestProtocol_ReplayThenPoll(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	api := &fakeAPI{
		room:   &RoomData{HandRecord: []HandRecord{{Players: testPlayers, HandEventRecord: roundEvents()}}},
		events: [][]EventRecord{{roomEndEvent(5)}},
	}
	p := &protocol{api: api, cfg: testConfig(), watchID: "room-1"}
	w, rec := newTestWatcher(g, p, nil)

	progressed, err := p.poll(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, progressed)
	assert.Equal(t, int64(4), w.Sequence())
	assert.Equal(t, models.StatusPlaying, w.Status())
	assert.Equal(t, "東1局 0本場", w.GameStatus().String())
	assert.Equal(t, 0x05, w.GameStatus().LastTile)

	g.Expect(rec.kinds()).To(Equal([]models.ProgressKind{models.MatchStart, models.RoundStart, models.RoundEnd}))
	rec.mu.Lock()
	details := rec.progress[2].Details
	rec.mu.Unlock()
	assert.Equal(t, "u1 ロン u3 8000\n1234p 5p\n1 立直\n1 平和", details)

	players := w.Players()
	require.Len(t, players, 4)
	assert.Equal(t, int64(33000), players[0].Point)
	assert.Equal(t, int64(-8000), players[2].DeltaPoint)
	assert.Equal(t, [][]int{{0x21, 0x21, 0x21}}, p.melds[2])

	progressed, err = p.poll(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, progressed)
	assert.Equal(t, []int64{5}, api.from)
	assert.Equal(t, models.StatusFinished, w.Status())
	assert.Equal(t, 1, rec.finished)
	g.Expect(rec.kinds()).To(HaveLen(4))
	assert.Equal(t, 43.0, w.Players()[0].Score)
}

func TestProtocol_RestoredReplayIsSilent(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	api := &fakeAPI{room: &RoomData{HandRecord: []HandRecord{{Players: testPlayers, HandEventRecord: roundEvents()}}}}
	p := &protocol{api: api, cfg: testConfig(), watchID: "room-1"}
	w, rec := newTestWatcher(g, p, &models.WatcherDump{ID: "r000", Provider: constants.ProviderRiichiCity, WatchID: "room-1", Sequence: 4})

	_, err := p.poll(context.Background(), w)
	require.NoError(t, err)
	assert.Empty(t, rec.kinds())
	assert.Equal(t, int64(33000), w.Players()[0].Point)
	assert.Equal(t, int64(4), w.Sequence())
}

func TestProtocol_IdleRoomCloses(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	api := &fakeAPI{
		room:     &RoomData{HandRecord: []HandRecord{{Players: testPlayers}}},
		eventErr: &APIError{Code: CodeNoNewEvents, Message: "no data"},
	}
	adapter := NewAdapter(api, nil, testConfig(), g.Log)
	watchable, err := adapter.Lookup(g.TestScope, "room-1")
	require.NoError(t, err)
	w, _ := newTestWatcher(g, adapter.Protocol(watchable), nil)
	w.Start(context.Background())

	g.Eventually(w.Done()).Should(BeClosed())
	assert.True(t, w.Closed())
	assert.NotEqual(t, models.StatusError, w.Status())
}

func TestProtocol_FailingRoomErrors(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	api := &fakeAPI{
		room:     &RoomData{},
		eventErr: &APIError{Code: 500, Message: "internal"},
	}
	p := &protocol{api: api, cfg: testConfig(), watchID: "room-1"}
	w, _ := newTestWatcher(g, p, nil)
	w.Start(context.Background())

	g.Eventually(w.Done()).Should(BeClosed())
	assert.Equal(t, models.StatusError, w.Status())
}

func TestProtocol_AddedKan(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	p := &protocol{cfg: testConfig()}
	w, _ := newTestWatcher(g, p, nil)

	p.applyAction(w, actionBrc{Action: ActionPeng, UserID: 2, Card: 0x31, GroupCards: []int{0x31, 0x31}})
	p.applyAction(w, actionBrc{Action: ActionYouChi, UserID: 2, Card: 0x01, GroupCards: []int{0x02, 0x03}})
	p.applyAction(w, actionBrc{Action: ActionBuGang, UserID: 2, Card: 0x31})
	assert.Equal(t, [][]int{{0x31, 0x31, 0x31, 0x31}, {0x01, 0x02, 0x03}}, p.melds[2])
	assert.Equal(t, "123p 1111z 5p", handString([]int{0x03, 0x01, 0x02}, [][]int{{0x31, 0x31, 0x31, 0x31}}, 0x05))
}

func TestTilesString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10p1m17z", tilesString([]int{0x91, 0x21, 0x105, 0x31, 0x01}))
	assert.Equal(t, "3 立直\n1 役牌：北\n2 99", yakuString([]fang{{0, 3}, {56, 1}, {99, 2}}))
}

func TestQueryForFid(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ListQuery{PlayerCount: 4, Round: 2, StageType: 3}, QueryForFid("423"))
	assert.Equal(t, ListQuery{ClassifyID: "c10086"}, QueryForFid("c10086"))
}

type fakeCatalog struct{}

func (fakeCatalog) AllFids(ctx context.Context, provider string) ([]string, error) {
	return []string{"413", "c10086"}, nil
}

func (fakeCatalog) Fname(ctx context.Context, provider, fid string) (string, error) {
	if fid == "c10086" {
		return "大会", nil
	}
	return "", errors.New("unknown")
}

func TestAdapter_Discover(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	api := &fakeAPI{rooms: map[ListQuery][]Room{
		{PlayerCount: 4, Round: 1, StageType: 3}: {
			{RoomID: "ended", IsEnd: true, Players: testPlayers},
			{RoomID: "open", StartTime: 1760000000, Players: testPlayers},
		},
		{ClassifyID: "c10086"}: {{RoomID: "contest", Players: testPlayers[:3]}},
	}}

	watchables, err := NewAdapter(api, nil, testConfig(), g.Log).Discover(g.TestScope, false)
	require.NoError(t, err)
	require.Len(t, watchables, 1)
	got := watchables[0]
	assert.Equal(t, "riichi-city:open", got.WID())
	assert.Equal(t, "413", got.Fid)
	assert.Equal(t, "四人炎阳东风战", got.Fname)
	assert.Equal(t, time.Unix(1760000000, 0), got.StartTime)
	assert.Equal(t, []string{"$1", "$2", "$3", "$4"}, models.PlayerTokens(got.Players))

	watchables, err = NewAdapter(api, fakeCatalog{}, testConfig(), g.Log).Discover(g.TestScope, false)
	require.NoError(t, err)
	require.Len(t, watchables, 2)
	assert.Equal(t, "大会", watchables[1].Fname)
	assert.Equal(t, "四人炎阳东风战", watchables[0].Fname)

	api.listErr = errors.New("down")
	_, err = NewAdapter(api, nil, testConfig(), g.Log).Discover(g.TestScope, false)
	assert.Error(t, err)
}

func TestAdapter_FromDump(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	adapter := NewAdapter(&fakeAPI{}, nil, testConfig(), g.Log)
	room := Room{RoomID: "open", StartTime: 1760000000, Players: testPlayers, Fid: "413", Fname: "四人炎阳东风战"}
	raw, err := json.Marshal(room)
	require.NoError(t, err)

	watchable, err := adapter.FromDump(models.WatcherDump{Provider: constants.ProviderRiichiCity, WatchID: "open", Document: raw, Sequence: 9})
	require.NoError(t, err)
	assert.Equal(t, room, watchable.Document)
	assert.Len(t, watchable.Players, 4)

	p, ok := adapter.Protocol(watchable).(*protocol)
	require.True(t, ok)
	assert.Equal(t, "u3", p.room.Nickname(3))
}

func TestClient(t *testing.T) {
	t.Parallel()
	r := chi.NewRouter()
	r.Get("/games", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.URL.Query().Get("playerCount"))
		_, _ = w.Write([]byte(`{"code":0,"data":[{"roomId":"r1","startTime":1760000000,"players":[{"userId":1,"nickname":"u1"}]}]}`))
	})
	r.Get("/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{"handRecord":[{"players":[{"userId":1,"nickname":"u1"}],"handEventRecord":[{"eventPos":0,"eventType":1,"data":"{}"}]}]}}`))
	})
	r.Get("/rooms/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") == "1" {
			_, _ = w.Write([]byte(`{"code":155,"message":"no data"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":7,"message":"bad room"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL)
	ctx := context.Background()

	rooms, err := client.ListGames(ctx, QueryForFid("413"))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "r1", rooms[0].RoomID)

	data, err := client.RoomData(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, data.HandRecord, 1)
	assert.Equal(t, EventGameStart, data.HandRecord[0].HandEventRecord[0].EventType)

	_, err = client.GameData(ctx, "r1", 1)
	assert.ErrorIs(t, err, ErrStaleSession)

	_, err = client.GameData(ctx, "r1", 2)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 7, apiErr.Code)
	assert.NotErrorIs(t, err, ErrStaleSession)
}
