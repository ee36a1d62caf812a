// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package tenhou

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

const (
	usersFrame = `{"tag":"UN","n0":"%E3%81%82","n1":"b","n2":"c","n3":"d","dan":"16,15,14,13","rate":"2100.5,1900,1800,1700","sx":"M,M,M,M"}`
	roundFrame = `{"tag":"WGC","childNodes":[` +
		`{"tag":"INIT","seed":"4,1,0,3,4,5","ten":"250,250,250,250","oya":"0"},` +
		`{"tag":"AGARI","who":"1","fromWho":"2","ten":"30,7700,0","sc":"250,0,250,77,250,-77,250,0",` +
		`"hai":"0,4,8,36,40,44,72,76,80,108,109,110,112,113","machi":"113","yaku":"1,1"}]}`
	endFrame = `{"tag":"WGC","childNodes":[{"tag":"RYUUKYOKU","sc":"250,0,327,0,173,0,250,0",` +
		`"owari":"250,5.0,327,+40.0,173,-30.0,250,-15.0"}]}`
)

type events struct {
	mu       sync.Mutex
	progress []models.ProgressEvent
	finished [][]*models.Player
}

func (e *events) snapshot() ([]models.ProgressEvent, [][]*models.Player) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ProgressEvent(nil), e.progress...), append([][]*models.Player(nil), e.finished...)
}

func testConfig() config.TenhouConfig {
	return config.TenhouConfig{
		ProviderConfig:    config.ProviderConfig{MatchExpireTime: 600 * time.Second},
		LivelistSource:    SourceTenhou,
		ObURI:             "wss://ob.test/",
		ReconnectInterval: time.Millisecond,
		ReconnectTimes:    1,
	}
}

func newTestWatcher(g testsetup.GomegaWithScope, protocol watcher.Protocol) (*watcher.Watcher, *events) {
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
		rec.finished = append(rec.finished, players)
	})
	watchable := &models.Watchable{ProviderType: constants.ProviderTenhou, WatchID: "2026101814gm-00a9-0000-abcd"}
	return watcher.New(watchable, protocol, watcher.Options{ID: "t000", Bus: bus, Logger: g.Log}), rec
}

func TestProtocol_Feed(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	p := &protocol{cfg: testConfig(), watchID: "2026101814gm-00a9-0000-abcd"}
	w, rec := newTestWatcher(g, p)
	sock := testsetup.NewSocket()

	require.NoError(t, p.open(context.Background(), sock))
	written := sock.Written()
	require.Len(t, written, 3)
	assert.JSONEq(t, `{"tag":"HELO","name":"NoName","sx":"M"}`, written[0])
	assert.JSONEq(t, `{"tag":"WG","id":"2026101814gm-00a9-0000-abcd","tw":0}`, written[1])
	assert.JSONEq(t, `{"tag":"GOK"}`, written[2])

	p.handle(w, []byte(usersFrame))
	players := w.Players()
	require.Len(t, players, 4)
	assert.Equal(t, "あ", players[0].Name)
	assert.Equal(t, "16", players[0].Dan)
	assert.Equal(t, 2100.5, players[0].Rate)

	p.handle(w, []byte(roundFrame))
	assert.Equal(t, models.StatusPlaying, w.Status())
	assert.Equal(t, "南1局 1本場", w.GameStatus().String())
	assert.Equal(t, int64(1), w.Sequence())
	players = w.Players()
	assert.Equal(t, int64(327), players[1].Point)
	assert.Equal(t, int64(-77), players[2].DeltaPoint)

	// a reconnect replays the game from the start
	require.NoError(t, p.open(context.Background(), sock))
	p.handle(w, []byte(usersFrame))
	p.handle(w, []byte(roundFrame))
	progress, _ := rec.snapshot()
	require.Len(t, progress, 3)
	assert.Equal(t, models.MatchStart, progress[0].Event)
	assert.Equal(t, models.RoundStart, progress[1].Event)
	assert.Equal(t, models.RoundEnd, progress[2].Event)
	assert.True(t, strings.HasPrefix(progress[2].Details, "b ロン c 7700\n"), progress[2].Details)

	p.handle(w, []byte(endFrame))
	assert.Equal(t, models.StatusFinished, w.Status())
	progress, finished := rec.snapshot()
	require.Len(t, progress, 4)
	assert.Equal(t, "流局", progress[3].Details)
	require.Len(t, finished, 1)
	assert.Equal(t, int64(327), finished[0][1].Point)
	assert.Equal(t, 40.0, finished[0][1].Score)
	assert.Equal(t, -30.0, finished[0][2].Score)
}

func TestProtocol_RemoteError(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	p := &protocol{cfg: testConfig()}
	w, _ := newTestWatcher(g, p)

	p.handle(w, []byte(`{"tag":"ERR","code":"1004"}`))
	assert.Equal(t, models.StatusError, w.Status())
	assert.True(t, w.Closed())
}

func TestProtocol_IgnoresUnknownFrames(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	p := &protocol{cfg: testConfig()}
	w, rec := newTestWatcher(g, p)

	p.handle(w, []byte(`not json`))
	p.handle(w, []byte(`{"tag":"KANSEN"}`))
	p.handle(w, []byte(`{"tag":"SOMETHING"}`))
	progress, _ := rec.snapshot()
	assert.Empty(t, progress)
	assert.Equal(t, models.StatusWaiting, w.Status())
}

func TestProtocol_Run(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	cfg := testConfig()
	cfg.HeartbeatInterval = time.Millisecond
	adapter := NewAdapter(cfg, g.Log)

	sock := testsetup.NewSocket(usersFrame, roundFrame)
	var dialedURL, dialedOrigin string
	adapter.Dial = func(ctx context.Context, url string, header http.Header) (watcher.Socket, error) {
		dialedURL, dialedOrigin = url, header.Get("Origin")
		return sock, nil
	}

	watchable, err := adapter.Lookup(g.TestScope, "2026101814gm-00a9-0000-abcd")
	require.NoError(t, err)
	w, _ := newTestWatcher(g, adapter.Protocol(watchable))
	w.Start(context.Background())

	g.Eventually(func() int {
		return strings.Count(strings.Join(sock.Written(), "\n"), heartbeat)
	}).Should(BeNumerically(">=", 2))
	sock.Push(endFrame)

	g.Eventually(w.Done()).Should(BeClosed())
	assert.Equal(t, models.StatusFinished, w.Status())
	assert.Equal(t, "wss://ob.test/", dialedURL)
	assert.Equal(t, "https://tenhou.net", dialedOrigin)
}

func TestAdapter_Discover(t *testing.T) {
	now := time.Date(2026, 10, 18, 14, 20, 0, 0, time.UTC)
	nodocchi, err := json.Marshal([]Document{{
		Info:    Info{ID: "N001", StartTime: now.Add(-time.Minute).Unix(), PlayerNum: 4, PlayLength: 2, PlayerLevel: 3, Kuitanari: 1, Akaari: 1},
		Players: []DocPlayer{{Name: "p1"}, {Name: "p2"}, {Name: "p3"}, {Name: "p4"}},
	}})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/0/wg/0.js", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`sw=["` + wgRecord("T001", "23:10", "169", "a", "b", "c", "d") + `"];`))
	})
	mux.HandleFunc("/s/wg/0.js", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(nodocchi)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	testCases := []struct {
		name    string
		source  string
		watchID string
	}{
		{name: "tenhou_script", source: SourceTenhou, watchID: "T001"},
		{name: "nodocchi_json", source: SourceNodocchi, watchID: "N001"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			g := testsetup.ParallelWithGomega(t)
			cfg := testConfig()
			cfg.LivelistSource = testCase.source
			cfg.LivelistURL = srv.URL + "/0/wg/0.js"
			cfg.NodocchiURL = srv.URL + "/s/wg/0.js"
			adapter := NewAdapter(cfg, g.Log)
			adapter.Clock = func() time.Time { return now }

			watchables, err := adapter.Discover(g.TestScope, false)
			require.NoError(t, err)
			require.Len(t, watchables, 1)
			got := watchables[0]
			assert.Equal(t, testCase.watchID, got.WatchID)
			assert.Equal(t, "169", got.Fid)
			assert.Equal(t, "四鳳南喰赤", got.Fname)
			assert.False(t, got.StartTime.IsZero())
			g.Expect(got.Players).To(HaveLen(4))
		})
	}

	g := testsetup.WithGomega(t)
	cfg := testConfig()
	cfg.LivelistSource = "carrier-pigeon"
	_, err = NewAdapter(cfg, g.Log).Discover(g.TestScope, false)
	assert.Error(t, err)
}

func TestAdapter_FromDump(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	adapter := NewAdapter(testConfig(), g.Log)
	doc := Document{
		Info:    Info{ID: "T001", StartTime: 1760000000, PlayerNum: 4},
		Players: []DocPlayer{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}},
		Fid:     "169",
		Fname:   "四鳳南喰赤",
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	watchable, err := adapter.FromDump(models.WatcherDump{ID: "t000", Provider: constants.ProviderTenhou, WatchID: "T001", Document: raw})
	require.NoError(t, err)
	assert.Equal(t, "tenhou:T001", watchable.WID())
	assert.Equal(t, doc, watchable.Document)
	assert.Equal(t, []string{"a", "b", "c", "d"}, models.PlayerTokens(watchable.Players))

	watchable, err = adapter.FromDump(models.WatcherDump{Provider: constants.ProviderTenhou, WatchID: "T002"})
	require.NoError(t, err)
	assert.Equal(t, "T002", watchable.WatchID)
	assert.Empty(t, watchable.Players)
}
