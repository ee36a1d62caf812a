// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package majsoul watches Mahjong Soul games through the observer websocket.
package majsoul

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/provider"
	"github.com/AccelByte/extend-match-watcher/pkg/transport"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

// listWindow widens the discovery window around the match expiry.
const listWindow = 300 * time.Second

// contestFidFloor separates contest categories from the public lobbies.
const contestFidFloor = 10000

const (
	UpdateFidsOff     = "off"
	UpdateFidsAll     = "all"
	UpdateFidsContest = "contest"
)

type Adapter struct {
	api     API
	catalog provider.Catalog
	cfg     config.MajsoulConfig
	log     *logrus.Entry

	// Clock and Dial are replaced in tests.
	Clock func() time.Time
	Dial  func(ctx context.Context, url string) (watcher.Socket, error)
}

func NewAdapter(api API, catalog provider.Catalog, cfg config.MajsoulConfig, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		api:     api,
		catalog: catalog,
		cfg:     cfg,
		log:     log.WithField("provider", constants.ProviderMajsoul),
		Clock:   time.Now,
		Dial: func(ctx context.Context, url string) (watcher.Socket, error) {
			return transport.Dial(ctx, url, nil)
		},
	}
}

func (a *Adapter) Name() string {
	return constants.ProviderMajsoul
}

func (a *Adapter) Discover(scope *envelope.Scope, _ bool) ([]*models.Watchable, error) {
	now := a.Clock()
	window := listWindow + a.cfg.MatchExpireTime
	docs, err := a.api.ListGames(scope.Ctx, now.Add(-window), now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	scope.SetAttributes("games", len(docs))

	watchables := make([]*models.Watchable, 0, len(docs))
	for _, doc := range docs {
		if doc.Wg.UUID == "" {
			continue
		}
		watchables = append(watchables, a.watchable(scope.Ctx, doc))
	}
	return watchables, nil
}

func (a *Adapter) watchable(ctx context.Context, doc Document) *models.Watchable {
	fname := doc.Fname
	if fname == "" && doc.Fid != "" && a.catalog != nil {
		name, err := a.catalog.Fname(ctx, constants.ProviderMajsoul, doc.Fid)
		if err != nil {
			a.log.WithError(err).Debugf("fname lookup failed for %s", doc.Fid)
		} else {
			fname = name
		}
	}
	return &models.Watchable{
		ProviderType: constants.ProviderMajsoul,
		WatchID:      doc.Wg.UUID,
		Players:      doc.Players(),
		Fid:          doc.Fid,
		Fname:        fname,
		StartTime:    doc.Started(),
		Document:     doc,
	}
}

// Lookup builds a watchable for a game uuid. Seats arrive with the first snapshot.
func (a *Adapter) Lookup(_ *envelope.Scope, watchID string) (*models.Watchable, error) {
	return &models.Watchable{
		ProviderType: constants.ProviderMajsoul,
		WatchID:      watchID,
		Document:     Document{Wg: Wg{UUID: watchID}},
	}, nil
}

func (a *Adapter) FromDump(dump models.WatcherDump) (*models.Watchable, error) {
	doc := Document{Wg: Wg{UUID: dump.WatchID}}
	if len(dump.Document) > 0 {
		if err := json.Unmarshal(dump.Document, &doc); err != nil {
			return nil, fmt.Errorf("majsoul document: %w", err)
		}
	}
	return &models.Watchable{
		ProviderType: constants.ProviderMajsoul,
		WatchID:      dump.WatchID,
		Players:      doc.Players(),
		Fid:          doc.Fid,
		Fname:        doc.Fname,
		StartTime:    doc.Started(),
		Document:     doc,
	}, nil
}

func (a *Adapter) Protocol(watchable *models.Watchable) watcher.Protocol {
	return &protocol{
		api:     a.api,
		cfg:     a.cfg,
		dial:    a.Dial,
		watchID: watchable.WatchID,
	}
}

// livelistFids returns the categories whose live lists are refreshed under the configured mode.
func (a *Adapter) livelistFids(ctx context.Context) []string {
	if a.cfg.UpdateFidsMode != UpdateFidsAll && a.cfg.UpdateFidsMode != UpdateFidsContest {
		return nil
	}
	fids := a.cfg.DefaultFids
	if a.catalog != nil {
		all, err := a.catalog.AllFids(ctx, constants.ProviderMajsoul)
		if err != nil {
			a.log.WithError(err).Warn("failed to list fids")
		} else {
			fids = all
		}
	}
	fids = pie.Unique(fids)
	if a.cfg.UpdateFidsMode == UpdateFidsContest {
		fids = pie.Filter(fids, func(fid string) bool {
			n, err := strconv.Atoi(fid)
			return err == nil && n > contestFidFloor
		})
	}
	return pie.Sort(fids)
}

// RefreshLivelists asks the listing service to refresh every followed category and returns
// the number refreshed.
func (a *Adapter) RefreshLivelists(ctx context.Context) int {
	refreshed := 0
	for _, fid := range a.livelistFids(ctx) {
		if err := a.api.RefreshLivelist(ctx, fid); err != nil {
			a.log.WithError(err).Debugf("refresh livelist %s failed", fid)
			continue
		}
		refreshed++
	}
	return refreshed
}

// RunLivelists refreshes live lists on UpdateFidsInterval until ctx is done.
func (a *Adapter) RunLivelists(ctx context.Context) {
	if a.cfg.UpdateFidsMode == UpdateFidsOff || a.cfg.UpdateFidsMode == "" || a.cfg.UpdateFidsInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.UpdateFidsInterval)
	defer ticker.Stop()
	for {
		a.RefreshLivelists(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
