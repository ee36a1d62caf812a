// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package riichicity watches Riichi City rooms by polling their event record.
package riichicity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/provider"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

type Adapter struct {
	api     API
	catalog provider.Catalog
	cfg     config.RiichiCityConfig
	log     *logrus.Entry
}

func NewAdapter(api API, catalog provider.Catalog, cfg config.RiichiCityConfig, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		api:     api,
		catalog: catalog,
		cfg:     cfg,
		log:     log.WithField("provider", constants.ProviderRiichiCity),
	}
}

func (a *Adapter) Name() string {
	return constants.ProviderRiichiCity
}

func (a *Adapter) fids(ctx context.Context) []string {
	if a.catalog == nil {
		return DefaultFids
	}
	fids, err := a.catalog.AllFids(ctx, constants.ProviderRiichiCity)
	if err != nil {
		a.log.WithError(err).Warn("failed to list fids, using defaults")
		return DefaultFids
	}
	return fids
}

func (a *Adapter) fname(ctx context.Context, fid string) string {
	if a.catalog != nil {
		if name, err := a.catalog.Fname(ctx, constants.ProviderRiichiCity, fid); err == nil && name != "" {
			return name
		}
	}
	return Fname(fid)
}

// Discover lists the open rooms of every followed lobby. A failing lobby is skipped;
// the cycle fails only when every lobby failed.
func (a *Adapter) Discover(scope *envelope.Scope, _ bool) ([]*models.Watchable, error) {
	fids := a.fids(scope.Ctx)
	var watchables []*models.Watchable
	var errs []error
	for _, fid := range fids {
		rooms, err := a.api.ListGames(scope.Ctx, QueryForFid(fid))
		if err != nil {
			scope.Log.WithError(err).Warnf("[riichi-city] list games of %s failed", fid)
			errs = append(errs, fmt.Errorf("%s: %w", fid, err))
			continue
		}
		fname := a.fname(scope.Ctx, fid)
		for _, room := range rooms {
			if room.IsEnd || room.RoomID == "" {
				continue
			}
			room.Fid = fid
			room.Fname = fname
			watchables = append(watchables, watchable(room))
		}
	}
	if len(fids) > 0 && len(errs) == len(fids) {
		return nil, errors.Join(errs...)
	}
	return watchables, nil
}

func watchable(room Room) *models.Watchable {
	return &models.Watchable{
		ProviderType: constants.ProviderRiichiCity,
		WatchID:      room.RoomID,
		Players:      room.ModelPlayers(),
		Fid:          room.Fid,
		Fname:        room.Fname,
		StartTime:    room.Started(),
		Document:     room,
	}
}

func (a *Adapter) Lookup(_ *envelope.Scope, watchID string) (*models.Watchable, error) {
	return watchable(Room{RoomID: watchID}), nil
}

func (a *Adapter) FromDump(dump models.WatcherDump) (*models.Watchable, error) {
	room := Room{RoomID: dump.WatchID}
	if len(dump.Document) > 0 {
		if err := json.Unmarshal(dump.Document, &room); err != nil {
			return nil, fmt.Errorf("riichi city document: %w", err)
		}
	}
	w := watchable(room)
	w.WatchID = dump.WatchID
	return w, nil
}

func (a *Adapter) Protocol(w *models.Watchable) watcher.Protocol {
	room, _ := w.Document.(Room)
	return &protocol{
		api:     a.api,
		cfg:     a.cfg,
		watchID: w.WatchID,
		room:    room,
	}
}
