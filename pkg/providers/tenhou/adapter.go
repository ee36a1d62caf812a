// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package tenhou watches Tenhou lobby games through the observer websocket.
package tenhou

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/transport"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

const (
	SourceTenhou   = "tenhou"
	SourceNodocchi = "nodocchi"
)

type Adapter struct {
	cfg    config.TenhouConfig
	client *transport.Client
	log    *logrus.Entry

	Clock func() time.Time
	Dial  func(ctx context.Context, url string, header http.Header) (watcher.Socket, error)
}

func NewAdapter(cfg config.TenhouConfig, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{
		cfg:    cfg,
		client: transport.NewClient("", nil),
		log:    log.WithField("provider", constants.ProviderTenhou),
		Clock:  time.Now,
		Dial: func(ctx context.Context, url string, header http.Header) (watcher.Socket, error) {
			return transport.Dial(ctx, url, header)
		},
	}
}

func (a *Adapter) Name() string {
	return constants.ProviderTenhou
}

// List fetches the live lobby list from the configured source.
func (a *Adapter) List(ctx context.Context) ([]Document, error) {
	switch a.cfg.LivelistSource {
	case SourceNodocchi:
		var docs []Document
		if err := a.client.GetJSON(ctx, a.cfg.NodocchiURL, nil, &docs); err != nil {
			return nil, err
		}
		for i := range docs {
			docs[i].Fid = FidOf(docs[i].Info)
			docs[i].Fname = FnameOf(docs[i].Info)
		}
		return docs, nil
	case SourceTenhou, "":
		body, err := a.client.Get(ctx, a.cfg.LivelistURL, nil)
		if err != nil {
			return nil, err
		}
		return ParseWgStrings(string(body), a.Clock())
	default:
		return nil, fmt.Errorf("unknown livelist source %q", a.cfg.LivelistSource)
	}
}

func (a *Adapter) Discover(scope *envelope.Scope, _ bool) ([]*models.Watchable, error) {
	docs, err := a.List(scope.Ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch livelist: %w", err)
	}
	scope.SetAttributes("games", len(docs))

	watchables := make([]*models.Watchable, 0, len(docs))
	for _, doc := range docs {
		if doc.Info.ID == "" {
			continue
		}
		watchables = append(watchables, watchable(doc))
	}
	return watchables, nil
}

func watchable(doc Document) *models.Watchable {
	return &models.Watchable{
		ProviderType: constants.ProviderTenhou,
		WatchID:      doc.Info.ID,
		Players:      doc.ModelPlayers(),
		Fid:          doc.Fid,
		Fname:        doc.Fname,
		StartTime:    doc.Started(),
		Document:     doc,
	}
}

func (a *Adapter) Lookup(_ *envelope.Scope, watchID string) (*models.Watchable, error) {
	return watchable(Document{Info: Info{ID: watchID}}), nil
}

func (a *Adapter) FromDump(dump models.WatcherDump) (*models.Watchable, error) {
	doc := Document{Info: Info{ID: dump.WatchID}}
	if len(dump.Document) > 0 {
		if err := json.Unmarshal(dump.Document, &doc); err != nil {
			return nil, fmt.Errorf("tenhou document: %w", err)
		}
	}
	w := watchable(doc)
	w.WatchID = dump.WatchID
	return w, nil
}

func (a *Adapter) Protocol(watchable *models.Watchable) watcher.Protocol {
	return &protocol{
		cfg:     a.cfg,
		dial:    a.Dial,
		watchID: watchable.WatchID,
	}
}
