// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/notify"
	"github.com/AccelByte/extend-match-watcher/pkg/provider"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

type ctxKey int

const ctxKeyProvider ctxKey = iota

type updateResponse struct {
	Provider string `json:"provider"`
	Created  int    `json:"created"`
}

type trackResponse struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Changed bool   `json:"changed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleListWatchers(registry Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		providerName := r.URL.Query().Get("provider")
		infos := make([]watcher.Info, 0)
		for _, wt := range registry.List() {
			info := wt.Info()
			if status != "" && string(info.Status) != status {
				continue
			}
			if providerName != "" && info.Provider != providerName {
				continue
			}
			infos = append(infos, info)
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleGetWatcher(registry Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wt := registry.GetByID(chi.URLParam(r, "id"))
		if wt == nil {
			writeError(w, http.StatusNotFound, "watcher not found")
			return
		}
		writeJSON(w, http.StatusOK, wt.Info())
	}
}

func handleTrack(tracker Tracker, track bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cid := chi.URLParam(r, "cid")
		apply := tracker.Untrack
		if track {
			apply = tracker.Track
		}
		changed, err := apply(id, cid)
		if errors.Is(err, notify.ErrUnknownWatcher) {
			writeError(w, http.StatusNotFound, "watcher not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, trackResponse{ID: id, Channel: cid, Changed: changed})
	}
}

func providerMiddleware(providers map[string]Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := providers[chi.URLParam(r, "provider")]
			if !ok {
				writeError(w, http.StatusNotFound, "provider not found")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyProvider, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func providerFrom(ctx context.Context) Provider {
	return ctx.Value(ctxKeyProvider).(Provider)
}

func handleUpdate(log *logrus.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := providerFrom(r.Context())
		force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
		created := p.Update(r.Context(), force)
		log.WithField("provider", p.Name()).Infof("manual update created %d watchers", created)
		writeJSON(w, http.StatusOK, updateResponse{Provider: p.Name(), Created: created})
	}
}

func handleWatch(log *logrus.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := providerFrom(r.Context())
		watchID := chi.URLParam(r, "watchId")

		scope := envelope.NewRootScope(r.Context(), "admin.watch", "")
		defer scope.Finish()
		scope.SetAttributes(envelope.ProviderTag, p.Name())
		scope.SetAttributes(envelope.WatchIDTag, watchID)
		scope.Log = log.WithField("traceID", scope.TraceID)

		wt, err := p.Watch(scope.Ctx, watchID)
		switch {
		case errors.Is(err, provider.ErrDuplicate):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			scope.RecordError(err)
			scope.Log.Warnf("[admin] manual watch %s failed: %s", watchID, err)
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusCreated, wt.Info())
		}
	}
}
