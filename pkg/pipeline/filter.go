// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"context"

	"github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-match-watcher/pkg/envelope"
	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

type SwitchStore interface {
	// Disabled reports whether cid switched notifications from provider off.
	Disabled(ctx context.Context, provider, cid string) (bool, error)
}

type FidStore interface {
	// Fids returns the category ids cid accepts, falling back to the provider defaults.
	Fids(ctx context.Context, provider, cid string) ([]string, error)
	FilterEnabled(provider string) bool
}

// SwitchFilter drops the channels that switched the watchable's provider off.
func SwitchFilter(store SwitchStore) BeforeWatchHandler {
	return func(scope *envelope.Scope, watchable *models.Watchable) (bool, error) {
		for _, cid := range watchable.Subscribers.Channels() {
			disabled, err := store.Disabled(scope.Ctx, watchable.ProviderType, cid)
			if err != nil {
				return false, err
			}
			if disabled {
				delete(watchable.Subscribers, cid)
			}
		}
		return len(watchable.Subscribers) == 0, nil
	}
}

// FidFilter drops the channels whose accepted fids exclude the watchable's fid. It does
// nothing for providers with fid filtering turned off.
func FidFilter(store FidStore) BeforeWatchHandler {
	return func(scope *envelope.Scope, watchable *models.Watchable) (bool, error) {
		if !store.FilterEnabled(watchable.ProviderType) {
			return false, nil
		}
		for _, cid := range watchable.Subscribers.Channels() {
			fids, err := store.Fids(scope.Ctx, watchable.ProviderType, cid)
			if err != nil {
				return false, err
			}
			if !pie.Contains(fids, watchable.Fid) {
				delete(watchable.Subscribers, cid)
			}
		}
		return len(watchable.Subscribers) == 0, nil
	}
}
