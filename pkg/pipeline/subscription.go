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

// SubscriptionStore answers which player tokens are followed and by which channels.
type SubscriptionStore interface {
	// TrackedTokens returns every token followed by at least one channel on provider.
	TrackedTokens(ctx context.Context, provider string) ([]string, error)
	// Subscribers maps each channel following any of tokens to the tokens it follows.
	Subscribers(ctx context.Context, provider string, tokens []string) (models.Subscribers, error)
}

// SubscriptionResolver approves every watchable with at least one tracked player and fills
// its subscribers. A provider without any tracked token stops the batch.
func SubscriptionResolver(store SubscriptionStore) AttachHandler {
	return func(scope *envelope.Scope, provider string, batch []*models.Watchable) (bool, error) {
		tracked, err := store.TrackedTokens(scope.Ctx, provider)
		if err != nil {
			return false, err
		}
		if len(tracked) == 0 {
			return true, nil
		}
		lookup := make(map[string]struct{}, len(tracked))
		for _, token := range tracked {
			lookup[token] = struct{}{}
		}

		for _, watchable := range batch {
			tokens := models.PlayerTokens(watchable.Players)
			matched := pie.Filter(tokens, func(token string) bool {
				_, ok := lookup[token]
				return ok
			})
			if len(matched) == 0 {
				continue
			}
			subscribers, err := store.Subscribers(scope.Ctx, provider, pie.Unique(matched))
			if err != nil {
				return false, err
			}
			if len(subscribers) == 0 {
				continue
			}
			watchable.Approve(subscribers)
		}
		return false, nil
	}
}
