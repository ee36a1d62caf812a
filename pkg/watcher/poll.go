// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"fmt"
	"time"
)

type PollOptions struct {
	Interval time.Duration
	// Poll fetches the events since the last accepted position and reports whether any arrived.
	Poll func(ctx context.Context) (progressed bool, err error)
	// IsIdle classifies errors meaning "nothing new" rather than a broken feed.
	IsIdle func(err error) bool

	// MaxIdle is the number of consecutive idle polls tolerated before the watcher closes.
	MaxIdle int
	// MaxFailures is the number of consecutive failed polls tolerated before the watcher errors.
	MaxFailures int
}

// RunPoll polls on a fixed interval until the watcher finishes. A feed that stays idle for
// more than MaxIdle polls is considered quietly over and the watcher is closed without error.
func RunPoll(ctx context.Context, w *Watcher, opts PollOptions) error {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	idle, failures := 0, 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if w.Finished() {
			return nil
		}

		progressed, err := opts.Poll(ctx)
		if ctx.Err() != nil || w.Finished() {
			return nil
		}
		switch {
		case err != nil && opts.IsIdle != nil && opts.IsIdle(err):
			idle++
			failures = 0
		case err != nil:
			failures++
			w.log.WithError(err).Warnf("poll failed (%d)", failures)
			if opts.MaxFailures > 0 && failures > opts.MaxFailures {
				return fmt.Errorf("%w: %d failed polls: %v", ErrRetriesExceeded, failures, err)
			}
		case progressed:
			idle, failures = 0, 0
		default:
			idle++
			failures = 0
		}

		if idle > opts.MaxIdle {
			w.log.Infof("no new events after %d polls, closing", idle)
			w.Close()
			return nil
		}
	}
}
