// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// Socket is one open streaming connection.
type Socket interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type Dialer func(ctx context.Context) (Socket, error)

type StreamOptions struct {
	Dial Dialer
	// OnOpen runs after every successful dial. ctx is cancelled when the connection ends,
	// so goroutines started here (heartbeats) stop with it.
	OnOpen func(ctx context.Context, sock Socket) error
	// Handle processes one message in arrival order.
	Handle func(ctx context.Context, data []byte)

	ReconnectInterval time.Duration
	ReconnectTimes    int
}

// RunStream keeps a streaming feed connected until the watcher finishes. An unexpected
// close schedules a reconnect after ReconnectInterval; more than ReconnectTimes reconnects
// in total returns ErrRetriesExceeded.
func RunStream(ctx context.Context, w *Watcher, opts StreamOptions) error {
	retries := 0
	prev := w.Status()
	for {
		if w.Finished() || ctx.Err() != nil {
			return nil
		}
		err := w.streamOnce(ctx, opts, prev)
		if w.Finished() || ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = ErrFeedClosed
		}

		retries++
		w.metrics.AddReconnect(w.providerType)
		if retries > opts.ReconnectTimes {
			return fmt.Errorf("%w: %d reconnects: %v", ErrRetriesExceeded, opts.ReconnectTimes, err)
		}
		w.log.WithError(err).Infof("connection closed, will reconnect (%d)", retries)
		prev = w.enterReconnecting()

		timer := time.NewTimer(opts.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (w *Watcher) streamOnce(ctx context.Context, opts StreamOptions, prev models.Status) error {
	sock, err := opts.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer sock.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.OnOpen != nil {
		if err := opts.OnOpen(connCtx, sock); err != nil {
			return fmt.Errorf("open: %w", err)
		}
	}
	w.leaveReconnecting(prev)

	for {
		data, err := sock.Read(connCtx)
		if err != nil {
			return err
		}
		opts.Handle(connCtx, data)
		if w.Finished() {
			return nil
		}
	}
}
