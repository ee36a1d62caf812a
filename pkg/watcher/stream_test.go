// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
)

// scriptedSocket replays messages then reports EOF.
type scriptedSocket struct {
	mu      sync.Mutex
	msgs    chan []byte
	written [][]byte
	closed  bool
}

func newScriptedSocket(msgs ...string) *scriptedSocket {
	s := &scriptedSocket{msgs: make(chan []byte, len(msgs))}
	for _, m := range msgs {
		s.msgs <- []byte(m)
	}
	close(s.msgs)
	return s
}

func (s *scriptedSocket) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-s.msgs:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (s *scriptedSocket) Write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, data)
	return nil
}

func (s *scriptedSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestRunStream_ReconnectsAndRestoresStatus(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	sockets := []*scriptedSocket{
		newScriptedSocket("a", "b"),
		newScriptedSocket("c", "end"),
	}
	var (
		dials                int
		dialStatuses         []models.Status
		handled              []string
		statusAfterReconnect models.Status
	)
	stub := testsetup.NewMetrics()
	w := New(testWatchable("stream-1"), blockingProtocol, Options{ID: "s100", Logger: g.Log, Metrics: stub})
	w.SetStatus(models.StatusPlaying)

	err := RunStream(context.Background(), w, StreamOptions{
		Dial: func(ctx context.Context) (Socket, error) {
			dialStatuses = append(dialStatuses, w.Status())
			sock := sockets[dials]
			dials++
			return sock, nil
		},
		OnOpen: func(ctx context.Context, sock Socket) error {
			return sock.Write(ctx, []byte("hello"))
		},
		Handle: func(ctx context.Context, data []byte) {
			msg := string(data)
			handled = append(handled, msg)
			if msg == "c" {
				statusAfterReconnect = w.Status()
			}
			if msg == "end" {
				w.Finish(nil, models.StatusFinished)
			}
		},
		ReconnectInterval: time.Millisecond,
		ReconnectTimes:    3,
	})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(handled).To(Equal([]string{"a", "b", "c", "end"}))
	g.Expect(dialStatuses).To(Equal([]models.Status{models.StatusPlaying, models.StatusReconnecting}))
	g.Expect(statusAfterReconnect).To(Equal(models.StatusPlaying))
	g.Expect(w.Status()).To(Equal(models.StatusFinished))
	g.Expect(stub.Reconnects["majsoul"]).To(Equal(1))
	for _, sock := range sockets {
		g.Expect(sock.closed).To(BeTrue())
		g.Expect(sock.written).To(HaveLen(1))
	}
}

func TestRunStream_RetriesExceededMovesToError(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	dialErr := errors.New("connection refused")
	attempts := 0
	protocol := protocolFunc(func(ctx context.Context, w *Watcher) error {
		return RunStream(ctx, w, StreamOptions{
			Dial: func(ctx context.Context) (Socket, error) {
				attempts++
				return nil, dialErr
			},
			Handle:            func(ctx context.Context, data []byte) {},
			ReconnectInterval: time.Millisecond,
			ReconnectTimes:    2,
		})
	})
	bus := NewBus(g.Log)
	rec := newRecorder(bus)
	w := New(testWatchable("stream-2"), protocol, Options{ID: "s200", Logger: g.Log, Bus: bus})

	w.Start(context.Background())
	g.Eventually(w.Done()).Should(BeClosed())

	g.Expect(attempts).To(Equal(3))
	g.Expect(w.Status()).To(Equal(models.StatusError))
	g.Expect(rec.errs).To(HaveLen(1))
	g.Expect(errors.Is(rec.errs[0], ErrRetriesExceeded)).To(BeTrue())
	g.Expect(rec.errs[0].Error()).To(ContainSubstring("connection refused"))
}

func TestRunStream_CloseStopsReconnectWait(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	dialed := make(chan struct{}, 1)
	protocol := protocolFunc(func(ctx context.Context, w *Watcher) error {
		return RunStream(ctx, w, StreamOptions{
			Dial: func(ctx context.Context) (Socket, error) {
				select {
				case dialed <- struct{}{}:
				default:
				}
				return newScriptedSocket(), nil
			},
			Handle:            func(ctx context.Context, data []byte) {},
			ReconnectInterval: time.Hour,
			ReconnectTimes:    5,
		})
	})
	w := New(testWatchable("stream-3"), protocol, Options{ID: "s300", Logger: g.Log})
	w.Start(context.Background())
	<-dialed

	g.Eventually(w.Status).Should(Equal(models.StatusReconnecting))
	w.Close()
	g.Eventually(w.Done()).Should(BeClosed())
	assert.NotEqual(t, models.StatusError, w.Status())
}
