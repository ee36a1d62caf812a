// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
)

var errNothingNew = errors.New("nothing new")

func TestRunPoll(t *testing.T) {
	tests := []struct {
		name       string
		results    []error
		progressed []bool
		wantErr    error
		wantClosed bool
		wantPolls  int
	}{
		{
			name:       "idle_polls_close_quietly",
			results:    []error{nil, nil, nil, nil},
			progressed: []bool{false, false, false, false},
			wantClosed: true,
			wantPolls:  3,
		}, {
			name:       "idle_error_counts_as_idle",
			results:    []error{errNothingNew, nil, errNothingNew},
			progressed: []bool{false, false, false},
			wantClosed: true,
			wantPolls:  3,
		}, {
			name:       "progress_resets_idle",
			results:    []error{nil, nil, nil, nil, nil, nil},
			progressed: []bool{false, false, true, false, false, false},
			wantClosed: true,
			wantPolls:  6,
		}, {
			name:       "consecutive_failures_exceed",
			results:    []error{errors.New("503"), errors.New("503"), errors.New("503")},
			progressed: []bool{false, false, false},
			wantErr:    ErrRetriesExceeded,
			wantPolls:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testsetup.ParallelWithGomega(t)
			w := New(testWatchable("poll-"+tt.name), blockingProtocol, Options{ID: "p000", Logger: g.Log})
			polls := 0

			err := RunPoll(context.Background(), w, PollOptions{
				Interval: time.Millisecond,
				Poll: func(ctx context.Context) (bool, error) {
					i := polls
					polls++
					if i >= len(tt.results) {
						return true, nil
					}
					return tt.progressed[i], tt.results[i]
				},
				IsIdle:      func(err error) bool { return errors.Is(err, errNothingNew) },
				MaxIdle:     2,
				MaxFailures: 2,
			})

			if tt.wantErr != nil {
				g.Expect(err).To(MatchError(tt.wantErr))
			} else {
				g.Expect(err).NotTo(HaveOccurred())
			}
			g.Expect(w.Closed()).To(Equal(tt.wantClosed))
			g.Expect(polls).To(Equal(tt.wantPolls))
			g.Expect(w.Status()).NotTo(Equal(models.StatusError))
		})
	}
}

func TestRunPoll_StopsWhenFinished(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	w := New(testWatchable("poll-finish"), blockingProtocol, Options{ID: "p001", Logger: g.Log})
	polls := 0

	err := RunPoll(context.Background(), w, PollOptions{
		Interval: time.Millisecond,
		Poll: func(ctx context.Context) (bool, error) {
			polls++
			if polls == 2 {
				w.Finish(nil, models.StatusFinished)
			}
			return true, nil
		},
		MaxIdle: 10,
	})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(polls).To(Equal(2))
	g.Expect(w.Status()).To(Equal(models.StatusFinished))
}
