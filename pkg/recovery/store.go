// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package recovery keeps the watcher snapshots a provider needs to resume after a restart.
package recovery

import (
	"context"
	"sort"
	"sync"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// Store maps a provider name to its resumable watcher snapshots, keyed by watcher id.
type Store interface {
	// Save appends dumps, replacing any stored snapshot with the same watcher id.
	Save(ctx context.Context, provider string, dumps []models.WatcherDump) error
	// Take returns the stored snapshots of provider and removes them.
	Take(ctx context.Context, provider string) ([]models.WatcherDump, error)
	Close() error
}

// MemoryStore is a Store that does not survive the process. It backs tests and
// deployments without a recovery path.
type MemoryStore struct {
	mu    sync.Mutex
	dumps map[string]map[string]models.WatcherDump
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dumps: map[string]map[string]models.WatcherDump{}}
}

func (s *MemoryStore) Save(ctx context.Context, provider string, dumps []models.WatcherDump) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.dumps[provider]
	if !ok {
		table = map[string]models.WatcherDump{}
		s.dumps[provider] = table
	}
	for _, dump := range dumps {
		table[dump.ID] = dump
	}
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, provider string) ([]models.WatcherDump, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	table := s.dumps[provider]
	delete(s.dumps, provider)
	s.mu.Unlock()

	dumps := make([]models.WatcherDump, 0, len(table))
	for _, dump := range table {
		dumps = append(dumps, dump)
	}
	sort.Slice(dumps, func(i, j int) bool { return dumps[i].ID < dumps[j].ID })
	return dumps, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
