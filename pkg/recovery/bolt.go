// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

// BoltStore persists snapshots in a bbolt file, one bucket per provider.
type BoltStore struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("recovery path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open recovery db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Save(ctx context.Context, provider string, dumps []models.WatcherDump) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(provider))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", provider, err)
		}
		for _, dump := range dumps {
			payload, err := json.Marshal(dump)
			if err != nil {
				return fmt.Errorf("marshal dump %s: %w", dump.ID, err)
			}
			if err := bucket.Put([]byte(dump.ID), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

// Take reads every snapshot of provider and drops the bucket in the same transaction.
// Undecodable records are skipped.
func (s *BoltStore) Take(ctx context.Context, provider string) ([]models.WatcherDump, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dumps []models.WatcherDump
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(provider))
		if bucket == nil {
			return nil
		}
		err := bucket.ForEach(func(k, v []byte) error {
			var dump models.WatcherDump
			if err := json.Unmarshal(v, &dump); err != nil {
				logrus.Warnf("[recovery] skip malformed dump %s/%s: %s", provider, k, err)
				return nil
			}
			dumps = append(dumps, dump)
			return nil
		})
		if err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(provider)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("take %s dumps: %w", provider, err)
	}
	return dumps, nil
}
