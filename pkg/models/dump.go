// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"encoding/json"
	"time"
)

// WatcherDump is the resumable snapshot of a live watcher.
type WatcherDump struct {
	ID        string                     `json:"id"`
	Provider  string                     `json:"provider"`
	WatchID   string                     `json:"watchId"`
	Document  json.RawMessage            `json:"document,omitempty"`
	Sequence  int64                      `json:"seq"`
	StartTime time.Time                  `json:"starttime"`
	Payload   map[string]json.RawMessage `json:"payload,omitempty"`
}

func (d WatcherDump) WID() string {
	return WID(d.Provider, d.WatchID)
}

func (d WatcherDump) Validate() error {
	if d.WatchID == "" {
		return ValidationErrorMissingWatchID
	}
	if d.Provider == "" {
		return ValidationErrorMissingProvider
	}
	if d.StartTime.IsZero() {
		return ValidationErrorMissingStartTime
	}
	return nil
}

// PayloadValue decodes one payload key into out. It reports false when the key is absent.
func (d WatcherDump) PayloadValue(key string, out any) (bool, error) {
	raw, ok := d.Payload[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}
