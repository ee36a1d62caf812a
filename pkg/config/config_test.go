// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.GracePeriod)
	assert.Equal(t, 6*time.Hour, cfg.RestoreMaxAge)
	assert.Equal(t, 90*time.Second, cfg.Majsoul.UpdateInterval)
	assert.Equal(t, 6, cfg.Majsoul.TokenRetries)
	assert.Equal(t, "wss://b-ww.mjv.jp/", cfg.Tenhou.ObURI)
	assert.Equal(t, 5, cfg.Tenhou.ReconnectTimes)
	assert.Equal(t, 100, cfg.RiichiCity.QueryMaxTimes)
	assert.True(t, cfg.RiichiCity.Enabled)
}

func TestLoad_ProviderPrefixes(t *testing.T) {
	t.Setenv("MAJSOUL_ENABLED", "false")
	t.Setenv("MAJSOUL_UPDATE_FIDS_MODE", "contest")
	t.Setenv("TENHOU_DEFAULT_FIDS", "169,225")
	t.Setenv("TENHOU_RECONNECT_INTERVAL", "1s")
	t.Setenv("RIICHI_CITY_QUERY_INTERVAL", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Majsoul.Enabled)
	assert.Equal(t, "contest", cfg.Majsoul.UpdateFidsMode)
	assert.Equal(t, []string{"169", "225"}, cfg.Tenhou.DefaultFids)
	assert.Equal(t, time.Second, cfg.Tenhou.ReconnectInterval)
	assert.Equal(t, 3*time.Second, cfg.RiichiCity.QueryInterval)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "soon")

	_, err := Load()
	assert.Error(t, err)
}
