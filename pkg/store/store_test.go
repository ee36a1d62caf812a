// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
	"github.com/AccelByte/extend-match-watcher/pkg/testsetup"
)

func TestStore_Subscriptions(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	ctx := context.Background()
	s := New()

	g.Expect(s.Subscribe("majsoul", "c1", "a")).To(BeTrue())
	g.Expect(s.Subscribe("MAJSOUL", "c1", "a")).To(BeFalse())
	s.Subscribe("majsoul", "c1", "b")
	s.Subscribe("majsoul", "c2", "b")
	s.Subscribe("tenhou", "c3", "z")

	tokens, err := s.TrackedTokens(ctx, "majsoul")
	require.NoError(t, err)
	g.Expect(tokens).To(Equal([]string{"a", "b"}))

	subscribers, err := s.Subscribers(ctx, "majsoul", []string{"b", "x"})
	require.NoError(t, err)
	g.Expect(subscribers).To(Equal(models.Subscribers{"c1": {"b"}, "c2": {"b"}}))

	g.Expect(s.Unsubscribe("majsoul", "c2", "b")).To(BeTrue())
	g.Expect(s.Unsubscribe("majsoul", "c2", "b")).To(BeFalse())
	subscribers, err = s.Subscribers(ctx, "majsoul", []string{"b"})
	require.NoError(t, err)
	g.Expect(subscribers.Channels()).To(Equal([]string{"c1"}))
}

func TestStore_SwitchesAndFids(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	s.SetDefaults("tenhou", []string{"169", "225"}, true)
	s.SetFids("tenhou", "c1", []string{"9", "9", "13"})
	s.SetDisabled("tenhou", "c2", true)

	tests := []struct {
		name         string
		cid          string
		wantFids     []string
		wantDisabled bool
	}{
		{name: "channel_fids", cid: "c1", wantFids: []string{"9", "13"}},
		{name: "default_fids", cid: "c2", wantFids: []string{"169", "225"}, wantDisabled: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fids, err := s.Fids(ctx, "tenhou", tt.cid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFids, fids)
			disabled, err := s.Disabled(ctx, "tenhou", tt.cid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDisabled, disabled)
		})
	}

	assert.True(t, s.FilterEnabled("tenhou"))
	assert.False(t, s.FilterEnabled("majsoul"))

	all, err := s.AllFids(ctx, "tenhou")
	require.NoError(t, err)
	assert.Equal(t, []string{"13", "169", "225", "9"}, all)

	s.SetFids("tenhou", "c1", nil)
	fids, err := s.Fids(ctx, "tenhou", "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"169", "225"}, fids)
}

func TestStore_Fname(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	s.SetFnames("majsoul", map[string]string{"16": "玉の間"})

	name, err := s.Fname(ctx, "majsoul", "16")
	require.NoError(t, err)
	assert.Equal(t, "玉の間", name)

	name, err = s.Fname(ctx, "majsoul", "12")
	require.NoError(t, err)
	assert.Equal(t, "12", name)
}

const seedFile = `
providers:
  majsoul:
    default_fids: ["16"]
    fid_filter: true
    fnames:
      "16": 玉の間
  tenhou:
    fid_filter: false
channels:
  - id: c1
    subscriptions:
      majsoul: ["1001", "1002"]
    disabled: [tenhou]
    fids:
      majsoul: ["12"]
  - id: c2
    subscriptions:
      tenhou: ["name"]
`

func TestLoadFile(t *testing.T) {
	g := testsetup.ParallelWithGomega(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedFile), 0o600))

	file, err := LoadFile(path)
	require.NoError(t, err)

	s := New()
	s.SetDefaults("tenhou", []string{"169"}, true)
	s.Apply(file)

	tokens, _ := s.TrackedTokens(ctx, "majsoul")
	g.Expect(tokens).To(Equal([]string{"1001", "1002"}))
	disabled, _ := s.Disabled(ctx, "tenhou", "c1")
	g.Expect(disabled).To(BeTrue())
	fids, _ := s.Fids(ctx, "majsoul", "c1")
	g.Expect(fids).To(Equal([]string{"12"}))
	fids, _ = s.Fids(ctx, "majsoul", "c2")
	g.Expect(fids).To(Equal([]string{"16"}))
	g.Expect(s.FilterEnabled("majsoul")).To(BeTrue())

	// tenhou keeps its defaults but the file switches filtering off
	g.Expect(s.FilterEnabled("tenhou")).To(BeFalse())
	fids, _ = s.Fids(ctx, "tenhou", "c2")
	g.Expect(fids).To(Equal([]string{"169"}))

	name, _ := s.Fname(ctx, "majsoul", "16")
	g.Expect(name).To(Equal("玉の間"))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "malformed", content: "channels: [", wantErr: "failed to parse store file"},
		{name: "missing_id", content: "channels:\n  - subscriptions: {}\n", wantErr: "id is required"},
		{name: "duplicate_id", content: "channels:\n  - id: a\n  - id: a\n", wantErr: "duplicate id a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadFile(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read store file")
}
