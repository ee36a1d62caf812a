// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store keeps the channel subscriptions, provider switches and fid sets the
// attach pipeline consults.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/elliotchance/pie/v2"

	"github.com/AccelByte/extend-match-watcher/pkg/models"
)

type providerSettings struct {
	defaultFids   []string
	filterEnabled bool
	fnames        map[string]string
}

// Store is an in-memory subscription store safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	// provider -> channel -> tokens
	subscriptions map[string]map[string][]string
	// provider -> channel -> switched off
	disabled map[string]map[string]bool
	// provider -> channel -> fids
	fids      map[string]map[string][]string
	providers map[string]*providerSettings
}

func New() *Store {
	return &Store{
		subscriptions: map[string]map[string][]string{},
		disabled:      map[string]map[string]bool{},
		fids:          map[string]map[string][]string{},
		providers:     map[string]*providerSettings{},
	}
}

func key(provider string) string {
	return strings.ToLower(provider)
}

func (s *Store) settingsLocked(provider string) *providerSettings {
	settings, ok := s.providers[key(provider)]
	if !ok {
		settings = &providerSettings{fnames: map[string]string{}}
		s.providers[key(provider)] = settings
	}
	return settings
}

// Subscribe makes cid follow token on provider. It reports false when already followed.
func (s *Store) Subscribe(provider, cid, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels, ok := s.subscriptions[key(provider)]
	if !ok {
		channels = map[string][]string{}
		s.subscriptions[key(provider)] = channels
	}
	if pie.Contains(channels[cid], token) {
		return false
	}
	channels[cid] = append(channels[cid], token)
	return true
}

func (s *Store) Unsubscribe(provider, cid, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels := s.subscriptions[key(provider)]
	if !pie.Contains(channels[cid], token) {
		return false
	}
	channels[cid] = pie.Filter(channels[cid], func(t string) bool { return t != token })
	if len(channels[cid]) == 0 {
		delete(channels, cid)
	}
	return true
}

func (s *Store) SetDisabled(provider, cid string, disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels, ok := s.disabled[key(provider)]
	if !ok {
		channels = map[string]bool{}
		s.disabled[key(provider)] = channels
	}
	if disabled {
		channels[cid] = true
	} else {
		delete(channels, cid)
	}
}

// SetFids sets the categories cid accepts on provider; an empty list restores the defaults.
func (s *Store) SetFids(provider, cid string, fids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channels, ok := s.fids[key(provider)]
	if !ok {
		channels = map[string][]string{}
		s.fids[key(provider)] = channels
	}
	if len(fids) == 0 {
		delete(channels, cid)
		return
	}
	unique := make([]string, 0, len(fids))
	for _, fid := range fids {
		if !pie.Contains(unique, fid) {
			unique = append(unique, fid)
		}
	}
	channels[cid] = unique
}

// SetDefaults configures the fallback fids and whether fid filtering applies on provider.
func (s *Store) SetDefaults(provider string, fids []string, filterEnabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.settingsLocked(provider)
	settings.defaultFids = append([]string(nil), fids...)
	settings.filterEnabled = filterEnabled
}

// SetFnames merges display names of categories on provider.
func (s *Store) SetFnames(provider string, fnames map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.settingsLocked(provider)
	for fid, name := range fnames {
		settings.fnames[fid] = name
	}
}

func (s *Store) TrackedTokens(_ context.Context, provider string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tokens []string
	for _, channelTokens := range s.subscriptions[key(provider)] {
		tokens = append(tokens, channelTokens...)
	}
	return pie.Sort(pie.Unique(tokens)), nil
}

func (s *Store) Subscribers(_ context.Context, provider string, tokens []string) (models.Subscribers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subscribers := models.Subscribers{}
	for cid, channelTokens := range s.subscriptions[key(provider)] {
		for _, token := range channelTokens {
			if pie.Contains(tokens, token) {
				subscribers.Add(cid, token)
			}
		}
	}
	return subscribers, nil
}

func (s *Store) Disabled(_ context.Context, provider, cid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled[key(provider)][cid], nil
}

func (s *Store) Fids(_ context.Context, provider, cid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fids, ok := s.fids[key(provider)][cid]; ok {
		return append([]string(nil), fids...), nil
	}
	if settings, ok := s.providers[key(provider)]; ok {
		return append([]string(nil), settings.defaultFids...), nil
	}
	return nil, nil
}

func (s *Store) FilterEnabled(provider string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.providers[key(provider)]
	return ok && settings.filterEnabled
}

// AllFids returns the union of every channel's fids and the provider defaults.
func (s *Store) AllFids(_ context.Context, provider string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var fids []string
	if settings, ok := s.providers[key(provider)]; ok {
		fids = append(fids, settings.defaultFids...)
	}
	for _, channelFids := range s.fids[key(provider)] {
		fids = append(fids, channelFids...)
	}
	return pie.Sort(pie.Unique(fids)), nil
}

func (s *Store) Fname(_ context.Context, provider, fid string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if settings, ok := s.providers[key(provider)]; ok {
		if name, ok := settings.fnames[fid]; ok {
			return name, nil
		}
	}
	return fid, nil
}
