// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML seed of a store.
type File struct {
	Providers map[string]ProviderFile `yaml:"providers"`
	Channels  []ChannelFile           `yaml:"channels"`
}

type ProviderFile struct {
	DefaultFids []string          `yaml:"default_fids"`
	FidFilter   *bool             `yaml:"fid_filter"`
	Fnames      map[string]string `yaml:"fnames"`
}

type ChannelFile struct {
	ID            string              `yaml:"id"`
	Subscriptions map[string][]string `yaml:"subscriptions"`
	Disabled      []string            `yaml:"disabled"`
	Fids          map[string][]string `yaml:"fids"`
}

// LoadFile reads a store seed from a YAML file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) Validate() error {
	seen := map[string]bool{}
	for i, channel := range f.Channels {
		if channel.ID == "" {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		if seen[channel.ID] {
			return fmt.Errorf("channels[%d]: duplicate id %s", i, channel.ID)
		}
		seen[channel.ID] = true
	}
	return nil
}

// Apply loads the seed into s. Provider settings in the file override the defaults
// already set; a provider without fid_filter keeps its current flag.
func (s *Store) Apply(f *File) {
	for provider, settings := range f.Providers {
		if len(settings.DefaultFids) > 0 || settings.FidFilter != nil {
			fids := settings.DefaultFids
			enabled := s.FilterEnabled(provider)
			if settings.FidFilter != nil {
				enabled = *settings.FidFilter
			}
			if len(fids) == 0 {
				s.mu.RLock()
				if current, ok := s.providers[key(provider)]; ok {
					fids = current.defaultFids
				}
				s.mu.RUnlock()
			}
			s.SetDefaults(provider, fids, enabled)
		}
		if len(settings.Fnames) > 0 {
			s.SetFnames(provider, settings.Fnames)
		}
	}
	for _, channel := range f.Channels {
		for provider, tokens := range channel.Subscriptions {
			for _, token := range tokens {
				s.Subscribe(provider, channel.ID, token)
			}
		}
		for _, provider := range channel.Disabled {
			s.SetDisabled(provider, channel.ID, true)
		}
		for provider, fids := range channel.Fids {
			s.SetFids(provider, channel.ID, fids)
		}
	}
}
