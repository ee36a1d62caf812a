// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package constants

import "time"

const (
	ProviderMajsoul    = "majsoul"
	ProviderTenhou     = "tenhou"
	ProviderRiichiCity = "riichi-city"
)

const (
	DefaultGracePeriod     = 15 * time.Second
	DefaultRecycleInterval = 15 * time.Minute
	DefaultRestoreMaxAge   = 6 * time.Hour

	// IDRetryLimit bounds the number of regenerations on a short id collision.
	IDRetryLimit = 5
)

// Alphabets used for watcher short ids: one letter followed by letters or digits.
const (
	IDPrefixAlphabet = "abcdefghijklmnopqrstuvwxyz"
	IDSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	IDSuffixLength   = 3
)

// label values for metrics
const (
	OutcomeAccepted   = "accepted"
	OutcomeDropped    = "dropped"
	OutcomeApproved   = "approved"
	OutcomeVetoed     = "vetoed"
	OutcomeRegistered = "registered"
	OutcomeDuplicate  = "duplicate"
	OutcomeRestored   = "restored"
	OutcomeStale      = "stale"
)

// DumpKeySubscribers and DumpKeyNotifyChannels are the payload keys written for every dumped watcher.
const (
	DumpKeySubscribers    = "subscribers"
	DumpKeyNotifyChannels = "notifyChannels"
)
