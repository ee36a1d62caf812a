// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package provider

import "context"

// Catalog resolves category names and the categories followed by any channel.
type Catalog interface {
	// AllFids returns every fid followed by a channel plus the provider defaults.
	AllFids(ctx context.Context, provider string) ([]string, error)
	// Fname returns the display name of fid, or fid itself when unknown.
	Fname(ctx context.Context, provider, fid string) (string, error)
}
