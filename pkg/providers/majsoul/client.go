// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package majsoul

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/AccelByte/extend-match-watcher/pkg/transport"
)

var ErrTokenUnavailable = errors.New("observer token unavailable")

// API is the majsoul data service: live listing, observer tokens and paipu archive.
type API interface {
	ListGames(ctx context.Context, from, to time.Time) ([]Document, error)
	ObToken(ctx context.Context, uuid string) (string, error)
	// PaipuHead returns nil without error while the game is not archived yet.
	PaipuHead(ctx context.Context, uuid string) (*PaipuHead, error)
	RefreshLivelist(ctx context.Context, fid string) error
}

type Client struct {
	http *transport.Client
}

func NewClient(apiBase string) *Client {
	return &Client{http: transport.NewClient(apiBase, nil)}
}

func (c *Client) ListGames(ctx context.Context, from, to time.Time) ([]Document, error) {
	var docs []Document
	query := url.Values{
		"start": {strconv.FormatInt(from.Unix(), 10)},
		"end":   {strconv.FormatInt(to.Unix(), 10)},
	}
	if err := c.http.GetJSON(ctx, "games", query, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) ObToken(ctx context.Context, uuid string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.http.GetJSON(ctx, "ob/token", url.Values{"uuid": {uuid}}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", ErrTokenUnavailable
	}
	return resp.Token, nil
}

func (c *Client) PaipuHead(ctx context.Context, uuid string) (*PaipuHead, error) {
	var head PaipuHead
	if err := c.http.GetJSON(ctx, "paipu/head", url.Values{"uuid": {uuid}}, &head); err != nil {
		return nil, err
	}
	if head.Err != nil || len(head.Head.Result.Players) == 0 {
		return nil, nil
	}
	return &head, nil
}

func (c *Client) RefreshLivelist(ctx context.Context, fid string) error {
	_, err := c.http.Get(ctx, "livelist/"+url.PathEscape(fid), nil)
	return err
}
