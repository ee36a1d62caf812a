// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func TestClient_GetJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/list", r.URL.Path)
		assert.Equal(t, "413", r.URL.Query().Get("fid"))
		assert.Equal(t, "secret", r.Header.Get("Cookie"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"code":0,"data":["a","b"]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", http.Header{"Cookie": {"secret"}})
	var out struct {
		Code int      `json:"code"`
		Data []string `json:"data"`
	}
	err := client.GetJSON(context.Background(), "/api/list", url.Values{"fid": {"413"}}, &out)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Data)
}

func TestClient_PostJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &in))
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["roomId"]})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	var out map[string]string
	require.NoError(t, client.PostJSON(context.Background(), "room", map[string]string{"roomId": "r1"}, &out))
	assert.Equal(t, "r1", out["echo"])
}

func TestClient_StatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 1000), http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Get(context.Background(), "anything", nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Len(t, statusErr.Body, 256)
}

func TestClient_AbsoluteURL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain"))
	}))
	defer srv.Close()

	body, err := NewClient("http://unused.invalid", nil).Get(context.Background(), srv.URL+"/wg/0.js", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", string(body))
}

func TestSocket_RoundTrip(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://tenhou.net", r.Header.Get("Origin"))
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow()
		typ, msg, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		_ = conn.Write(r.Context(), typ, append([]byte("echo:"), msg...))
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	sock, err := Dial(ctx, wsURL, http.Header{"Origin": {"https://tenhou.net"}})
	require.NoError(t, err)
	defer sock.Close()
	require.NoError(t, sock.Write(ctx, []byte("<Z/>")))
	data, err := sock.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "echo:<Z/>", string(data))
}
