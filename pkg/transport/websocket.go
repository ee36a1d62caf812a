// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package transport

import (
	"context"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"
)

// readLimit covers the largest snapshot messages sent by the observer feeds.
const readLimit = 4 << 20

// Socket is a text websocket connection.
type Socket struct {
	conn *websocket.Conn
}

// Dial opens a websocket to url with the given request headers.
func Dial(ctx context.Context, url string, header http.Header) (*Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(readLimit)
	return &Socket{conn: conn}, nil
}

func (s *Socket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *Socket) Write(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Socket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
