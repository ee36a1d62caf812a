// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package testsetup

import (
	"context"
	"io"
	"sync"
)

// Socket is an in-memory feed connection. Reads block until a message is pushed, the
// socket is closed or ctx ends.
type Socket struct {
	in   chan []byte
	done chan struct{}

	mu      sync.Mutex
	written []string
	once    sync.Once
}

func NewSocket(msgs ...string) *Socket {
	s := &Socket{in: make(chan []byte, 64), done: make(chan struct{})}
	for _, m := range msgs {
		s.Push(m)
	}
	return s
}

func (s *Socket) Push(msg string) {
	s.in <- []byte(msg)
}

func (s *Socket) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-s.in:
		return data, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Socket) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, string(data))
	return nil
}

func (s *Socket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Written returns every message written so far.
func (s *Socket) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

func (s *Socket) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
