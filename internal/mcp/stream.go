package mcp

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Stream joins a reader and a writer into the io.ReadWriteCloser a
// jsonrpc2.Dialer hands out. It dials exactly once.
type Stream struct {
	reader io.Reader
	writer io.WriteCloser

	mu     sync.Mutex
	dialed bool
}

// NewStream builds a Stream over r and w. Closing the stream closes w, and
// r too when it implements io.Closer.
func NewStream(r io.Reader, w io.WriteCloser) *Stream {
	return &Stream{reader: r, writer: w}
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *Stream) Close() error {
	err := s.writer.Close()
	if closer, ok := s.reader.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// Dial implements jsonrpc2.Dialer.
func (s *Stream) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialed {
		return nil, errors.New("stream already dialed")
	}
	s.dialed = true
	return s, nil
}
