package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/exp/jsonrpc2"
)

// LoggingFramer is a Framer decorator that logs every frame read or written.
type LoggingFramer struct {
	Base   jsonrpc2.Framer // the underlying framer, usually NewLineRawFramer
	Logger *slog.Logger
}

// Reader wraps the underlying framer's Reader with logging.
func (f *LoggingFramer) Reader(r io.Reader) jsonrpc2.Reader {
	return &loggingReader{base: f.Base.Reader(r), logger: f.Logger}
}

// Writer wraps the underlying framer's Writer with logging.
func (f *LoggingFramer) Writer(w io.Writer) jsonrpc2.Writer {
	return &loggingWriter{base: f.Base.Writer(w), logger: f.Logger}
}

type loggingReader struct {
	base   jsonrpc2.Reader
	logger *slog.Logger
}

func (r *loggingReader) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	msg, n, err := r.base.Read(ctx)
	if err != nil {
		r.logger.Debug("frame read failed", "error", err)
		return msg, n, err
	}
	r.logger.Debug("frame read", "bytes", n, "message", fmt.Sprintf("%+v", msg))
	return msg, n, nil
}

type loggingWriter struct {
	base   jsonrpc2.Writer
	logger *slog.Logger
}

func (w *loggingWriter) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	n, err := w.base.Write(ctx, msg)
	if err != nil {
		w.logger.Debug("frame write failed", "error", err)
		return n, err
	}
	w.logger.Debug("frame written", "bytes", n, "message", fmt.Sprintf("%+v", msg))
	return n, nil
}

// maxLoggedLine bounds how much of an undecodable line is logged.
const maxLoggedLine = 256

// NewLineRawFramer returns a Framer that carries one raw JSON message per
// line. Blank lines between messages are skipped. Lines that do not decode
// as JSON-RPC are logged to slog.Default and skipped.
func NewLineRawFramer() jsonrpc2.Framer {
	return NewLineRawFramerWithLogger(slog.Default())
}

// NewLineRawFramerWithLogger is NewLineRawFramer logging skipped lines to
// logger.
func NewLineRawFramerWithLogger(logger *slog.Logger) jsonrpc2.Framer {
	return newLineRawFramer{logger: logger}
}

type newLineRawFramer struct {
	logger *slog.Logger
}

type newLineRawReader struct {
	in     *bufio.Reader
	logger *slog.Logger
}

type newLineRawWriter struct {
	out io.Writer
}

func (f newLineRawFramer) Reader(r io.Reader) jsonrpc2.Reader {
	return &newLineRawReader{in: bufio.NewReader(r), logger: f.logger}
}

func (newLineRawFramer) Writer(w io.Writer) jsonrpc2.Writer {
	return &newLineRawWriter{out: w}
}

func (r *newLineRawReader) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		line, err := r.in.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return nil, 0, fmt.Errorf("failed to read line: %w", err)
			}
			continue
		}

		// A final message without its trailing newline is still a message.
		msg, derr := jsonrpc2.DecodeMessage(line)
		if derr != nil {
			logged := line
			if len(logged) > maxLoggedLine {
				logged = logged[:maxLoggedLine]
			}
			r.logger.Warn("Skipping undecodable frame", "error", derr, "line", string(logged))
			if err != nil {
				return nil, 0, fmt.Errorf("failed to read line: %w", err)
			}
			continue
		}
		return msg, int64(len(line)), nil
	}
}

func (w *newLineRawWriter) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}
	data = append(data, '\n')

	n, err := w.out.Write(data)
	return int64(n), err
}
