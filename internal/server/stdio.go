package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.uber.org/zap"
)

// ErrMalformedFrame is returned by Serve when a line on the input stream is
// not a JSON-RPC message.
var ErrMalformedFrame = errors.New("malformed frame")

// State is the position of the stdio loop in its request cycle.
type State int32

const (
	StateIdle State = iota
	StateDecoding
	StateDispatching
	StateEncoding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateDispatching:
		return "dispatching"
	case StateEncoding:
		return "encoding"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stdio serves MCP over a newline-delimited JSON-RPC stream, one request at a
// time. Responses are written in request order.
type Stdio struct {
	protocol *Protocol
	in       *bufio.Reader
	out      *bufio.Writer
	logger   *zap.Logger
	state    atomic.Int32
}

// NewStdio returns a loop reading requests from r and writing responses to w.
func NewStdio(protocol *Protocol, r io.Reader, w io.Writer, logger *zap.Logger) *Stdio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stdio{
		protocol: protocol,
		in:       bufio.NewReader(r),
		out:      bufio.NewWriter(w),
		logger:   logger,
	}
}

// State reports the current state of the loop.
func (s *Stdio) State() State { return State(s.state.Load()) }

func (s *Stdio) setState(st State) { s.state.Store(int32(st)) }

// Serve runs the loop until the input stream ends, ctx is done, or a fatal
// error occurs. It returns nil on end of input and on cancellation. Cancellation
// is only noticed between requests; a request already read runs to completion.
func (s *Stdio) Serve(ctx context.Context) error {
	defer s.setState(StateClosed)
	s.logger.Info("serving on stdio")

	for {
		if ctx.Err() != nil {
			s.logger.Info("stdio loop stopped", zap.Error(context.Cause(ctx)))
			return nil
		}
		s.setState(StateIdle)

		line, readErr := s.in.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading request: %w", readErr)
		}
		if frame := bytes.TrimSpace(line); len(frame) > 0 {
			if err := s.handle(ctx, frame); err != nil {
				return err
			}
		}
		if readErr != nil {
			s.logger.Info("input closed")
			return nil
		}
	}
}

func (s *Stdio) handle(ctx context.Context, frame []byte) error {
	s.setState(StateDecoding)
	msg, err := jsonrpc.DecodeMessage(frame)
	if err != nil {
		s.logger.Error("malformed frame", zap.Error(err), zap.Int("bytes", len(frame)))
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	s.setState(StateDispatching)
	// The call runs to completion even if ctx is cancelled while it is in flight.
	resp, err := s.protocol.Handle(context.WithoutCancel(ctx), msg)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}

	s.setState(StateEncoding)
	data, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	data = append(data, '\n')
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
