// Package protocol implements line-delimited JSON-RPC 2.0 exchange with
// the validation engine.
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/judepayne/validation-service/internal/config"
	"github.com/judepayne/validation-service/internal/errors"
)

// maxScanTokenSize is the maximum buffer size for reading engine response lines.
const maxScanTokenSize = 1024 * 1024 // 1MB

// readResult holds one response line or the read error that ended the stream.
type readResult struct {
	line []byte
	err  error
}

// Conn is a synchronous JSON-RPC 2.0 connection over a transport's streams.
//
// Conn permits exactly one outstanding request at a time and is not safe
// for concurrent use; callers serialize Call (the lifecycle manager holds
// a call lock). A Conn whose Call returned a timeout or a context error is
// unusable: it refuses further calls with ErrStreamClosed, and the owner
// must close the connection and its transport.
type Conn struct {
	log       *slog.Logger
	transport config.Transport
	timeout   time.Duration
	nextID    int64
	lines     chan readResult
	done      chan struct{}
	closeOnce sync.Once

	// broken marks a connection that abandoned an in-flight response on
	// timeout or cancellation. The stale line may still arrive, so further
	// calls are refused rather than risk reading it as their result.
	// Guarded by the callers' serialization, like nextID.
	broken bool
}

// NewConn creates a connection over the transport's streams and starts
// its read loop. The transport must already be started.
//
// timeout bounds each Call's blocking read; zero means no deadline.
func NewConn(log *slog.Logger, transport config.Transport, timeout time.Duration) *Conn {
	c := &Conn{
		log:       log.With("component", "protocol"),
		transport: transport,
		timeout:   timeout,
		lines:     make(chan readResult),
		done:      make(chan struct{}),
	}

	go c.readLoop()

	return c
}

// Close stops the read loop. It does not close the transport's streams;
// that is the owner's job (streams before process, per the supervisor).
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readLoop reads response lines from the transport and hands them to Call.
// It exits when the stream ends or the connection is closed.
func (c *Conn) readLoop() {
	defer c.log.Debug("Protocol read loop stopped")
	defer close(c.lines)

	scanner := bufio.NewScanner(c.transport.Reader())
	// Set large buffer for big result payloads
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		// Scanner reuses its buffer between Scan calls
		line := append([]byte(nil), scanner.Bytes()...)

		select {
		case c.lines <- readResult{line: line}:
		case <-c.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Debug("Response stream read error", "error", err)

		select {
		case c.lines <- readResult{err: err}:
		case <-c.done:
		}
	}
}

// Call sends one JSON-RPC request and blocks until its response arrives.
//
// The request is serialized as a single newline-terminated UTF-8 JSON line
// and written immediately. Nil params are sent as an empty object. The
// response's result value is returned verbatim as opaque JSON.
//
// Failure kinds: WriteError (broken pipe on send), ResponseParseError
// (malformed line, raw line preserved), RPCError (engine-reported failure,
// payload verbatim, never retried), InvalidResponseError (JSON with
// neither result nor error), ErrStreamClosed (stream ended before a
// response), ErrCallTimeout (configured deadline expired).
//
// Response lines carrying an integer id that does not match the
// outstanding request are discarded with a warning; lines without an id
// are trusted in arrival order. For that trust to hold, a Call that
// abandoned its response (timeout or cancellation) marks the connection
// broken and every later Call fails with ErrStreamClosed.
func (c *Conn) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if c.broken {
		return nil, fmt.Errorf("call %q: %w", method, errors.ErrStreamClosed)
	}

	if params == nil {
		params = map[string]any{}
	}

	c.nextID++
	id := c.nextID

	req := Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}

	data, err := json.Marshal(&req)
	if err != nil {
		return nil, &errors.WriteError{Method: method, Err: fmt.Errorf("marshal request: %w", err)}
	}

	data = append(data, '\n')

	if _, err := c.transport.Writer().Write(data); err != nil {
		c.log.Error("Failed to write request to engine", "method", method, "error", err)

		return nil, &errors.WriteError{Method: method, Err: err}
	}

	c.log.Debug("Request sent, waiting for response", "id", id, "method", method)

	var deadline <-chan time.Time

	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()

		deadline = timer.C
	}

	for {
		select {
		case res, ok := <-c.lines:
			if !ok {
				c.log.Debug("Response stream ended during call", "id", id, "method", method)

				return nil, fmt.Errorf("read response for %q: %w", method, errors.ErrStreamClosed)
			}

			if res.err != nil {
				return nil, fmt.Errorf("read response for %q: %w", method, res.err)
			}

			result, done, err := c.handleLine(id, method, params, res.line)
			if !done {
				continue
			}

			return result, err

		case <-deadline:
			c.broken = true
			c.log.Warn("Call timed out", "id", id, "method", method, "timeout", c.timeout)

			return nil, fmt.Errorf("call %q: %w after %s", method, errors.ErrCallTimeout, c.timeout)

		case <-ctx.Done():
			c.broken = true
			c.log.Debug("Call cancelled", "id", id, "method", method)

			return nil, ctx.Err()
		}
	}
}

// handleLine parses one response line for the outstanding request id.
// done is false when the line was a stale response and the next line
// should be read instead.
func (c *Conn) handleLine(
	id int64,
	method string,
	params map[string]any,
	line []byte,
) (json.RawMessage, bool, error) {
	var resp response

	if err := json.Unmarshal(line, &resp); err != nil {
		c.log.Error("Failed to parse engine response", "method", method, "error", err)

		return nil, true, &errors.ResponseParseError{RawLine: string(line), Err: err}
	}

	if resp.ID != nil && *resp.ID != id {
		c.log.Warn("Discarding response with mismatched id", "want", id, "got", *resp.ID)

		return nil, false, nil
	}

	switch {
	case resp.Result != nil && resp.Error != nil:
		return nil, true, &errors.InvalidResponseError{RawLine: string(line)}

	case resp.Result != nil:
		c.log.Debug("Received result", "id", id, "method", method)

		return resp.Result, true, nil

	case resp.Error != nil:
		c.log.Debug("Received error response", "id", id, "method", method)

		return nil, true, &errors.RPCError{Method: method, Params: params, Payload: resp.Error}

	default:
		return nil, true, &errors.InvalidResponseError{RawLine: string(line)}
	}
}
