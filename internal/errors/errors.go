// Package errors defines the error taxonomy surfaced by the engine client.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EngineClientError is the base interface for all engine client errors.
type EngineClientError interface {
	error
	IsEngineClientError() bool
}

// Compile-time verification that all error types implement EngineClientError.
var (
	_ EngineClientError = (*EngineNotFoundError)(nil)
	_ EngineClientError = (*ProcessStartError)(nil)
	_ EngineClientError = (*WriteError)(nil)
	_ EngineClientError = (*ResponseParseError)(nil)
	_ EngineClientError = (*InvalidResponseError)(nil)
	_ EngineClientError = (*RPCError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotStarted indicates an operation was invoked before Start (or
	// after Stop). Callers must Start the client before issuing requests.
	ErrNotStarted = errors.New("engine client not started")

	// ErrCallTimeout indicates the engine did not produce a response line
	// within the configured call timeout. The handle is torn down when
	// this occurs; the caller must Start again to recover.
	ErrCallTimeout = errors.New("engine call timeout")

	// ErrStreamClosed indicates the response stream ended before a
	// response line arrived, typically because the engine process exited.
	ErrStreamClosed = errors.New("engine stream closed")
)

// EngineNotFoundError indicates the engine executable was not found.
type EngineNotFoundError struct {
	SearchedPaths []string
}

func (e *EngineNotFoundError) Error() string {
	return fmt.Sprintf("engine executable not found in: %v", e.SearchedPaths)
}

// IsEngineClientError implements EngineClientError.
func (e *EngineNotFoundError) IsEngineClientError() bool { return true }

// ProcessStartError indicates the engine process could not be spawned.
type ProcessStartError struct {
	Path string
	Err  error
}

func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("failed to start engine process %q: %v", e.Path, e.Err)
}

func (e *ProcessStartError) Unwrap() error {
	return e.Err
}

// IsEngineClientError implements EngineClientError.
func (e *ProcessStartError) IsEngineClientError() bool { return true }

// WriteError indicates a request could not be written to the engine,
// usually because the pipe broke when the process died.
type WriteError struct {
	Method string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write request %q to engine: %v", e.Method, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsEngineClientError implements EngineClientError.
func (e *WriteError) IsEngineClientError() bool { return true }

// ResponseParseError indicates a response line was not valid JSON.
// This error preserves the raw line that failed to parse.
type ResponseParseError struct {
	RawLine string
	Err     error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse engine response %q: %v", e.RawLine, e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// IsEngineClientError implements EngineClientError.
func (e *ResponseParseError) IsEngineClientError() bool { return true }

// InvalidResponseError indicates a well-formed JSON response carried
// neither a result nor an error key.
type InvalidResponseError struct {
	RawLine string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("engine response has neither result nor error: %q", e.RawLine)
}

// IsEngineClientError implements EngineClientError.
func (e *InvalidResponseError) IsEngineClientError() bool { return true }

// RPCError indicates the engine reported a failure for a request.
// The payload is the engine's error value, passed through verbatim;
// requests that fail this way are never retried.
type RPCError struct {
	Method  string
	Params  map[string]any
	Payload json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("engine returned error for %q: %s", e.Method, e.Payload)
}

// IsEngineClientError implements EngineClientError.
func (e *RPCError) IsEngineClientError() bool { return true }
