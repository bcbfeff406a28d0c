package valsdk

import "github.com/judepayne/validation-service/internal/errors"

// Re-export error types from internal package

// EngineNotFoundError indicates the engine executable was not found.
type EngineNotFoundError = errors.EngineNotFoundError

// ProcessStartError indicates the engine process could not be spawned.
type ProcessStartError = errors.ProcessStartError

// WriteError indicates a request could not be written to the engine.
type WriteError = errors.WriteError

// ResponseParseError indicates a response line was not valid JSON.
type ResponseParseError = errors.ResponseParseError

// InvalidResponseError indicates a response carried neither result nor error.
type InvalidResponseError = errors.InvalidResponseError

// RPCError indicates the engine reported a failure, payload verbatim.
type RPCError = errors.RPCError

// EngineClientError is the base interface for all engine client errors.
type EngineClientError = errors.EngineClientError

// Re-export sentinel errors from internal package.
var (
	// ErrNotStarted indicates an operation was invoked before Start (or
	// after Stop).
	ErrNotStarted = errors.ErrNotStarted

	// ErrCallTimeout indicates the engine did not respond within the
	// configured call timeout; the handle is torn down when this occurs.
	ErrCallTimeout = errors.ErrCallTimeout

	// ErrStreamClosed indicates the response stream ended before a
	// response line arrived, typically because the engine process exited.
	ErrStreamClosed = errors.ErrStreamClosed
)
