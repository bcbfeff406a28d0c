package config

import (
	"context"
	"io"
)

// Transport defines the interface for engine process communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote connections).
//
// The default implementation is subprocess.EngineTransport which spawns
// the engine as a child process. Custom transports can be injected via
// Options.Transport.
type Transport interface {
	// Start launches the engine and prepares the streams for use.
	// It is called exactly once per handle, before any I/O.
	Start(ctx context.Context) error

	// Writer returns the stream requests are written to (the engine's
	// stdin for process transports).
	Writer() io.Writer

	// Reader returns the stream responses are read from (the engine's
	// stdout for process transports).
	Reader() io.Reader

	// Close shuts the transport down: streams are closed before the
	// underlying process is terminated. Safe to call multiple times and
	// on an already-exited process.
	Close() error
}
