// Package config provides configuration types for the validation engine SDK.
package config

import (
	"log/slog"
	"time"
)

// DefaultExecutable is the interpreter used to launch the engine when no
// explicit executable is configured.
const DefaultExecutable = "python3"

// Options holds the configuration for a single Start of the engine client.
// A copy is taken when the client starts; later mutation has no effect on
// the running handle.
type Options struct {
	// Executable is the engine launch command. Defaults to DefaultExecutable.
	// A bare name is resolved via PATH and common install directories; a
	// value containing a path separator is used as-is.
	Executable string

	// ScriptPath is the engine's working directory. Required.
	ScriptPath string

	// Debug appends the --debug launch argument to the engine invocation.
	Debug bool

	// CallTimeout bounds the blocking read for each RPC call. Zero means
	// block until a response line arrives or the stream closes.
	CallTimeout time.Duration

	// Logger receives operational logging. If nil, logging is disabled.
	Logger *slog.Logger

	// Transport overrides the default subprocess transport. Used for
	// testing and mocking; leave nil in production.
	Transport Transport
}
