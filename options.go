package valsdk

import (
	"log/slog"
	"time"

	"github.com/judepayne/validation-service/internal/config"
)

// Options holds the configuration for a single Start of the engine.
// A copy is taken per handle; the configuration is immutable once the
// engine is running.
type Options = config.Options

// Transport is the interface for engine communication. Implement this to
// provide custom transports for testing or alternative communication
// methods; inject via WithTransport.
type Transport = config.Transport

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithExecutable sets the engine launch command.
// Defaults to "python3". A bare name is resolved via PATH and common
// install directories; a value containing a path separator is used as-is.
func WithExecutable(executable string) Option {
	return func(o *Options) {
		o.Executable = executable
	}
}

// WithScriptPath sets the engine's working directory. Required.
func WithScriptPath(path string) Option {
	return func(o *Options) {
		o.ScriptPath = path
	}
}

// WithDebug appends the --debug launch argument to the engine invocation.
func WithDebug() Option {
	return func(o *Options) {
		o.Debug = true
	}
}

// WithCallTimeout bounds the blocking read of each call. When the
// deadline expires the call fails with ErrCallTimeout and the engine
// process is terminated. Zero (the default) blocks until a response line
// arrives or the stream closes.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = timeout
	}
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTransport injects a custom transport instead of spawning the engine
// subprocess. Intended for testing and mocking.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}
