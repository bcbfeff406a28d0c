package valsdk

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options,
// executes the callback function, and ensures the engine is stopped via
// Stop() when done.
//
// The callback receives a started Client that is ready for use. If the
// callback returns an error, it is returned to the caller. If Stop()
// fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := valsdk.WithClient(ctx, func(c valsdk.Client) error {
//	    result, err := c.DiscoverRulesets(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    // process result...
//	    return nil
//	},
//	    valsdk.WithScriptPath("/opt/engine"),
//	    valsdk.WithLogger(log),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if stopErr := client.Stop(); stopErr != nil {
			log.Warn("failed to stop client", "error", stopErr)
		}
	}()

	return fn(client)
}
