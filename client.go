package valsdk

import (
	"context"
	"encoding/json"
)

// Client manages a validation engine child process and exposes typed
// operations over its JSON-RPC interface.
//
// A client is a two-state machine: NotStarted and Running. Start moves it
// to Running and spawns a fresh engine handle; calling Start while Running
// restarts the engine, so there is always exactly one live engine process
// after Start returns. Stop returns the client to NotStarted and is a
// no-op when already there. Unlike a handle, the client itself is
// reusable: Start may follow Stop any number of times.
//
// Results are opaque JSON produced by the engine and passed through
// verbatim; this package never interprets their shape. Typical use is to
// hand them straight to an HTTP response encoder.
//
// Example usage:
//
//	client := valsdk.NewClient()
//	defer client.Stop()
//
//	err := client.Start(ctx,
//	    valsdk.WithScriptPath("/opt/engine"),
//	    valsdk.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Validate(ctx, "person", person, "kyc")
//	if err != nil {
//	    log.Fatal(err)
//	}
type Client interface {
	// Start spawns a fresh engine handle. If the client is already
	// Running, the previous engine is stopped first. Returns
	// EngineNotFoundError if the executable cannot be located, or
	// ProcessStartError if the OS refuses to spawn it.
	Start(ctx context.Context, opts ...Option) error

	// Stop terminates the engine and returns the client to NotStarted.
	// No-op when already NotStarted. Call exactly once at process
	// teardown so the engine process is not leaked.
	Stop() error

	// Restart stops the engine and starts a fresh one with the options
	// from the most recent Start. Fails with ErrNotStarted if the client
	// was never started.
	Restart(ctx context.Context) error

	// Validate checks one entity against a ruleset.
	Validate(ctx context.Context, entityType string, entityData map[string]any, rulesetName string) (json.RawMessage, error)

	// DiscoverRules reports which rules of a ruleset apply to one entity.
	DiscoverRules(ctx context.Context, entityType string, entityData map[string]any, rulesetName string) (json.RawMessage, error)

	// DiscoverRulesets lists the rulesets the engine currently serves.
	DiscoverRulesets(ctx context.Context) (json.RawMessage, error)

	// BatchValidate checks a batch of entities against a ruleset.
	// idFields names the identifying field per entity type.
	BatchValidate(ctx context.Context, entities []map[string]any, idFields map[string]string, rulesetName string) (json.RawMessage, error)

	// BatchFileValidate checks the entities held in a file reachable by
	// the engine at fileURI against a ruleset.
	BatchFileValidate(ctx context.Context, fileURI string, entityTypes []string, idFields map[string]string, rulesetName string) (json.RawMessage, error)

	// ReloadLogic asks the engine to reload its rule definitions.
	ReloadLogic(ctx context.Context) (json.RawMessage, error)

	// GetCacheAge reports the age of the engine's rule cache.
	GetCacheAge(ctx context.Context) (json.RawMessage, error)
}

// NewClient creates a new engine client in the NotStarted state.
//
// Each client owns its own engine process; create several for independent
// engines (there is no process-wide shared instance).
//
//	client := valsdk.NewClient()
//	err := client.Start(ctx,
//	    valsdk.WithScriptPath("/opt/engine"),
//	    valsdk.WithCallTimeout(30*time.Second),
//	)
func NewClient() Client {
	return newClientImpl()
}
