// Package client implements the lifecycle manager that owns the single
// active engine handle.
//
// The client is a two-state machine: NotStarted and Running. Start while
// Running is an implicit restart, Stop while NotStarted is a no-op, and
// every high-level operation resolves the active handle first and fails
// with ErrNotStarted when there is none. Because the protocol permits
// only one outstanding request per handle, concurrent callers are
// serialized on a call lock.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/judepayne/validation-service/internal/config"
	"github.com/judepayne/validation-service/internal/errors"
	"github.com/judepayne/validation-service/internal/protocol"
	"github.com/judepayne/validation-service/internal/subprocess"
)

// Engine method catalogue. Params keys are fixed per method; result
// shapes belong to the engine and are passed through opaque.
const (
	methodValidate          = "validate"
	methodDiscoverRules     = "discover_rules"
	methodDiscoverRulesets  = "discover_rulesets"
	methodBatchValidate     = "batch_validate"
	methodBatchFileValidate = "batch_file_validate"
	methodReloadLogic       = "reload_logic"
	methodGetCacheAge       = "get_cache_age"
)

// Client owns at most one active engine handle and exposes the typed
// high-level operations. Safe for concurrent use: lifecycle state and
// in-flight calls are guarded by separate locks so a blocked call never
// prevents Stop from tearing the handle down.
type Client struct {
	log *slog.Logger

	// mu guards lifecycle state; callMu serializes calls so only one
	// request is outstanding on the handle at a time.
	mu     sync.Mutex
	callMu sync.Mutex

	options   *config.Options
	transport config.Transport
	conn      *protocol.Conn
}

// New creates a new client in the NotStarted state.
func New() *Client {
	return &Client{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Start spawns a fresh engine handle from the given options.
//
// If a handle is already running it is stopped first, so Start always
// leaves exactly one live engine process behind. Returns
// EngineNotFoundError or ProcessStartError when spawning fails.
func (c *Client) Start(ctx context.Context, options *config.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.log.Info("Client already running, restarting")

		if err := c.stopLocked(); err != nil {
			c.log.Warn("Failed to stop previous handle", "error", err)
		}
	}

	if options == nil {
		options = &config.Options{}
	}

	// The handle keeps its own copy; later mutation of the caller's
	// struct has no effect on it.
	optionsCopy := *options
	options = &optionsCopy

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Handle id is for log correlation only; the wire protocol uses the
	// connection's integer request ids.
	handleID := ulid.Make().String()

	c.log = log.With("component", "client", "handle_id", handleID)

	transport := options.Transport
	if transport != nil {
		c.log.Debug("Using injected custom transport")
	} else {
		transport = subprocess.New(c.log, options)
	}

	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	c.options = options
	c.transport = transport
	c.conn = protocol.NewConn(c.log, transport, options.CallTimeout)

	c.log.Info("Client started")

	return nil
}

// Stop terminates the active handle and returns the client to NotStarted.
// Streams are closed before the process is terminated, which aborts any
// caller blocked on a response. No-op when already NotStarted. The owner
// must arrange for Stop to run once at process teardown so the engine
// process is not leaked.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopLocked()
}

// stopLocked tears down the active handle. Caller must hold c.mu.
func (c *Client) stopLocked() error {
	if c.conn == nil {
		return nil
	}

	c.log.Info("Stopping client")

	c.conn.Close()
	err := c.transport.Close()

	c.conn = nil
	c.transport = nil

	c.log.Info("Client stopped")

	return err
}

// Restart stops the active handle and starts a fresh one with the options
// from the most recent Start. Fails with ErrNotStarted if the client was
// never started.
func (c *Client) Restart(ctx context.Context) error {
	c.mu.Lock()
	options := c.options
	c.mu.Unlock()

	if options == nil {
		return errors.ErrNotStarted
	}

	return c.Start(ctx, options)
}

// call resolves the active handle and performs one serialized RPC call.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, errors.ErrNotStarted
	}

	// One outstanding request per handle: concurrent callers queue here.
	c.callMu.Lock()
	result, err := conn.Call(ctx, method, params)
	c.callMu.Unlock()

	if err != nil && abandonsResponse(err) {
		// The abandoned request's response line may still arrive, so the
		// handle cannot carry further calls. Tear it down unless a
		// concurrent restart already replaced it.
		c.mu.Lock()

		if c.conn == conn {
			c.log.Warn("Tearing down handle after aborted call", "method", method, "error", err)

			if stopErr := c.stopLocked(); stopErr != nil {
				c.log.Warn("Failed to stop handle after aborted call", "error", stopErr)
			}
		}

		c.mu.Unlock()
	}

	return result, err
}

// abandonsResponse reports whether the call ended without consuming its
// response line.
func abandonsResponse(err error) bool {
	return stderrors.Is(err, errors.ErrCallTimeout) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded)
}

// Validate checks one entity against a ruleset. The result is the
// engine's validation report, passed through verbatim.
func (c *Client) Validate(
	ctx context.Context,
	entityType string,
	entityData map[string]any,
	rulesetName string,
) (json.RawMessage, error) {
	return c.call(ctx, methodValidate, map[string]any{
		"entity_type":  entityType,
		"entity_data":  entityData,
		"ruleset_name": rulesetName,
	})
}

// DiscoverRules reports which rules of a ruleset apply to one entity.
func (c *Client) DiscoverRules(
	ctx context.Context,
	entityType string,
	entityData map[string]any,
	rulesetName string,
) (json.RawMessage, error) {
	return c.call(ctx, methodDiscoverRules, map[string]any{
		"entity_type":  entityType,
		"entity_data":  entityData,
		"ruleset_name": rulesetName,
	})
}

// DiscoverRulesets lists the rulesets the engine currently serves.
func (c *Client) DiscoverRulesets(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, methodDiscoverRulesets, nil)
}

// BatchValidate checks a batch of entities against a ruleset. idFields
// names the identifying field per entity type, used by the engine to key
// its per-entity results.
func (c *Client) BatchValidate(
	ctx context.Context,
	entities []map[string]any,
	idFields map[string]string,
	rulesetName string,
) (json.RawMessage, error) {
	return c.call(ctx, methodBatchValidate, map[string]any{
		"entities":     entities,
		"id_fields":    idFields,
		"ruleset_name": rulesetName,
	})
}

// BatchFileValidate checks the entities held in a file the engine can
// reach at fileURI against a ruleset.
func (c *Client) BatchFileValidate(
	ctx context.Context,
	fileURI string,
	entityTypes []string,
	idFields map[string]string,
	rulesetName string,
) (json.RawMessage, error) {
	return c.call(ctx, methodBatchFileValidate, map[string]any{
		"file_uri":     fileURI,
		"entity_types": entityTypes,
		"id_fields":    idFields,
		"ruleset_name": rulesetName,
	})
}

// ReloadLogic asks the engine to reload its rule definitions.
func (c *Client) ReloadLogic(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, methodReloadLogic, nil)
}

// GetCacheAge reports the age of the engine's rule cache.
func (c *Client) GetCacheAge(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, methodGetCacheAge, nil)
}
