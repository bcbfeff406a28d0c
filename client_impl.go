package valsdk

import (
	"context"
	"encoding/json"

	"github.com/judepayne/validation-service/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

// Start spawns a fresh engine handle.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

// Stop terminates the engine and returns the client to NotStarted.
func (c *clientWrapper) Stop() error {
	return c.impl.Stop()
}

// Restart stops the engine and starts a fresh one with the previous options.
func (c *clientWrapper) Restart(ctx context.Context) error {
	return c.impl.Restart(ctx)
}

// Validate checks one entity against a ruleset.
func (c *clientWrapper) Validate(
	ctx context.Context,
	entityType string,
	entityData map[string]any,
	rulesetName string,
) (json.RawMessage, error) {
	return c.impl.Validate(ctx, entityType, entityData, rulesetName)
}

// DiscoverRules reports which rules of a ruleset apply to one entity.
func (c *clientWrapper) DiscoverRules(
	ctx context.Context,
	entityType string,
	entityData map[string]any,
	rulesetName string,
) (json.RawMessage, error) {
	return c.impl.DiscoverRules(ctx, entityType, entityData, rulesetName)
}

// DiscoverRulesets lists the rulesets the engine currently serves.
func (c *clientWrapper) DiscoverRulesets(ctx context.Context) (json.RawMessage, error) {
	return c.impl.DiscoverRulesets(ctx)
}

// BatchValidate checks a batch of entities against a ruleset.
func (c *clientWrapper) BatchValidate(
	ctx context.Context,
	entities []map[string]any,
	idFields map[string]string,
	rulesetName string,
) (json.RawMessage, error) {
	return c.impl.BatchValidate(ctx, entities, idFields, rulesetName)
}

// BatchFileValidate checks the entities held in a file against a ruleset.
func (c *clientWrapper) BatchFileValidate(
	ctx context.Context,
	fileURI string,
	entityTypes []string,
	idFields map[string]string,
	rulesetName string,
) (json.RawMessage, error) {
	return c.impl.BatchFileValidate(ctx, fileURI, entityTypes, idFields, rulesetName)
}

// ReloadLogic asks the engine to reload its rule definitions.
func (c *clientWrapper) ReloadLogic(ctx context.Context) (json.RawMessage, error) {
	return c.impl.ReloadLogic(ctx)
}

// GetCacheAge reports the age of the engine's rule cache.
func (c *clientWrapper) GetCacheAge(ctx context.Context) (json.RawMessage, error) {
	return c.impl.GetCacheAge(ctx)
}
