// Package valsdk provides a Go client for a rule-evaluation engine that
// runs as a child process and speaks JSON-RPC 2.0 over its stdio.
//
// The package owns the hard part of talking to such an engine: spawning
// and terminating the process, framing newline-delimited JSON-RPC
// requests and responses over its pipes, correlating responses with
// requests, and surfacing a typed error taxonomy when the process or the
// protocol misbehaves. Rule evaluation itself happens inside the engine;
// results come back as opaque JSON that this package never interprets.
//
// # Basic Usage
//
// Create a client, start the engine, and issue calls:
//
//	ctx := context.Background()
//
//	client := valsdk.NewClient()
//	defer client.Stop()
//
//	err := client.Start(ctx,
//	    valsdk.WithScriptPath("/opt/engine"),
//	    valsdk.WithCallTimeout(30*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Validate(ctx, "person", map[string]any{
//	    "name": "Ada",
//	}, "kyc")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// result is the engine's validation report, verbatim
//
// Or use WithClient for automatic lifecycle management:
//
//	err := valsdk.WithClient(ctx, func(c valsdk.Client) error {
//	    result, err := c.DiscoverRulesets(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(string(result))
//	    return nil
//	}, valsdk.WithScriptPath("/opt/engine"))
//
// # Concurrency
//
// The engine protocol is strictly synchronous: one request is outstanding
// at a time. The client serializes concurrent callers internally, so it
// is safe to share one client across goroutines; callers queue rather
// than interleave on the engine's pipes. A call blocks until its response
// line arrives, the configured call timeout expires, or Stop closes the
// streams.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	err := client.Start(ctx,
//	    valsdk.WithScriptPath("/opt/engine"),
//	    valsdk.WithLogger(logger),
//	)
//
// # Error Handling
//
// The package provides typed errors for different failure scenarios:
//
//	result, err := client.Validate(ctx, "person", person, "kyc")
//	if err != nil {
//	    if rpcErr, ok := errors.AsType[*valsdk.RPCError](err); ok {
//	        // engine rejected the request; payload is its error verbatim
//	        log.Printf("engine error: %s", rpcErr.Payload)
//	    }
//	    if errors.Is(err, valsdk.ErrNotStarted) {
//	        // Start was never called, or Stop already ran
//	    }
//	}
//
// Failures are never retried internally. A write, parse, or timeout
// failure can leave the engine handle unusable; recover with Stop
// followed by Start (the client tears the handle down itself after a
// timeout or cancellation).
package valsdk
