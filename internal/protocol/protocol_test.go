package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/judepayne/validation-service/internal/config"
	"github.com/judepayne/validation-service/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pipeTransport is an in-memory Transport backed by io.Pipe pairs.
type pipeTransport struct {
	reader io.Reader
	writer io.Writer
}

func (t *pipeTransport) Start(_ context.Context) error { return nil }
func (t *pipeTransport) Writer() io.Writer             { return t.writer }
func (t *pipeTransport) Reader() io.Reader             { return t.reader }
func (t *pipeTransport) Close() error                  { return nil }

var _ config.Transport = (*pipeTransport)(nil)

// stubEngine runs a scripted engine on the far end of a Conn. The respond
// function receives each parsed request and returns the response lines to
// emit (without trailing newlines).
type stubEngine struct {
	mu       sync.Mutex
	rawLines []string
	requests []Request
}

func (s *stubEngine) recorded() ([]string, []Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.rawLines...), append([]Request(nil), s.requests...)
}

// newStubConn wires a Conn to a stub engine. Returns the conn and the stub
// for inspecting what the engine saw.
func newStubConn(
	t *testing.T,
	timeout time.Duration,
	respond func(req Request) []string,
) (*Conn, *stubEngine) {
	t.Helper()

	requestRead, requestWrite := io.Pipe()
	responseRead, responseWrite := io.Pipe()

	transport := &pipeTransport{reader: responseRead, writer: requestWrite}
	conn := NewConn(testLogger(), transport, timeout)

	stub := &stubEngine{}

	go func() {
		defer responseWrite.Close()

		scanner := bufio.NewScanner(requestRead)
		for scanner.Scan() {
			raw := scanner.Text()

			var req Request
			if err := json.Unmarshal([]byte(raw), &req); err != nil {
				return
			}

			stub.mu.Lock()
			stub.rawLines = append(stub.rawLines, raw)
			stub.requests = append(stub.requests, req)
			stub.mu.Unlock()

			if respond == nil {
				continue
			}

			for _, line := range respond(req) {
				if _, err := io.WriteString(responseWrite, line+"\n"); err != nil {
					return
				}
			}
		}
	}()

	t.Cleanup(func() {
		conn.Close()
		requestWrite.Close()
		requestRead.Close()
		responseWrite.Close()
		responseRead.Close()
	})

	return conn, stub
}

// echoResponder replies {"id":<id>,"result":<params>} to every request.
func echoResponder(req Request) []string {
	params, err := json.Marshal(req.Params)
	if err != nil {
		return []string{`{"error":"marshal"}`}
	}

	return []string{fmt.Sprintf(`{"id":%d,"result":%s}`, req.ID, params)}
}

func TestCall_EchoesParams(t *testing.T) {
	conn, _ := newStubConn(t, 0, echoResponder)

	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		params map[string]any
	}{
		{
			name:   "validate",
			method: "validate",
			params: map[string]any{
				"entity_type":  "person",
				"entity_data":  map[string]any{"name": "Ada", "country": "UK"},
				"ruleset_name": "kyc",
			},
		},
		{
			name:   "discover_rulesets",
			method: "discover_rulesets",
			params: map[string]any{},
		},
		{
			name:   "batch_validate",
			method: "batch_validate",
			params: map[string]any{
				"entities":     []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
				"id_fields":    map[string]any{"person": "id"},
				"ruleset_name": "kyc",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := conn.Call(ctx, tt.method, tt.params)
			require.NoError(t, err)

			expected, err := json.Marshal(tt.params)
			require.NoError(t, err)

			require.JSONEq(t, string(expected), string(result))
		})
	}
}

func TestCall_MonotonicIDs(t *testing.T) {
	conn, stub := newStubConn(t, 0, echoResponder)

	ctx := context.Background()

	const calls = 5

	for i := 0; i < calls; i++ {
		_, err := conn.Call(ctx, "get_cache_age", nil)
		require.NoError(t, err)
	}

	_, requests := stub.recorded()
	require.Len(t, requests, calls)

	for i, req := range requests {
		require.Equal(t, int64(i+1), req.ID)
		require.Equal(t, Version, req.JSONRPC)
	}
}

func TestCall_NilParamsSentAsEmptyObject(t *testing.T) {
	conn, stub := newStubConn(t, 0, echoResponder)

	_, err := conn.Call(context.Background(), "reload_logic", nil)
	require.NoError(t, err)

	rawLines, _ := stub.recorded()
	require.Len(t, rawLines, 1)
	require.Contains(t, rawLines[0], `"params":{}`)
	require.Contains(t, rawLines[0], `"jsonrpc":"2.0"`)
}

func TestCall_ErrorPassthrough(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "object payload", payload: `{"code":-32000,"message":"ruleset not found"}`},
		{name: "string payload", payload: `"boom"`},
		{name: "nested payload", payload: `{"outer":{"inner":{"deep":true}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _ := newStubConn(t, 0, func(req Request) []string {
				return []string{fmt.Sprintf(`{"id":%d,"error":%s}`, req.ID, tt.payload)}
			})

			result, err := conn.Call(context.Background(), "validate", map[string]any{"entity_type": "person"})
			require.Nil(t, result)
			require.Error(t, err)

			var rpcErr *errors.RPCError
			ok := stderrors.As(err, &rpcErr)
			require.True(t, ok, "expected RPCError, got %T: %v", err, err)
			require.Equal(t, "validate", rpcErr.Method)
			require.JSONEq(t, tt.payload, string(rpcErr.Payload))
		})
	}
}

func TestCall_MalformedResponse(t *testing.T) {
	const badLine = "this is not json"

	conn, _ := newStubConn(t, 0, func(Request) []string {
		return []string{badLine}
	})

	_, err := conn.Call(context.Background(), "validate", nil)
	require.Error(t, err)

	var parseErr *errors.ResponseParseError
	ok := stderrors.As(err, &parseErr)
	require.True(t, ok, "expected ResponseParseError, got %T: %v", err, err)
	require.Equal(t, badLine, parseErr.RawLine)
}

func TestCall_MissingResultAndError(t *testing.T) {
	conn, _ := newStubConn(t, 0, func(req Request) []string {
		return []string{fmt.Sprintf(`{"jsonrpc":"2.0","id":%d}`, req.ID)}
	})

	_, err := conn.Call(context.Background(), "validate", nil)
	require.Error(t, err)

	var invalidErr *errors.InvalidResponseError
	ok := stderrors.As(err, &invalidErr)
	require.True(t, ok, "expected InvalidResponseError, got %T: %v", err, err)
	require.Contains(t, invalidErr.RawLine, `"jsonrpc"`)
}

func TestCall_BothResultAndError(t *testing.T) {
	conn, _ := newStubConn(t, 0, func(req Request) []string {
		return []string{fmt.Sprintf(`{"id":%d,"result":1,"error":"no"}`, req.ID)}
	})

	_, err := conn.Call(context.Background(), "validate", nil)
	require.Error(t, err)

	ok := stderrors.As(err, new(*errors.InvalidResponseError))
	require.True(t, ok, "expected InvalidResponseError, got %T: %v", err, err)
}

func TestCall_MismatchedIDSkipped(t *testing.T) {
	conn, _ := newStubConn(t, 0, func(req Request) []string {
		return []string{
			`{"id":999,"result":"stale"}`,
			fmt.Sprintf(`{"id":%d,"result":"fresh"}`, req.ID),
		}
	})

	result, err := conn.Call(context.Background(), "validate", nil)
	require.NoError(t, err)
	require.Equal(t, `"fresh"`, string(result))
}

func TestCall_ResponseWithoutIDAccepted(t *testing.T) {
	conn, _ := newStubConn(t, 0, func(Request) []string {
		return []string{`{"result":{"ok":true}}`}
	})

	result, err := conn.Call(context.Background(), "validate", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(result))
}

// errWriter fails every write, simulating a broken pipe.
type errWriter struct{ err error }

func (w *errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestCall_WriteFailure(t *testing.T) {
	brokenPipe := stderrors.New("broken pipe")

	responseRead, responseWrite := io.Pipe()
	defer responseRead.Close()
	defer responseWrite.Close()

	transport := &pipeTransport{
		reader: responseRead,
		writer: &errWriter{err: brokenPipe},
	}

	conn := NewConn(testLogger(), transport, 0)
	defer conn.Close()

	_, err := conn.Call(context.Background(), "validate", nil)
	require.Error(t, err)

	var writeErr *errors.WriteError
	ok := stderrors.As(err, &writeErr)
	require.True(t, ok, "expected WriteError, got %T: %v", err, err)
	require.Equal(t, "validate", writeErr.Method)
	require.ErrorIs(t, err, brokenPipe)
}

func TestCall_Timeout(t *testing.T) {
	conn, _ := newStubConn(t, 50*time.Millisecond, func(Request) []string {
		return nil // never respond
	})

	start := time.Now()
	_, err := conn.Call(context.Background(), "validate", nil)

	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrCallTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCall_RefusedAfterAbandonedResponse(t *testing.T) {
	conn, _ := newStubConn(t, 30*time.Millisecond, func(Request) []string {
		return nil // never respond
	})

	_, err := conn.Call(context.Background(), "validate", nil)
	require.ErrorIs(t, err, errors.ErrCallTimeout)

	// The first call's response line may still arrive; later calls are
	// refused instead of reading it as their own result.
	_, err = conn.Call(context.Background(), "get_cache_age", nil)
	require.ErrorIs(t, err, errors.ErrStreamClosed)
}

func TestCall_StreamClosed(t *testing.T) {
	requestRead, requestWrite := io.Pipe()
	responseRead, responseWrite := io.Pipe()

	transport := &pipeTransport{reader: responseRead, writer: requestWrite}
	conn := NewConn(testLogger(), transport, 0)
	defer conn.Close()

	// Engine exits without ever replying: drain one request, close stdout.
	go func() {
		scanner := bufio.NewScanner(requestRead)
		scanner.Scan()
		responseWrite.Close()
	}()

	_, err := conn.Call(context.Background(), "validate", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrStreamClosed)
}

func TestCall_ContextCancelled(t *testing.T) {
	conn, _ := newStubConn(t, 0, func(Request) []string {
		return nil // never respond
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := conn.Call(ctx, "validate", nil)
	require.ErrorIs(t, err, context.Canceled)
}
