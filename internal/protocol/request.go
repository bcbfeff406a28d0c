package protocol

import "encoding/json"

// Request is a JSON-RPC 2.0 request sent to the engine.
//
// Wire format, one UTF-8 line per request:
//
//	{"jsonrpc":"2.0","id":1,"method":"validate","params":{...}}
//
// Ids are integers, unique and strictly increasing within a connection's
// lifetime, starting at 1.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// Version is the JSON-RPC protocol version spoken with the engine.
const Version = "2.0"

// response is a parsed engine response line. A valid response carries
// exactly one of Result or Error; the id is optional and, when present,
// is checked against the outstanding request.
type response struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}
