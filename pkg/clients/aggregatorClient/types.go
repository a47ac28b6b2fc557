package aggregatorClient

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	jsonRpcVersion = "2.0"

	MethodSendTask = "sendTask"
)

// ErrUnknownResponse is returned when the aggregator answers with neither a
// result nor an error object.
var ErrUnknownResponse = errors.New("unknown response")

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Result is kept raw so
// the presence of the field can be told apart from its value.
type JSONRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int64       `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (r *JSONRPCResponse) hasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// RpcError is a JSON-RPC error returned by the aggregator, or an HTTP error
// status when the body carried no JSON-RPC envelope.
type RpcError struct {
	Code    int64
	Message string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC Error %d: %s", e.Code, e.Message)
}
