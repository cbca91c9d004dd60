package a2a

import (
	"encoding/json"
	"fmt"
	"io"
)

// MethodSendMessage is the one JSON-RPC method a contributor agent answers.
const MethodSendMessage = "message/send"

// JSON-RPC 2.0 error codes used by the handler.
const (
	CodeParse          = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// envelope carries both directions of a call. Requests set Method and
// Params; responses set Result or Error.
type envelope struct {
	Version string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. On the client side Method names the
// call that failed.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Method  string          `json:"-"`
}

func (e *Error) Error() string {
	s := fmt.Sprintf("a2a: %s failed (%d): %s", e.Method, e.Code, e.Message)
	if len(e.Data) > 0 {
		s += " " + string(e.Data)
	}
	return s
}

func encodeCall(id int64, method string, params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("a2a: encode %s params: %w", method, err)
	}
	return json.Marshal(envelope{Version: "2.0", ID: id, Method: method, Params: raw})
}

// decodeReply unpacks a response into result, returning the remote error
// if the agent sent one.
func decodeReply(data []byte, method string, result any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("a2a: %s: decode response: %w", method, err)
	}
	if env.Error != nil {
		env.Error.Method = method
		return env.Error
	}
	if len(env.Result) == 0 {
		return fmt.Errorf("a2a: %s: empty result", method)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("a2a: %s: decode result: %w", method, err)
	}
	return nil
}

func writeResult(w io.Writer, id any, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		writeError(w, id, CodeInternal, "encode result: "+err.Error())
		return
	}
	_ = json.NewEncoder(w).Encode(envelope{Version: "2.0", ID: id, Result: raw})
}

func writeError(w io.Writer, id any, code int, msg string) {
	_ = json.NewEncoder(w).Encode(envelope{Version: "2.0", ID: id, Error: &Error{Code: code, Message: msg}})
}
