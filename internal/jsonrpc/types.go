// Package jsonrpc implements the JSON-RPC 2.0 envelope, the router registry
// and the HTTP and WebSocket transports of the adapter.
package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only protocol version the adapter speaks.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request. ID and Params are kept raw so they can
// be echoed and decoded by the handler that claims the method.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// HasID reports whether the request carries a non-null id.
func (r *Request) HasID() bool {
	id := bytes.TrimSpace(r.ID)
	return len(id) > 0 && !bytes.Equal(id, []byte("null"))
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is
// written on the wire.
type Response struct {
	ID     json.RawMessage
	Result interface{}
	Error  *Error
}

type successResponse struct {
	ID      json.RawMessage `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result"`
}

type errorResponse struct {
	ID      json.RawMessage `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Error   *Error          `json:"error"`
}

// MarshalJSON writes the id, jsonrpc and result/error members in that order.
// A missing id is written as null.
func (r *Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(bytes.TrimSpace(id)) == 0 {
		id = nil
	}
	if r.Error != nil {
		return json.Marshal(errorResponse{ID: id, JSONRPC: Version, Error: r.Error})
	}
	return json.Marshal(successResponse{ID: id, JSONRPC: Version, Result: r.Result})
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Error = raw.Error
	r.Result = nil
	if raw.Result != nil {
		r.Result = raw.Result
	}
	return nil
}

func newErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{ID: id, Error: err}
}
