package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
)

// Router is a named set of JSON-RPC methods.
type Router interface {
	Name() string
	IsMethodImplemented(method string) bool
	Call(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
}

// HandlerFunc serves a single method.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// MethodRouter is a Router backed by a method table.
type MethodRouter struct {
	name     string
	handlers map[string]HandlerFunc
}

func NewMethodRouter(name string) *MethodRouter {
	return &MethodRouter{name: name, handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for method, replacing any earlier registration.
func (r *MethodRouter) Handle(method string, fn HandlerFunc) *MethodRouter {
	r.handlers[method] = fn
	return r
}

func (r *MethodRouter) Name() string {
	return r.name
}

func (r *MethodRouter) IsMethodImplemented(method string) bool {
	_, ok := r.handlers[method]
	return ok
}

func (r *MethodRouter) Call(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	fn, ok := r.handlers[method]
	if !ok {
		return nil, NewMethodNotFound(method)
	}
	return fn(ctx, params)
}

// Methods lists the registered methods in lexical order.
func (r *MethodRouter) Methods() []string {
	out := make([]string, 0, len(r.handlers))
	for method := range r.handlers {
		out = append(out, method)
	}
	sort.Strings(out)
	return out
}

// DecodeParams decodes positional params into dst. Trailing params may be
// omitted; dst entries for them are left untouched. Params given by name
// are rejected.
func DecodeParams(params json.RawMessage, required int, dst ...interface{}) error {
	params = bytes.TrimSpace(params)
	var list []json.RawMessage
	if len(params) > 0 && !bytes.Equal(params, []byte("null")) {
		if params[0] != '[' {
			return NewInvalidParams("non-array params")
		}
		if err := json.Unmarshal(params, &list); err != nil {
			return NewInvalidParams("invalid params: %v", err)
		}
	}
	if len(list) < required {
		return NewInvalidParams("missing value for required argument %d", len(list))
	}
	if len(list) > len(dst) {
		return NewInvalidParams("too many arguments, want at most %d", len(dst))
	}
	for i, raw := range list {
		if err := json.Unmarshal(raw, dst[i]); err != nil {
			return NewInvalidParams("invalid argument %d: %v", i, err)
		}
	}
	return nil
}
