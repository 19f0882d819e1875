package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation observes dispatched calls. Implementations must not block
// and must not panic; the dispatcher recovers if they do.
type Instrumentation interface {
	Observe(ctx context.Context, call CallInfo)
}

// CallInfo describes one dispatched call.
type CallInfo struct {
	Method string
	Params json.RawMessage
	Enter  time.Time
	Exit   time.Time
}

func (c CallInfo) Elapsed() time.Duration {
	return c.Exit.Sub(c.Enter)
}

// NopInstrumentation records nothing.
type NopInstrumentation struct{}

func (NopInstrumentation) Observe(context.Context, CallInfo) {}

// SpanInstrumentation tags the span active in the request context with the
// call's method, params and timings.
type SpanInstrumentation struct{}

func (SpanInstrumentation) Observe(ctx context.Context, call CallInfo) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("body.method", call.Method),
		attribute.String("body.params", spanParams(call.Params)),
		attribute.Int64("enterTime", call.Enter.UnixMilli()),
		attribute.Int64("exitTime", call.Exit.UnixMilli()),
		attribute.Float64("elapsedTime", float64(call.Elapsed().Microseconds())/1000),
	)
}

// spanParams renders params for a span tag. Positional params are keyed by
// their index so the tag reads as an object.
func spanParams(params json.RawMessage) string {
	params = bytes.TrimSpace(params)
	if len(params) == 0 {
		return ""
	}
	var list []json.RawMessage
	if params[0] != '[' || json.Unmarshal(params, &list) != nil {
		return string(params)
	}
	keyed := make(map[string]json.RawMessage, len(list))
	for i, value := range list {
		keyed[strconv.Itoa(i)] = value
	}
	out, err := json.Marshal(keyed)
	if err != nil {
		return string(params)
	}
	return string(out)
}
