package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"
)

const (
	// MaxBatchSize is the maximum number of requests in a single batch.
	MaxBatchSize = 100
	// DefaultParallelism bounds the goroutines serving one batch.
	DefaultParallelism = 16
)

var errEmptyBatch = errors.New("empty batch")

// ServePayload decodes a raw request body, dispatches it and returns the
// value to write back: a *Response for a single request or a []*Response
// for a batch. Batch members run concurrently and keep their positions.
func ServePayload(ctx context.Context, d *Dispatcher, body []byte, parallelism int) (interface{}, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return serveSingle(ctx, d, body)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return newErrorResponse(nil, NewParseError(err)), nil
	}
	if len(raws) == 0 {
		return newErrorResponse(nil, &Error{Code: CodeInvalidRequest, Message: errEmptyBatch.Error()}), nil
	}
	if len(raws) > MaxBatchSize {
		return newErrorResponse(nil, &Error{Code: CodeInvalidRequest, Message: "batch too large", Data: MaxBatchSize}), nil
	}
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}

	responses := make([]*Response, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				responses[i] = newErrorResponse(nil, NewInvalidRequest())
				return nil
			}
			resp, err := d.Dispatch(gctx, &req)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

func serveSingle(ctx context.Context, d *Dispatcher, body []byte) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || len(body) == 0 {
			return newErrorResponse(nil, NewParseError(err)), nil
		}
		return newErrorResponse(nil, NewInvalidRequest()), nil
	}
	return d.Dispatch(ctx, &req)
}
