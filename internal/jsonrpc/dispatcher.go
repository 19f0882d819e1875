package jsonrpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher validates requests and hands them to the first registered
// router that implements the method.
type Dispatcher struct {
	mu      sync.RWMutex
	routers []Router

	instrumentation Instrumentation
	metrics         *Metrics
	logger          *zap.Logger
}

type Option func(*Dispatcher)

func WithInstrumentation(instrumentation Instrumentation) Option {
	return func(d *Dispatcher) {
		if instrumentation != nil {
			d.instrumentation = instrumentation
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		instrumentation: NopInstrumentation{},
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddRouter appends a router. Earlier routers win when several implement
// the same method.
func (d *Dispatcher) AddRouter(router Router) {
	d.mu.Lock()
	d.routers = append(d.routers, router)
	d.mu.Unlock()
}

// RemoveRouter removes every router with the given name and reports whether
// any was removed.
func (d *Dispatcher) RemoveRouter(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := make([]Router, 0, len(d.routers))
	for _, router := range d.routers {
		if router.Name() != name {
			kept = append(kept, router)
		}
	}
	removed := len(kept) != len(d.routers)
	d.routers = kept
	return removed
}

// RouterNames lists the registered routers in dispatch order.
func (d *Dispatcher) RouterNames() []string {
	routers := d.snapshot()
	names := make([]string, 0, len(routers))
	for _, router := range routers {
		names = append(names, router.Name())
	}
	return names
}

func (d *Dispatcher) snapshot() []Router {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Router, len(d.routers))
	copy(out, d.routers)
	return out
}

// Dispatch serves one request. Client faults are reported in the returned
// response; the error is non-nil only for ErrNoRouters.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if !req.HasID() || req.Method == "" {
		resp := newErrorResponse(req.ID, NewInvalidRequest())
		d.metrics.observe("invalid", resp, 0)
		return resp, nil
	}

	routers := d.snapshot()
	if len(routers) == 0 {
		return nil, ErrNoRouters
	}

	enter := time.Now()
	var resp *Response
	router := findRouter(routers, req.Method)
	if router == nil {
		resp = newErrorResponse(req.ID, NewMethodNotFound(req.Method))
	} else {
		resp = d.call(ctx, router, req)
	}
	exit := time.Now()

	d.observe(ctx, CallInfo{Method: req.Method, Params: req.Params, Enter: enter, Exit: exit})
	d.metrics.observe(req.Method, resp, exit.Sub(enter))
	return resp, nil
}

func findRouter(routers []Router, method string) Router {
	for _, router := range routers {
		if router.IsMethodImplemented(method) {
			return router
		}
	}
	return nil
}

func (d *Dispatcher) call(ctx context.Context, router Router, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("rpc handler crashed",
				zap.String("router", router.Name()),
				zap.String("method", req.Method),
				zap.Any("panic", r),
			)
			resp = newErrorResponse(req.ID, newInternalError(fmt.Sprintf("method handler crashed: %v", r)))
		}
	}()

	result, err := router.Call(ctx, req.Method, req.Params)
	if err != nil {
		d.logger.Debug("rpc call failed",
			zap.String("router", router.Name()),
			zap.String("method", req.Method),
			zap.Error(err),
		)
		return newErrorResponse(req.ID, ToError(err))
	}
	return &Response{ID: req.ID, Result: result}
}

func (d *Dispatcher) observe(ctx context.Context, call CallInfo) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("instrumentation failed", zap.String("method", call.Method), zap.Any("panic", r))
		}
	}()
	d.instrumentation.Observe(ctx, call)
}
