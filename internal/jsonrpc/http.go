package jsonrpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultBodyLimit = 5 * 1024 * 1024
	contentType      = "application/json"
	tracerName       = "evmAdapter/jsonrpc"
)

// HTTPHandler serves JSON-RPC over HTTP POST.
type HTTPHandler struct {
	dispatcher  *Dispatcher
	logger      *zap.Logger
	tracer      trace.Tracer
	bodyLimit   int64
	parallelism int
}

func NewHTTPHandler(dispatcher *Dispatcher, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		dispatcher:  dispatcher,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		bodyLimit:   defaultBodyLimit,
		parallelism: DefaultParallelism,
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Empty GETs are health checks.
	if r.Method == http.MethodGet && r.ContentLength == 0 && r.URL.RawQuery == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.ContentLength > h.bodyLimit {
		http.Error(w, "content length too large", http.StatusRequestEntityTooLarge)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.bodyLimit+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.bodyLimit {
		http.Error(w, "content length too large", http.StatusRequestEntityTooLarge)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "jsonrpc.http",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer.addr", r.RemoteAddr)),
	)
	defer span.End()

	out, err := ServePayload(ctx, h.dispatcher, body, h.parallelism)
	if err != nil {
		if errors.Is(err, ErrNoRouters) {
			h.logger.Error("transport method called without a router configured")
		} else {
			h.logger.Error("serve request", zap.Error(err))
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

// WithCORS wraps h with a CORS policy allowing the given origins. An empty
// list disables CORS handling.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(h)
}
