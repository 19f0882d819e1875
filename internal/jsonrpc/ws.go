package jsonrpc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	wsReadBuffer       = 1024
	wsWriteBuffer      = 1024
	wsWriteTimeout     = 10 * time.Second
	wsDefaultReadLimit = 32 * 1024 * 1024
)

// WSHandler serves JSON-RPC over WebSocket. Each message is dispatched in
// its own goroutine; responses are written as they complete.
type WSHandler struct {
	dispatcher  *Dispatcher
	logger      *zap.Logger
	tracer      trace.Tracer
	upgrader    websocket.Upgrader
	parallelism int
}

func NewWSHandler(dispatcher *Dispatcher, logger *zap.Logger, allowedOrigins []string) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsReadBuffer,
			WriteBufferSize: wsWriteBuffer,
			CheckOrigin:     originValidator(allowedOrigins),
		},
		parallelism: DefaultParallelism,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(wsDefaultReadLimit)

	// Cancelled when the peer goes away so in-flight chain queries are
	// abandoned.
	ctx, cancel := context.WithCancel(r.Context())
	session := &wsSession{conn: conn}
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			}
			return
		}

		wg.Add(1)
		go func(data []byte) {
			defer wg.Done()
			h.serveMessage(ctx, session, data)
		}(data)
	}
}

func (h *WSHandler) serveMessage(ctx context.Context, session *wsSession, data []byte) {
	ctx, span := h.tracer.Start(ctx, "jsonrpc.ws", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	out, err := ServePayload(ctx, h.dispatcher, data, h.parallelism)
	if err != nil {
		if errors.Is(err, ErrNoRouters) {
			h.logger.Error("transport method called without a router configured")
		} else {
			h.logger.Error("serve request", zap.Error(err))
		}
		out = newErrorResponse(nil, newInternalError(err.Error()))
	}
	if ctx.Err() != nil {
		return
	}
	if err := session.write(out); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

// wsSession serializes writes; gorilla connections allow one concurrent
// writer.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// originValidator accepts any origin when the list is empty or contains
// "*". Requests without an Origin header come from non-browser clients and
// are always accepted.
func originValidator(allowedOrigins []string) func(*http.Request) bool {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := allowed[strings.ToLower(u.Hostname())]
		return ok
	}
}
