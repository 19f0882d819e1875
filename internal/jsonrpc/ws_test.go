package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWSHandlerServesRequests(t *testing.T) {
	slow := NewMethodRouter("slow").Handle("slow_method", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return "slow", nil
	})
	d := NewDispatcher()
	d.AddRouter(slow)
	d.AddRouter(web3Router())
	srv := httptest.NewServer(NewWSHandler(d, nil, nil))
	defer srv.Close()

	conn := dialWS(t, srv, nil)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"slow_method"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":2,"method":"eth_chainId"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	results := make(map[string]string)
	for i := 0; i < 2; i++ {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		results[string(resp.ID)] = string(resp.Result.(json.RawMessage))
	}
	if results["1"] != `"slow"` || results["2"] != `"0x3e8"` {
		t.Fatalf("results mismatch: %v", results)
	}
}

func TestWSHandlerNoRouters(t *testing.T) {
	srv := httptest.NewServer(NewWSHandler(NewDispatcher(), nil, nil))
	defer srv.Close()

	conn := dialWS(t, srv, nil)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_chainId"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("expected internal error, got %+v", resp)
	}
}

func TestWSHandlerOrigins(t *testing.T) {
	d := NewDispatcher()
	d.AddRouter(web3Router())
	srv := httptest.NewServer(NewWSHandler(d, nil, []string{"https://wallet.example"}))
	defer srv.Close()

	conn := dialWS(t, srv, http.Header{"Origin": []string{"https://wallet.example"}})
	conn.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func TestOriginValidator(t *testing.T) {
	check := originValidator([]string{"https://wallet.example", "localhost"})
	cases := map[string]bool{
		"":                       true,
		"https://wallet.example": true,
		"HTTPS://WALLET.EXAMPLE": true,
		"http://localhost:3000":  true,
		"https://evil.example":   false,
	}
	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := check(req); got != want {
			t.Fatalf("origin %q: got %v want %v", origin, got, want)
		}
	}

	if !originValidator([]string{"*"})(httptest.NewRequest(http.MethodGet, "/", nil)) {
		t.Fatalf("wildcard should accept everything")
	}
}
