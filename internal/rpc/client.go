package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"chainlens/internal/metrics"
)

// Client is a JSON-RPC 2.0 client for a steemd/golosd node's HTTP endpoint.
// All application methods go through the condenser-style "call" wrapper:
// params are [api, method, args].
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient creates a client for the given node endpoint.
// A nil httpClient falls back to a default with a 30s total timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes api.method(args...) on the node and decodes the result into out.
func (c *Client) Call(ctx context.Context, api, method string, args []any, out any) error {
	metrics.RPCCalls.WithLabelValues(method).Inc()

	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "call",
		Params:  []any{api, method, args},
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("call %s.%s: %w", api, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("call %s.%s: unexpected status %d", api, method, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("read %s.%s response: %w", api, method, err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("decode %s.%s response: %w", api, method, err)
	}
	if rpcResp.Error != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return fmt.Errorf("call %s.%s: %w", api, method, rpcResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", api, method, err)
	}
	return nil
}
