package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// mcpClient is a minimal JSON-RPC 2.0 client over the MCP server's HTTP
// transport (§4.D): the one place in this service, besides an external
// AI client, that speaks the wire protocol from the outside.
type mcpClient struct {
	url        string
	httpClient *http.Client
}

func newMCPClient(url string, httpClient *http.Client) *mcpClient {
	return &mcpClient{url: url, httpClient: httpClient}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

var rpcIDSeq atomic.Int64

func (c *mcpClient) call(ctx context.Context, method string, params any, result any) error {
	id := int(rpcIDSeq.Add(1))
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return anvylerrors.Wrap(anvylerrors.ProviderUnavailable, "mcp server unreachable", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return anvylerrors.Wrap(anvylerrors.Internal, "malformed mcp response", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		return json.Unmarshal(rpcResp.Result, result)
	}
	return nil
}

// toolDescriptor mirrors the tools/list entry shape of §4.D.
type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

func (c *mcpClient) listTools(ctx context.Context) ([]toolDescriptor, error) {
	var result struct {
		Tools []toolDescriptor `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

func (c *mcpClient) callTool(ctx context.Context, name string, arguments map[string]any) (string, error) {
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	params := map[string]any{"name": name, "arguments": arguments}
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return "", err
	}
	text := ""
	for _, c := range result.Content {
		text += c.Text
	}
	if result.IsError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}
