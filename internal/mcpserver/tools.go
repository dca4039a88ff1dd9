package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// tools returns the full catalog of §4.D: one server.ServerTool per
// Infrastructure API operation, each calling through over HTTP.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("list_hosts",
			mcp.WithDescription("List every host known to this Anvyl node"),
		), Handler: s.toolListHosts},

		{Tool: mcp.NewTool("add_host",
			mcp.WithDescription("Register a new non-local host"),
			mcp.WithString("name", mcp.Description("Host name"), mcp.Required()),
			mcp.WithString("ip", mcp.Description("Host IP address"), mcp.Required()),
			mcp.WithString("os", mcp.Description("Host operating system")),
		), Handler: s.toolAddHost},

		{Tool: mcp.NewTool("get_host_metrics",
			mcp.WithDescription("Get CPU/memory/disk/load metrics for a host"),
			mcp.WithString("host_id", mcp.Description("Host id"), mcp.Required()),
		), Handler: s.toolGetHostMetrics},

		{Tool: mcp.NewTool("list_containers",
			mcp.WithDescription("List containers, optionally filtered by host"),
			mcp.WithString("host_id", mcp.Description("Filter by host id")),
			mcp.WithBoolean("all", mcp.Description("Include stopped containers")),
		), Handler: s.toolListContainers},

		{Tool: mcp.NewTool("create_container",
			mcp.WithDescription("Create and start a container on the local host"),
			mcp.WithString("name", mcp.Description("Container name"), mcp.Required()),
			mcp.WithString("image", mcp.Description("Image reference"), mcp.Required()),
			mcp.WithString("host_id", mcp.Description("Host id — must be the local host; accepted for forward compatibility")),
		), Handler: s.toolCreateContainer},

		{Tool: mcp.NewTool("remove_container",
			mcp.WithDescription("Stop and remove a container"),
			mcp.WithString("id", mcp.Description("Container id"), mcp.Required()),
			mcp.WithBoolean("force", mcp.Description("Force removal")),
		), Handler: s.toolRemoveContainer},

		{Tool: mcp.NewTool("get_container_logs",
			mcp.WithDescription("Fetch recent log lines for a container (not streamed)"),
			mcp.WithString("id", mcp.Description("Container id"), mcp.Required()),
			mcp.WithNumber("tail", mcp.Description("Number of lines from the end (default 100)")),
		), Handler: s.toolGetContainerLogs},

		{Tool: mcp.NewTool("exec_container_command",
			mcp.WithDescription("Run a command inside a container and wait for it to finish"),
			mcp.WithString("id", mcp.Description("Container id"), mcp.Required()),
			mcp.WithArray("command", mcp.Description("argv to execute"),
				func(schema map[string]interface{}) {
					schema["type"] = "array"
					schema["items"] = map[string]interface{}{"type": "string"}
				},
				mcp.Required(),
			),
		), Handler: s.toolExecContainerCommand},

		{Tool: mcp.NewTool("get_system_status",
			mcp.WithDescription("Get a snapshot of host/container/engine counts for this node"),
		), Handler: s.toolGetSystemStatus},
	}
}

func (s *Server) toolListHosts(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := s.call(ctx, http.MethodGet, "/hosts", nil)
	return NewTextResult(body, err), nil
}

func (s *Server) toolAddHost(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := map[string]any{
		"name": argString(ctr, "name"),
		"ip":   argString(ctr, "ip"),
		"os":   argString(ctr, "os"),
	}
	body, err := s.call(ctx, http.MethodPost, "/hosts", payload)
	return NewTextResult(body, err), nil
}

func (s *Server) toolGetHostMetrics(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := argString(ctr, "host_id")
	if id == "" {
		return NewTextResult("", fmt.Errorf("host_id is required")), nil
	}
	body, err := s.call(ctx, http.MethodGet, "/hosts/"+id+"/metrics", nil)
	return NewTextResult(body, err), nil
}

func (s *Server) toolListContainers(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/containers"
	query := ""
	if hostID := argString(ctr, "host_id"); hostID != "" {
		query += "host_id=" + hostID
	}
	if argBool(ctr, "all") {
		if query != "" {
			query += "&"
		}
		query += "all=true"
	}
	if query != "" {
		path += "?" + query
	}
	body, err := s.call(ctx, http.MethodGet, path, nil)
	return NewTextResult(body, err), nil
}

func (s *Server) toolCreateContainer(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := map[string]any{
		"name":  argString(ctr, "name"),
		"image": argString(ctr, "image"),
	}
	if hostID := argString(ctr, "host_id"); hostID != "" {
		payload["host_id"] = hostID
	}
	body, err := s.call(ctx, http.MethodPost, "/containers", payload)
	return NewTextResult(body, err), nil
}

func (s *Server) toolRemoveContainer(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := argString(ctr, "id")
	if id == "" {
		return NewTextResult("", fmt.Errorf("id is required")), nil
	}
	path := "/containers/" + id
	if argBool(ctr, "force") {
		path += "?force=true"
	}
	body, err := s.call(ctx, http.MethodDelete, path, nil)
	return NewTextResult(body, err), nil
}

func (s *Server) toolGetContainerLogs(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := argString(ctr, "id")
	if id == "" {
		return NewTextResult("", fmt.Errorf("id is required")), nil
	}
	path := "/containers/" + id + "/logs"
	if tail, ok := ctr.Params.Arguments["tail"].(float64); ok && tail > 0 {
		path += fmt.Sprintf("?tail=%d", int(tail))
	}
	body, err := s.call(ctx, http.MethodGet, path, nil)
	return NewTextResult(body, err), nil
}

func (s *Server) toolExecContainerCommand(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := argString(ctr, "id")
	if id == "" {
		return NewTextResult("", fmt.Errorf("id is required")), nil
	}
	raw, _ := ctr.Params.Arguments["command"].([]any)
	argv := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			argv = append(argv, str)
		}
	}
	payload := map[string]any{"command": argv}
	body, err := s.call(ctx, http.MethodPost, "/containers/"+id+"/exec", payload)
	return NewTextResult(body, err), nil
}

func (s *Server) toolGetSystemStatus(ctx context.Context, ctr mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := s.call(ctx, http.MethodGet, "/system/status", nil)
	return NewTextResult(body, err), nil
}

// call issues one HTTP request to the Infrastructure Service and returns
// the raw response body, classifying non-2xx responses into the error
// taxonomy the MCP error-mapping table (§4.D) consults.
func (s *Server) call(ctx context.Context, method, path string, payload any) (string, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.infraURL+path, reqBody)
	if err != nil {
		return "", err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", infraUnreachableError{cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return string(respBody), nil
	}
	return "", infraStatusError{status: resp.StatusCode, body: string(respBody)}
}

func argString(ctr mcp.CallToolRequest, key string) string {
	v, ok := ctr.Params.Arguments[key].(string)
	if !ok {
		return ""
	}
	return v
}

func argBool(ctr mcp.CallToolRequest, key string) bool {
	v, ok := ctr.Params.Arguments[key].(bool)
	if !ok {
		return false
	}
	return v
}

// NewTextResult mirrors the teacher's mcp.go helper of the same name: it
// wraps a successful body as a text content block, or an error as an
// IsError result, so every tool handler returns via this one path. A
// status error from the Infrastructure Service is annotated with the
// JSON-RPC error code the §4.D table assigns it.
func NewTextResult(text string, err error) *mcp.CallToolResult {
	if err != nil {
		msg := err.Error()
		if statusErr, ok := err.(infraStatusError); ok {
			msg = fmt.Sprintf("[rpc code %d] %s", rpcCodeForStatus(statusErr.status), msg)
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: msg}},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}
