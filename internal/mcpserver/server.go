// Package mcpserver implements the MCP Server (§4.D): it exposes the
// Infrastructure Service's operations as a Model Context Protocol
// endpoint for external AI clients and the Agent Service. Its Server
// type is grounded on the teacher's pkg/mcp.Server: one *server.MCPServer,
// constructed once, wrapping every tool/resource/prompt registration.
package mcpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/version"
)

const protocolVersion = "2024-11-05"

// Server wraps the mcp-go server and an HTTP client dialing the
// Infrastructure Service for every tool and live-resource call.
type Server struct {
	mcp        *server.MCPServer
	infraURL   string
	httpClient *http.Client
	toolCount  int
}

// New constructs a Server and registers its full tool/resource/prompt
// catalog. infraURL is the Infrastructure Service's base address
// (ANVYL_INFRA_URL).
func New(infraURL string) *Server {
	s := &Server{
		infraURL:   infraURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	s.mcp = server.NewMCPServer(
		version.BinaryName,
		version.Version,
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	tools := s.tools()
	s.toolCount = len(tools)
	s.mcp.SetTools(tools...)
	s.registerResources()
	s.registerPrompts()

	klog.V(0).Infof("mcp server initialized, %d tools registered, infra at %s", s.toolCount, infraURL)
	return s
}

// ServeStdio serves the MCP protocol over stdio, for single-client use.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HandleHTTP handles one JSON-RPC request framed as an HTTP POST body
// (§4.D HTTP transport on /mcp), returning the JSON-RPC response.
func (s *Server) HandleHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp := s.mcp.HandleMessage(r.Context(), body)
	if resp == nil {
		// A notification (no id) yields no JSON-RPC response.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		klog.Errorf("write mcp response: %v", err)
	}
}
