package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerPrompts adds the two static prompt templates. Unlike the
// resources and tools above, these are new relative to the teacher (whose
// only prompt-shaped tool, promptGenerator, is a tool rather than a
// protocol prompt) but follow the same literal-content, closure-handler
// shape.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("diagnose-container",
		mcp.WithPromptDescription("Investigate why a container is unhealthy or not running"),
		mcp.WithArgument("container_id", mcp.ArgumentDescription("Internal id or docker_id of the container"), mcp.RequiredArgument()),
	), s.promptDiagnoseContainer)

	s.mcp.AddPrompt(mcp.NewPrompt("summarize-system-status",
		mcp.WithPromptDescription("Summarize the current host and container state of this node"),
	), s.promptSummarizeSystemStatus)
}

func (s *Server) promptDiagnoseContainer(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	containerID := req.Params.Arguments["container_id"]
	text := fmt.Sprintf(`Container %s appears unhealthy. Use get_container_logs and get_system_status to
investigate, then exec_container_command if you need to inspect running
processes inside it. Summarize the likely cause and the one next action
to take.`, containerID)

	return &mcp.GetPromptResult{
		Description: "Diagnose a container",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}

func (s *Server) promptSummarizeSystemStatus(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := `Call get_system_status and list_containers, then write a short summary of
this node's health: host count, running/stopped/total containers, and
whether the engine is reachable. Flag anything that looks abnormal.`

	return &mcp.GetPromptResult{
		Description: "Summarize system status",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}, nil
}
