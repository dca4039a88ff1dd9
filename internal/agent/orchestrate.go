package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
	"k8s.io/klog/v2"
)

const systemPreamble = `You are the Anvyl agent: an assistant that manages Docker containers and
hosts on this node through a fixed set of tools. Use the tools to answer
the user's request; only respond with a final answer once you have
enough information. Do not invent container ids, host ids, or results —
call a tool to find out.

Available tools:
`

// queryErr distinguishes provider-timeout / malformed-JSON failures so
// the HTTP layer can map them to 504/502 per §4.E failure semantics.
type queryErr struct {
	status int
	err    error
}

func (e *queryErr) Error() string { return e.err.Error() }

// runQuery implements the §4.E orchestration loop: build the
// conversation, call the provider, dispatch any requested tool calls
// through the MCP server, and repeat until a final answer or the
// iteration budget is exhausted.
func (s *Service) runQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(s.systemMessage(req.HostID)),
		openai.UserMessage(req.Query),
	}

	tools := make([]openai.ChatCompletionToolParam, 0, len(s.toolDescs))
	for _, t := range s.toolDescs {
		tools = append(tools, toolParam(t))
	}

	var trace []ToolCallTrace

	for iteration := 0; iteration < s.cfg.MaxIterations; iteration++ {
		callCtx, cancel := s.withTimeout(ctx)
		completion, err := s.provider.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
			Model:    openai.F(s.cfg.Model),
			Messages: openai.F(messages),
			Tools:    openai.F(tools),
		})
		cancel()
		if err != nil {
			return nil, classifyProviderError(err)
		}
		if len(completion.Choices) == 0 {
			return nil, &queryErr{status: http.StatusBadGateway, err: errors.New("provider returned no choices")}
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return &QueryResponse{Reply: msg.Content, ToolCalls: trace, Model: s.cfg.Model}, nil
		}

		messages = append(messages, assistantParamFromResponse(msg))

		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}

			result, callErr := s.mcp.callTool(ctx, tc.Function.Name, args)
			if callErr != nil {
				result = fmt.Sprintf("error: %v", callErr)
				klog.Warningf("tool call %s failed: %v", tc.Function.Name, callErr)
			}

			trace = append(trace, ToolCallTrace{Name: tc.Function.Name, Arguments: args, Result: result})
			messages = append(messages, openai.ToolMessage(tc.ID, result))
		}
	}

	return &QueryResponse{
		Reply:     "exceeded tool-call budget",
		ToolCalls: trace,
		Model:     s.cfg.Model,
	}, nil
}

func (s *Service) systemMessage(hostID string) string {
	msg := systemPreamble
	for _, t := range s.toolDescs {
		msg += fmt.Sprintf("- %s: %s\n", t.Name, t.Description)
	}
	if hostID != "" && hostID != s.localHostID {
		msg += fmt.Sprintf("\nNote: the request named host %q, but cross-host dispatch is not implemented in this version; proceed against the local host only and say so if the distinction matters.\n", hostID)
	}
	return msg
}

// assistantParamFromResponse converts the provider's response message
// back into the request-side param type so it can be appended to the
// conversation before the next iteration's call.
func assistantParamFromResponse(msg openai.ChatCompletionMessage) openai.ChatCompletionAssistantMessageParam {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   openai.F(tc.ID),
			Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
			Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      openai.F(tc.Function.Name),
				Arguments: openai.F(tc.Function.Arguments),
			}),
		})
	}
	return openai.ChatCompletionAssistantMessageParam{
		Role:      openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
		ToolCalls: openai.F(toolCalls),
	}
}

// classifyProviderError maps a provider call failure to the §4.E
// failure semantics: a timeout is 504, anything else from the transport
// or a malformed response is 502.
func classifyProviderError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &queryErr{status: http.StatusGatewayTimeout, err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &queryErr{status: http.StatusGatewayTimeout, err: err}
	}
	return &queryErr{status: http.StatusBadGateway, err: err}
}
