package agent

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// newProviderClient builds an OpenAI-compatible chat-completions client
// pointed at cfg.ProviderURL, so any compatible endpoint (Ollama, vLLM,
// the real OpenAI API) can be targeted by configuration alone.
func newProviderClient(baseURL string) *openai.Client {
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	client := openai.NewClient(opts...)
	return &client
}

// toolParam converts one MCP tool descriptor into the function-calling
// schema the provider's chat-completions endpoint expects.
func toolParam(t toolDescriptor) openai.ChatCompletionToolParam {
	schema := t.InputSchema
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return openai.ChatCompletionToolParam{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name:        openai.F(t.Name),
			Description: openai.F(t.Description),
			Parameters:  openai.F(openai.FunctionParameters(schema)),
		}),
	}
}
