package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// LangChainAgent drives the Worker tier against a local/cheap model
// endpoint, matching the glossary's "cheap+local" Worker tier definition.
// langchaingo's llms.Model abstracts over whichever concrete local backend
// (Ollama, llama.cpp server, etc.) the deployment wires in.
type LangChainAgent struct {
	model llms.Model
}

// NewLangChainAgent wraps any langchaingo llms.Model.
func NewLangChainAgent(model llms.Model) *LangChainAgent {
	return &LangChainAgent{model: model}
}

// Send implements Agent.
func (a *LangChainAgent) Send(ctx context.Context, turn Turn) (Response, error) {
	content := make([]llms.MessageContent, 0, len(turn.History)+2)
	if turn.SystemPreamble != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, turn.SystemPreamble))
	}
	for _, m := range turn.History {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, turn.Prompt))

	opts := []llms.CallOption{}
	if turn.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*turn.Temperature))
	}

	resp, err := a.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return Response{}, swarmerrors.FailedTo("call langchaingo model", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, swarmerrors.FailedTo("call langchaingo model", swarmerrors.ErrParseFailure)
	}
	choice := resp.Choices[0]
	return Response{
		Text:             choice.Content,
		PromptTokens:     intFromGenerationInfo(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: intFromGenerationInfo(choice.GenerationInfo, "CompletionTokens"),
	}, nil
}

func intFromGenerationInfo(info map[string]interface{}, key string) int {
	v, ok := info[key].(int)
	if !ok {
		return 0
	}
	return v
}
