package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// AnthropicAgent drives the Integrator tier and the Adversary/Council
// reviewer via the Anthropic Messages API.
type AnthropicAgent struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	hook      ToolHook
}

// NewAnthropicAgent builds an agent for the given model id, reading API
// credentials the SDK's default option chain resolves (ANTHROPIC_API_KEY).
func NewAnthropicAgent(apiKey string, model anthropic.Model, maxTokens int64, hook ToolHook) *AnthropicAgent {
	if hook == nil {
		hook = NopToolHook{}
	}
	return &AnthropicAgent{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		hook:      hook,
	}
}

// Send implements Agent.
func (a *AnthropicAgent) Send(ctx context.Context, turn Turn) (Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(turn.History)+1)
	for _, m := range turn.History {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Prompt)))

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  messages,
	}
	if turn.SystemPreamble != "" {
		params.System = []anthropic.TextBlockParam{{Text: turn.SystemPreamble}}
	}
	if turn.Temperature != nil {
		params.Temperature = anthropic.Float(*turn.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, swarmerrors.FailedTo("call Anthropic Messages API", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return Response{
		Text:             text,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}, nil
}
