package llm

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// BedrockAgent drives the Cloud tier via AWS Bedrock's Converse API, which
// gives a single request/response shape across Bedrock's model families
// instead of a per-model wire format.
type BedrockAgent struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockAgent wraps an already-configured bedrockruntime.Client (built
// from aws-sdk-go-v2/config.LoadDefaultConfig by the caller).
func NewBedrockAgent(client *bedrockruntime.Client, modelID string) *BedrockAgent {
	return &BedrockAgent{client: client, modelID: modelID}
}

// NewBedrockAgentFromEnv resolves AWS credentials and region from the
// standard environment/config chain and builds the client itself.
func NewBedrockAgentFromEnv(ctx context.Context, region, modelID string) (*BedrockAgent, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, swarmerrors.FailedTo("load AWS config for bedrock agent", err)
	}
	return NewBedrockAgent(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

// Send implements Agent.
func (b *BedrockAgent) Send(ctx context.Context, turn Turn) (Response, error) {
	messages := make([]types.Message, 0, len(turn.History)+1)
	for _, m := range turn.History {
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	messages = append(messages, types.Message{
		Role:    types.ConversationRoleUser,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: turn.Prompt}},
	})

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.modelID),
		Messages: messages,
	}
	if turn.SystemPreamble != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: turn.SystemPreamble}}
	}
	if turn.Temperature != nil {
		temp := float32(*turn.Temperature)
		input.InferenceConfig = &types.InferenceConfiguration{Temperature: aws.Float32(temp)}
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return Response{}, swarmerrors.FailedTo("call Bedrock Converse API for model "+b.modelID, err)
	}

	var text string
	if msgOutput, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msgOutput.Value.Content {
			if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
				text += textBlock.Value
			}
		}
	}

	resp := Response{Text: text}
	if out.Usage != nil {
		resp.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		resp.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}
	return resp, nil
}
