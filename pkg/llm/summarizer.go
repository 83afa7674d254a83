package llm

import (
	"context"
	"strings"

	"github.com/jordigilh/swarmcore/pkg/memory"
	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// AgentSummarizer adapts any Agent into pkg/memory's Summarizer contract,
// so the compactor's oracle is whichever tier's agent the caller wires in
// (typically a cheap Worker-tier model is enough for summarization).
type AgentSummarizer struct {
	agent     Agent
	estimator memory.Estimator
}

// NewAgentSummarizer builds a Summarizer backed by agent, estimating the
// resulting summary's token count with estimator.
func NewAgentSummarizer(agent Agent, estimator memory.Estimator) *AgentSummarizer {
	return &AgentSummarizer{agent: agent, estimator: estimator}
}

// Summarize implements memory.Summarizer.
func (s *AgentSummarizer) Summarize(ctx context.Context, req memory.SummaryRequest) (memory.SummaryResponse, error) {
	var b strings.Builder
	for _, e := range req.Entries {
		b.WriteString(string(e.Author))
		b.WriteString(": ")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}

	turn := Turn{
		SystemPreamble: "Summarize the following conversation history into a concise running summary, preserving decisions and unresolved issues: " + req.SessionContext,
		Prompt:         b.String(),
	}
	resp, err := s.agent.Send(ctx, turn)
	if err != nil {
		return memory.SummaryResponse{}, swarmerrors.FailedTo("summarize memory entries", err)
	}

	tokens := s.estimator.Estimate(resp.Text)
	return memory.SummaryResponse{Summary: resp.Text, SummaryTokens: tokens}, nil
}
