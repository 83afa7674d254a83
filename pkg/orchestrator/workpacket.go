package orchestrator

import (
	"fmt"
	"strings"

	"github.com/jordigilh/swarmcore/pkg/llm"
	"github.com/jordigilh/swarmcore/pkg/shared/ids"
	"github.com/jordigilh/swarmcore/pkg/skills"
	"github.com/jordigilh/swarmcore/pkg/traces"
)

// FileContextSlice is one ordered file-context entry a WorkPacket carries:
// the file's path, the line range under consideration, and its content at
// that range.
type FileContextSlice struct {
	Path      string
	StartLine int
	EndLine   int
	Content   string
}

// WorkPacket is the immutable bundle the orchestrator assembles once per
// iteration and hands to an llm.Agent, per spec.md §3: task text, ordered
// file-context slices, key symbols, constraints, retrieved skill hints,
// retrieved experience traces, a compacted memory summary, and the last
// failure signals. Once returned by AssembleWorkPacket it must not be
// mutated — callers that need a variant build a new packet.
type WorkPacket struct {
	ID                string
	TaskText          string
	FileContexts      []FileContextSlice
	KeySymbols        []string
	Constraints       []string
	SkillHints        []skills.SkillHint
	TraceHints        []traces.ReplayHint
	MemorySummary     string
	LastFailureSignals []string
}

// AssembleInput bundles everything AssembleWorkPacket needs to retrieve
// hints and fold them into one packet. A nil Skills or Traces collaborator
// simply yields no hints of that kind; a nil memory summarizer yields no
// MemorySummary.
type AssembleInput struct {
	TaskText     string
	FileContexts []FileContextSlice
	KeySymbols   []string
	Constraints  []string

	Skills *skills.Library
	SkillContext skills.MatchContext

	Traces *traces.Index
	TraceContext traces.QueryContext
	TraceTopK    int
	TraceMinSimilarity float64

	MemorySummary      string
	LastFailureSignals []string
}

// AssembleWorkPacket builds one WorkPacket: it retrieves skill hints from
// the skill library, experience-trace hints from the trace index, and
// folds in the caller-supplied compacted memory summary and last failure
// signals, per spec.md §2's per-iteration data flow ("the orchestrator
// assembles a work packet ... hands it to an agent").
func AssembleWorkPacket(in AssembleInput) WorkPacket {
	wp := WorkPacket{
		ID:                 ids.New(),
		TaskText:           in.TaskText,
		FileContexts:       append([]FileContextSlice(nil), in.FileContexts...),
		KeySymbols:         append([]string(nil), in.KeySymbols...),
		Constraints:        append([]string(nil), in.Constraints...),
		MemorySummary:      in.MemorySummary,
		LastFailureSignals: append([]string(nil), in.LastFailureSignals...),
	}
	if in.Skills != nil {
		wp.SkillHints = in.Skills.FindMatching(in.SkillContext)
	}
	if in.Traces != nil {
		topK := in.TraceTopK
		if topK <= 0 {
			topK = 3
		}
		wp.TraceHints = in.Traces.FindSimilar(in.TraceContext, topK, in.TraceMinSimilarity)
	}
	return wp
}

// ToTurn converts the packet into an llm.Turn, folding every field spec.md
// §3 lists into the system preamble and prompt so retrieval hints actually
// reach the agent instead of being computed and discarded.
func (wp WorkPacket) ToTurn(systemPreamble string) llm.Turn {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: %s\n", wp.TaskText)

	if len(wp.KeySymbols) > 0 {
		fmt.Fprintf(&b, "\nKey symbols: %s\n", strings.Join(wp.KeySymbols, ", "))
	}
	if len(wp.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, c := range wp.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if len(wp.FileContexts) > 0 {
		b.WriteString("\nFile context:\n")
		for _, fc := range wp.FileContexts {
			fmt.Fprintf(&b, "--- %s:%d-%d ---\n%s\n", fc.Path, fc.StartLine, fc.EndLine, fc.Content)
		}
	}
	if len(wp.SkillHints) > 0 {
		b.WriteString("\nRetrieved skill hints (prior winning strategies):\n")
		for _, h := range wp.SkillHints {
			fmt.Fprintf(&b, "- (confidence %.2f) %s\n", h.Confidence, h.Skill.Approach)
		}
	}
	if len(wp.TraceHints) > 0 {
		b.WriteString("\nRetrieved experience traces (similar past sessions):\n")
		for _, h := range wp.TraceHints {
			fmt.Fprintf(&b, "- (score %.2f) %s\n", h.Score, strings.Join(h.Strategy, " -> "))
		}
	}
	if wp.MemorySummary != "" {
		fmt.Fprintf(&b, "\nCompacted memory summary:\n%s\n", wp.MemorySummary)
	}
	if len(wp.LastFailureSignals) > 0 {
		b.WriteString("\nLast failure signals:\n")
		for _, f := range wp.LastFailureSignals {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	return llm.Turn{
		SystemPreamble: systemPreamble,
		Prompt:         b.String(),
	}
}
