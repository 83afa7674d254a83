package orchestrator

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOrchestratorSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Orchestrator End-to-End Suite")
}

var _ = Describe("Session", func() {
	var clock func() time.Time

	BeforeEach(func() {
		t := time.Unix(1_700_000_000, 0)
		clock = func() time.Time {
			t = t.Add(time.Millisecond)
			return t
		}
	})

	Describe("the happy path", func() {
		It("traverses SelectingIssue through Resolved and records a legal path", func() {
			s := NewSession("bead-e2e-1", clock)
			for _, to := range []State{
				StatePreparingWorktree, StatePlanning, StateImplementing,
				StateVerifying, StateMerging, StateResolved,
			} {
				Expect(s.Transition(to, "normal progress")).To(Succeed())
			}
			Expect(s.IsTerminal()).To(BeTrue())
			Expect(LegalPath(s.Log)).To(BeTrue())
			Expect(s.Log).To(HaveLen(6))
		})
	})

	Describe("a verifier failure that escalates and resolves", func() {
		It("returns to Implementing after Escalating, then reaches Resolved", func() {
			s := NewSession("bead-e2e-2", clock)
			steps := []struct {
				to     State
				reason string
			}{
				{StatePreparingWorktree, ""},
				{StatePlanning, ""},
				{StateImplementing, ""},
				{StateVerifying, ""},
				{StateEscalating, "repeated lifetime errors"},
				{StateImplementing, "integrator repair plan"},
				{StateVerifying, ""},
				{StateMerging, ""},
				{StateResolved, ""},
			}
			for _, step := range steps {
				Expect(s.Transition(step.to, step.reason)).To(Succeed())
			}
			Expect(s.IsTerminal()).To(BeTrue())
			Expect(LegalPath(s.Log)).To(BeTrue())
		})
	})

	Describe("an illegal jump", func() {
		It("is rejected and leaves state and log untouched", func() {
			s := NewSession("bead-e2e-3", clock)
			before := s.Current
			err := s.Transition(StateResolved, "skip everything")
			Expect(err).To(HaveOccurred())
			Expect(s.Current).To(Equal(before))
			Expect(s.Log).To(BeEmpty())
		})
	})

	Describe("a session that never recovers", func() {
		It("can fail from any non-terminal state and stays terminal", func() {
			s := NewSession("bead-e2e-4", clock)
			Expect(s.Transition(StatePreparingWorktree, "")).To(Succeed())
			Expect(s.Transition(StateFailed, "worktree creation failed")).To(Succeed())
			Expect(s.IsTerminal()).To(BeTrue())

			err := s.Transition(StateImplementing, "retry")
			Expect(err).To(HaveOccurred())
		})
	})
})
