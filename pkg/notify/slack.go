// Package notify posts human-visible notifications for the events spec.md
// §7 requires surfaced outside the event log: FlagForHuman escalations and
// terminal Failed sessions. Grounded in the teacher's Slack delivery
// channel (pkg/notification, exercised by
// test/integration/notification/edge_cases_slack_rate_limiting_test.go),
// including its circuit-breaker guard against a flapping Slack API.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"github.com/sony/gobreaker"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Sink is the notification delivery contract; FlagForHuman and terminal
// failures are posted through it. A no-op implementation is trivial for
// tests that don't care about delivery.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Priority mirrors the teacher's NotificationPriority levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Notification is one human-visible event: a FlagForHuman escalation or a
// session reaching Failed.
type Notification struct {
	IssueID  string
	Subject  string
	Body     string
	Priority Priority
}

// SlackSink posts Notifications to a single Slack channel via the Slack Web
// API, guarded by a circuit breaker so a Slack outage degrades to dropped
// notifications (logged by the caller) instead of blocking the orchestrator
// loop or burning its retry budget on a service that is down.
type SlackSink struct {
	client  *slack.Client
	channel string
	breaker *gobreaker.CircuitBreaker
}

// NewSlackSink builds a sink posting to channel, using token as the Slack
// bot token. The breaker trips open after 5 consecutive failures and stays
// open for openFor before allowing a probe request through, matching the
// teacher's observed "circuit breaker is open (too many failures,
// preventing cascading failures)" behavior.
func NewSlackSink(token, channel string, openFor time.Duration) *SlackSink {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "slack-notify",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &SlackSink{
		client:  slack.New(token),
		channel: channel,
		breaker: breaker,
	}
}

// Notify implements Sink.
func (s *SlackSink) Notify(ctx context.Context, n Notification) error {
	text := fmt.Sprintf("[%s] %s: %s (issue %s)", n.Priority, n.Subject, n.Body, n.IssueID)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		_, _, sendErr := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
		return nil, sendErr
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return swarmerrors.Wrap(swarmerrors.ErrInferenceFailure, "slack circuit breaker is open")
		}
		return swarmerrors.FailedTo("post slack notification", err)
	}
	return nil
}

// FlagForHuman builds the Notification for an escalation that exhausted
// every tier's budget (spec.md §4.G's FlagForHuman action).
func FlagForHuman(issueID, reason string) Notification {
	return Notification{
		IssueID:  issueID,
		Subject:  "stuck: needs human review",
		Body:     reason,
		Priority: PriorityHigh,
	}
}

// SessionFailed builds the Notification for a session reaching the
// terminal Failed state (spec.md §7's "user-visible behavior on terminal
// failure").
func SessionFailed(issueID, reason string) Notification {
	return Notification{
		IssueID:  issueID,
		Subject:  "session failed",
		Body:     reason,
		Priority: PriorityCritical,
	}
}

// NopSink discards every notification; useful in tests and for runs where
// Slack delivery isn't configured.
type NopSink struct{}

// Notify implements Sink.
func (NopSink) Notify(context.Context, Notification) error { return nil }
