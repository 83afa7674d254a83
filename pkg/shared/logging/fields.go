// Package logging supplies a small structured-field builder on top of
// go-logr/logr (backed by zap in production via zapr), so call sites build
// up a map of fields instead of hand-writing key/value pairs.
package logging

import "time"

// Fields is an ordered-insertion map of structured log fields. It is not
// safe for concurrent writes; build one per log call.
type Fields map[string]any

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component tags the subsystem emitting the log line.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation tags the action being performed.
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource tags the entity the operation acted on. An empty name omits
// resource_name so logs don't carry a spurious empty field.
func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Duration records an elapsed time in milliseconds, matching the dotted
// telemetry field convention used for swarm.* spans.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Err attaches an error's message. Nil errors are a no-op so call sites
// don't need an if-guard.
func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	f["error"] = err.Error()
	return f
}

// Issue tags the issue id a log line pertains to.
func (f Fields) Issue(id string) Fields {
	f["issue.id"] = id
	return f
}

// Iteration tags the orchestrator iteration number.
func (f Fields) Iteration(n int) Fields {
	f["swarm.iteration.number"] = n
	return f
}

// Tier tags the escalation tier a log line pertains to.
func (f Fields) Tier(tier string) Fields {
	f["swarm.tier"] = tier
	return f
}

// KeysAndValues flattens the field set into logr's variadic key/value form.
func (f Fields) KeysAndValues() []any {
	kv := make([]any, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}
