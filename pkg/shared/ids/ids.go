// Package ids centralizes identifier generation so every entity in the data
// model (Session, WorkPacket, Skill, ExperienceTrace, DebateSession,
// FeatureFlag, TrackedItem) gets the same uuid v4 shape.
package ids

import "github.com/google/uuid"

// New returns a new random identifier string.
func New() string {
	return uuid.NewString()
}
