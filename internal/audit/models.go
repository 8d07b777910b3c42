package audit

import "time"

// Action identifies a lifecycle step worth recording in the activity log.
type Action string

const (
	ActionRequestCreated    Action = "REQUEST_CREATED"
	ActionIdentityValidated Action = "IDENTITY_VALIDATED"
	ActionRequestAssigned   Action = "REQUEST_ASSIGNED"
	ActionRequestStarted    Action = "REQUEST_STARTED"
	ActionRequestResolved   Action = "REQUEST_RESOLVED"
	ActionRequestClosed     Action = "REQUEST_CLOSED"
	ActionRequestRejected   Action = "REQUEST_REJECTED"
	ActionRequestExpired    Action = "REQUEST_EXPIRED"
	ActionReviewerLogin     Action = "REVIEWER_LOGIN"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action
	// Ref is the request number the event belongs to, e.g. SOL-2025-00042.
	Ref    string
	Detail string
	// Actor is the reviewer username, or "system" for portal-initiated and
	// scheduled actions.
	Actor string
}
