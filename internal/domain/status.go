package domain

// Status is the lifecycle state of a request. Transitions are forward-only
// through the review pipeline, with REJECTED and EXPIRED reachable from any
// non-terminal state.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusValidatingIdentity Status = "VALIDATING_IDENTITY"
	StatusValidated          Status = "VALIDATED"
	StatusAssigned           Status = "ASSIGNED"
	StatusInProgress         Status = "IN_PROGRESS"
	StatusResolved           Status = "RESOLVED"
	StatusClosed             Status = "CLOSED"
	StatusRejected           Status = "REJECTED"
	StatusExpired            Status = "EXPIRED"
)

// transitions is the single source of truth for permitted status changes.
// REJECTED and EXPIRED are handled in CanTransitionTo rather than repeated here.
var transitions = map[Status][]Status{
	StatusPending:            {StatusValidatingIdentity, StatusValidated},
	StatusValidatingIdentity: {StatusValidated},
	StatusValidated:          {StatusAssigned},
	StatusAssigned:           {StatusInProgress},
	StatusInProgress:         {StatusResolved},
	StatusResolved:           {StatusClosed},
	StatusClosed:             {},
	StatusRejected:           {},
	StatusExpired:            {},
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusRejected || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Any non-terminal state may be rejected or expired; everything else
// must follow the forward pipeline with no skipped precursors.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusRejected || next == StatusExpired {
		return true
	}
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}
