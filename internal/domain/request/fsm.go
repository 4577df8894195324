package request

// Action is a lifecycle verb invoked against a service request.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionEnroute  Action = "enroute"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// transitions is the complete lifecycle table. A (status, action) pair
// absent from the table is undefined and surfaces as a Conflict —
// including repeats of an already-applied action, so retried HTTP calls
// can't double-fire a transition.
//
// A nurse can back out both before and after accepting; either way the
// request returns to the open pool. Cancellation is only possible up to
// acceptance: once the nurse is en route the visit runs to completion.
var transitions = map[string]map[Action]string{
	StatusOpen: {
		ActionCancel: StatusCanceled,
	},
	StatusAssigned: {
		ActionAccept: StatusAccepted,
		ActionReject: StatusOpen,
		ActionCancel: StatusCanceled,
	},
	StatusAccepted: {
		ActionReject:  StatusOpen,
		ActionEnroute: StatusEnroute,
		ActionCancel:  StatusCanceled,
	},
	StatusEnroute: {
		ActionComplete: StatusCompleted,
	},
}

// Next returns the status reached by applying action to status, and
// whether the transition is defined.
func Next(status string, action Action) (string, bool) {
	m, ok := transitions[status]
	if !ok {
		return "", false
	}
	next, ok := m[action]
	return next, ok
}

// ValidAction reports whether the verb itself is known, regardless of
// the current status.
func ValidAction(a Action) bool {
	switch a {
	case ActionAccept, ActionReject, ActionEnroute, ActionComplete, ActionCancel:
		return true
	}
	return false
}
