package request

import "testing"

func TestNext_DefinedTransitions(t *testing.T) {
	cases := []struct {
		status string
		action Action
		want   string
	}{
		{StatusOpen, ActionCancel, StatusCanceled},
		{StatusAssigned, ActionAccept, StatusAccepted},
		{StatusAssigned, ActionReject, StatusOpen},
		{StatusAssigned, ActionCancel, StatusCanceled},
		{StatusAccepted, ActionReject, StatusOpen},
		{StatusAccepted, ActionEnroute, StatusEnroute},
		{StatusAccepted, ActionCancel, StatusCanceled},
		{StatusEnroute, ActionComplete, StatusCompleted},
	}
	for _, tc := range cases {
		got, ok := Next(tc.status, tc.action)
		if !ok {
			t.Errorf("Next(%s, %s): expected defined transition", tc.status, tc.action)
			continue
		}
		if got != tc.want {
			t.Errorf("Next(%s, %s) = %s, want %s", tc.status, tc.action, got, tc.want)
		}
	}
}

func TestNext_UndefinedTransitions(t *testing.T) {
	cases := []struct {
		status string
		action Action
	}{
		{StatusOpen, ActionAccept},
		{StatusOpen, ActionComplete},
		{StatusAccepted, ActionAccept},
		{StatusAccepted, ActionComplete},
		{StatusEnroute, ActionAccept},
		{StatusEnroute, ActionEnroute},
		{StatusEnroute, ActionCancel},
		{StatusCompleted, ActionCancel},
		{StatusCanceled, ActionCancel},
		{StatusCompleted, ActionAccept},
	}
	// rejected exists in the status vocabulary but nothing transitions
	// out of it.
	for _, a := range []Action{ActionAccept, ActionReject, ActionEnroute, ActionComplete, ActionCancel} {
		cases = append(cases, struct {
			status string
			action Action
		}{StatusRejected, a})
	}
	for _, tc := range cases {
		if _, ok := Next(tc.status, tc.action); ok {
			t.Errorf("Next(%s, %s): expected undefined transition", tc.status, tc.action)
		}
	}
}

func TestValidAction(t *testing.T) {
	for _, a := range []Action{ActionAccept, ActionReject, ActionEnroute, ActionComplete, ActionCancel} {
		if !ValidAction(a) {
			t.Errorf("ValidAction(%s) = false", a)
		}
	}
	if ValidAction(Action("teleport")) {
		t.Error("ValidAction(teleport) = true")
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{StatusOpen, StatusAssigned, StatusAccepted, StatusEnroute} {
		if (&ServiceRequest{Status: status}).Terminal() {
			t.Errorf("Terminal() = true for %s", status)
		}
	}
	for _, status := range []string{StatusCompleted, StatusCanceled} {
		if !(&ServiceRequest{Status: status}).Terminal() {
			t.Errorf("Terminal() = false for %s", status)
		}
	}
}
