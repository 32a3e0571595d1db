package state

import "testing"

func TestNextStateHappyPath(t *testing.T) {
	s, err := NextState(StatusActive, EvtSellOut)
	if err != nil || s != StatusFull {
		t.Fatalf("active --sell_out--> want full, got %d err=%v", s, err)
	}
	s, err = NextState(StatusFull, EvtClaim)
	if err != nil || s != StatusDrawing {
		t.Fatalf("full --claim--> want drawing, got %d err=%v", s, err)
	}
	s, err = NextState(StatusDrawing, EvtSettle)
	if err != nil || s != StatusCompleted {
		t.Fatalf("drawing --settle--> want completed, got %d err=%v", s, err)
	}
}

func TestNextStateForceAndCancel(t *testing.T) {
	s, err := NextState(StatusActive, EvtForce)
	if err != nil || s != StatusDrawing {
		t.Fatalf("active --force--> want drawing, got %d err=%v", s, err)
	}
	for _, cur := range []int8{StatusActive, StatusFull} {
		s, err := NextState(cur, EvtCancel)
		if err != nil || s != StatusCancelled {
			t.Fatalf("%s --cancel--> want cancelled, got %d err=%v", StatusName(cur), s, err)
		}
	}
}

func TestNextStateInvalidTransitions(t *testing.T) {
	cases := []struct {
		cur int8
		evt string
	}{
		{StatusActive, EvtClaim},
		{StatusActive, EvtSettle},
		{StatusFull, EvtSellOut},
		{StatusFull, EvtForce},
		{StatusDrawing, EvtCancel},
		{StatusDrawing, EvtClaim},
		{StatusCompleted, EvtSettle},
		{StatusCompleted, EvtCancel},
		{StatusCancelled, EvtClaim},
	}
	for _, c := range cases {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("%s --%s--> should be invalid", StatusName(c.cur), c.evt)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusCancelled) {
		t.Fatalf("completed/cancelled must be terminal")
	}
	for _, s := range []int8{StatusActive, StatusFull, StatusDrawing} {
		if IsTerminal(s) {
			t.Fatalf("%s must not be terminal", StatusName(s))
		}
	}
}

func TestStatusName(t *testing.T) {
	if StatusName(StatusActive) != "active" || StatusName(99) != "unknown" {
		t.Fatalf("status name mapping broken")
	}
}
