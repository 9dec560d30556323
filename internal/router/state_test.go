package router

import "testing"

func TestHappyPathTraversal(t *testing.T) {
	m := newMachine()
	for _, next := range []State{
		StateTriaged, StateContextAssembled, StateDispatched,
		StateSynthesized, StateRecorded, StateDone,
	} {
		if err := m.advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if m.state() != StateDone {
		t.Fatalf("expected done, got %s", m.state())
	}
}

func TestSkippingAStageIsIllegal(t *testing.T) {
	m := newMachine()
	if err := m.advance(StateDispatched); err == nil {
		t.Fatalf("received -> dispatched must be rejected")
	}
	if m.state() != StateReceived {
		t.Fatalf("failed transition must not move the machine, got %s", m.state())
	}
}

func TestFailedIsReachableFromAnyState(t *testing.T) {
	m := newMachine()
	if err := m.advance(StateFailed); err != nil {
		t.Fatalf("received -> failed: %v", err)
	}

	m = newMachine()
	for _, next := range []State{StateTriaged, StateContextAssembled, StateDispatched} {
		if err := m.advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if err := m.advance(StateFailed); err != nil {
		t.Fatalf("dispatched -> failed: %v", err)
	}
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	m := newMachine()
	if err := m.advance(StateFailed); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := m.advance(StateTriaged); err == nil {
		t.Fatalf("failed is terminal")
	}
	if err := m.advance(StateFailed); err == nil {
		t.Fatalf("failed is terminal even for failed")
	}
}
