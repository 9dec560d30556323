package router

import "fmt"

// State names a stage of a query's traversal through the router.
type State string

const (
	StateReceived         State = "received"
	StateTriaged          State = "triaged"
	StateContextAssembled State = "context-assembled"
	StateDispatched       State = "dispatched"
	StateSynthesized      State = "synthesized"
	StateRecorded         State = "recorded"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// transitions lists the single legal successor of each state. Failed is
// reachable from everywhere and terminal, as is Done.
var transitions = map[State]State{
	StateReceived:         StateTriaged,
	StateTriaged:          StateContextAssembled,
	StateContextAssembled: StateDispatched,
	StateDispatched:       StateSynthesized,
	StateSynthesized:      StateRecorded,
	StateRecorded:         StateDone,
}

// machine tracks one query's progress. It is not shared across queries,
// so no locking.
type machine struct {
	current State
}

func newMachine() *machine {
	return &machine{current: StateReceived}
}

// advance moves to the next state, which must be the current state's legal
// successor or Failed.
func (m *machine) advance(next State) error {
	if m.current == StateDone || m.current == StateFailed {
		return fmt.Errorf("query already terminal in state %s", m.current)
	}
	if next == StateFailed {
		m.current = StateFailed
		return nil
	}
	if transitions[m.current] != next {
		return fmt.Errorf("illegal transition %s -> %s", m.current, next)
	}
	m.current = next
	return nil
}

func (m *machine) state() State { return m.current }
