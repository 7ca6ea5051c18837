// Package fsm models the control listener lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateBinding   State = "binding"
	StateAccepting State = "accepting"
	StateDraining  State = "draining"
	StateStopped   State = "stopped"
)

const (
	EventBound    Event = "bound"
	EventShutdown Event = "shutdown"
	EventDrained  Event = "drained"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateBinding:
		switch event {
		case EventBound:
			return StateAccepting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAccepting:
		switch event {
		case EventShutdown:
			return StateDraining, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDraining:
		switch event {
		case EventDrained:
			return StateStopped, nil
		case EventShutdown:
			// repeated terminate events while draining are absorbed
			return StateDraining, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Terminal reports whether no further transitions are possible.
func Terminal(s State) bool {
	return s == StateStopped
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
