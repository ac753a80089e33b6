package workflows

import "fmt"

// StateMachine enforces status transitions over a fixed transition table
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions.
// States that only appear as targets are treated as terminal.
func NewStateMachine(transitions map[string][]string) *StateMachine {
	allowed := make(map[string][]string, len(transitions))
	for from, to := range transitions {
		allowed[from] = append([]string(nil), to...)
		for _, target := range to {
			if _, ok := transitions[target]; !ok {
				allowed[target] = []string{}
			}
		}
	}
	return &StateMachine{allowedTransitions: allowed}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition returns to when the move is allowed, or an error naming both states
func (sm *StateMachine) Transition(from, to string) (string, error) {
	if !sm.CanTransition(from, to) {
		return from, fmt.Errorf("transition %s -> %s not allowed", from, to)
	}
	return to, nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// IsTerminal reports whether no transition leaves the given state
func (sm *StateMachine) IsTerminal(state string) bool {
	allowed, exists := sm.allowedTransitions[state]
	return exists && len(allowed) == 0
}
