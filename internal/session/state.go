// Package session drives one optimization conversation from location
// capture to an applied or abandoned plan.
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrNoPlan is returned when accepting a run that produced no viable plan.
	ErrNoPlan = errors.New("no viable plan to accept")

	// ErrAbandoned is returned to an Optimize call whose session was closed
	// while the run was in flight. The run's results are discarded.
	ErrAbandoned = errors.New("session closed while processing")
)

// State is a session lifecycle state.
type State string

const (
	StateAwaitingLocation      State = "awaiting_location"
	StateCollectingConstraints State = "collecting_constraints"
	StateProcessing            State = "processing"
	StateResultsReady          State = "results_ready"
	StateFailed                State = "failed"
	StateApplied               State = "applied"
	StateClosed                State = "closed"
)

var transitions = map[State][]State{
	StateAwaitingLocation:      {StateCollectingConstraints, StateClosed},
	StateCollectingConstraints: {StateProcessing, StateClosed},
	StateProcessing:            {StateResultsReady, StateFailed, StateClosed},
	StateResultsReady:          {StateApplied, StateClosed},
	StateFailed:                {StateCollectingConstraints, StateClosed},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateClosed
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
