// Package statemachine declares the per-call fetch lifecycle as a statekit machine.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// State is a fetch lifecycle state.
type State string

// Fetch states.
const (
	StateAttempting       State = "attempting"
	StateRetryableFailure State = "retryable_failure"
	StateSuccess          State = "success"
	StateFatalFailure     State = "fatal_failure"
	StateExhausted        State = "exhausted"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFatalFailure || s == StateExhausted
}

// Event drives a transition.
type Event string

// Fetch events.
const (
	EventSucceed       Event = "SUCCEED"
	EventRetryableFail Event = "RETRYABLE_FAIL"
	EventFatalFail     Event = "FATAL_FAIL"
	EventRetry         Event = "RETRY"
	EventExhaust       Event = "EXHAUST"
)

// Context carries the attempt counters through the machine.
type Context struct {
	URL         string
	Attempt     int
	MaxAttempts int
	LastErr     error
}

// NewContext creates a context positioned on the first attempt.
func NewContext(url string, maxAttempts int) *Context {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Context{
		URL:         url,
		Attempt:     1,
		MaxAttempts: maxAttempts,
	}
}

// AttemptsRemain reports whether another attempt is allowed.
func (c *Context) AttemptsRemain() bool {
	return c.Attempt < c.MaxAttempts
}

const (
	stateAttempting       statekit.StateID = statekit.StateID(StateAttempting)
	stateRetryableFailure statekit.StateID = statekit.StateID(StateRetryableFailure)
	stateSuccess          statekit.StateID = statekit.StateID(StateSuccess)
	stateFatalFailure     statekit.StateID = statekit.StateID(StateFatalFailure)
	stateExhausted        statekit.StateID = statekit.StateID(StateExhausted)
)

// NewFetchMachine creates the fetch statechart.
func NewFetchMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("fetch").
		WithInitial(stateAttempting).
		WithContext(&Context{}).
		WithAction("recordError", recordError).
		WithAction("advanceAttempt", advanceAttempt).
		WithGuard("attemptsRemain", guardAttemptsRemain).
		WithGuard("attemptsSpent", guardAttemptsSpent).
		State(stateAttempting).
			On(statekit.EventType(EventSucceed)).Target(stateSuccess).
			On(statekit.EventType(EventRetryableFail)).Target(stateRetryableFailure).Do("recordError").
			On(statekit.EventType(EventFatalFail)).Target(stateFatalFailure).Do("recordError").
			Done().
		State(stateRetryableFailure).
			On(statekit.EventType(EventRetry)).Target(stateAttempting).Guard("attemptsRemain").Do("advanceAttempt").
			On(statekit.EventType(EventExhaust)).Target(stateExhausted).Guard("attemptsSpent").Do("advanceAttempt").
			Done().
		State(stateSuccess).
			Final().
			Done().
		State(stateFatalFailure).
			Final().
			Done().
		State(stateExhausted).
			Final().
			Done().
		Build()
}

// Next is the pure transition function the machine implements. It returns
// the target state and whether ev is legal from s given the attempt counters.
func Next(s State, ev Event, attempt, maxAttempts int) (State, bool) {
	switch s {
	case StateAttempting:
		switch ev {
		case EventSucceed:
			return StateSuccess, true
		case EventRetryableFail:
			return StateRetryableFailure, true
		case EventFatalFail:
			return StateFatalFailure, true
		}
	case StateRetryableFailure:
		switch ev {
		case EventRetry:
			if attempt < maxAttempts {
				return StateAttempting, true
			}
		case EventExhaust:
			if attempt >= maxAttempts {
				return StateExhausted, true
			}
		}
	}
	return s, false
}
