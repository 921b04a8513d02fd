package statemachine

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
)

// ErrTransitionRejected is returned when an event is not legal in the current state.
var ErrTransitionRejected = errors.New("transition rejected")

// Interpreter drives one fetch call through the machine.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter bound to ctx.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the initial attempting state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current state.
func (i *Interpreter) State() State {
	return State(i.interp.State().Value)
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// IsTerminal reports whether the call has finished.
func (i *Interpreter) IsTerminal() bool {
	return i.State().Terminal()
}

// Matches checks if the current state matches s.
func (i *Interpreter) Matches(s State) bool {
	return i.interp.Matches(statekit.StateID(s))
}

// Fire sends ev with an optional cause. Illegal events leave the state
// unchanged and return ErrTransitionRejected.
func (i *Interpreter) Fire(ev Event, cause error) error {
	from := i.State()
	to, ok := Next(from, ev, i.ctx.Attempt, i.ctx.MaxAttempts)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrTransitionRejected, ev, from)
	}

	i.interp.Send(statekit.Event{
		Type:    statekit.EventType(ev),
		Payload: ErrorPayload{Err: cause},
	})

	if got := i.State(); got != to {
		return fmt.Errorf("%w: %s on %s landed in %s", ErrTransitionRejected, ev, from, got)
	}

	logging.Debug().
		Add(logging.Component("fetch")).
		Add(logging.URL(i.ctx.URL)).
		Add(logging.Attempt(i.ctx.Attempt)).
		Add(logging.FromState(string(from))).
		Add(logging.ToState(string(to))).
		Msg("fetch transition")

	return nil
}
