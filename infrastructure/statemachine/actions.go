package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// ErrorPayload carries the failure that caused a transition.
type ErrorPayload struct {
	Err error
}

// recordError keeps the most recent failure so exhaustion can wrap it.
// Actions receive **Context because the machine context is a pointer.
func recordError(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if payload, ok := event.Payload.(ErrorPayload); ok && payload.Err != nil {
		(*ctx).LastErr = payload.Err
	}
}

// advanceAttempt increments the attempt counter on leaving a retryable failure.
func advanceAttempt(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Attempt++
}
