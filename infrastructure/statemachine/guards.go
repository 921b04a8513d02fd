package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

func guardAttemptsRemain(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.AttemptsRemain()
}

func guardAttemptsSpent(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return true
	}
	return !ctx.AttemptsRemain()
}
