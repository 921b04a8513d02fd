package statemachine

import (
	"errors"
	"testing"
)

func newTestInterpreter(t *testing.T, maxAttempts int) *Interpreter {
	t.Helper()

	machine, err := NewFetchMachine()
	if err != nil {
		t.Fatalf("NewFetchMachine() error = %v", err)
	}
	interp := NewInterpreter(machine, NewContext("https://api.example.test/3/movie/popular", maxAttempts))
	interp.Start()
	t.Cleanup(interp.Stop)
	return interp
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext("u", 0)
	if ctx.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", ctx.Attempt)
	}
	if ctx.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want clamp to 1", ctx.MaxAttempts)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    State
		event   Event
		attempt int
		max     int
		want    State
		wantOK  bool
	}{
		{"success", StateAttempting, EventSucceed, 1, 3, StateSuccess, true},
		{"retryable", StateAttempting, EventRetryableFail, 1, 3, StateRetryableFailure, true},
		{"fatal", StateAttempting, EventFatalFail, 1, 3, StateFatalFailure, true},
		{"retry with budget", StateRetryableFailure, EventRetry, 2, 3, StateAttempting, true},
		{"retry without budget", StateRetryableFailure, EventRetry, 3, 3, StateRetryableFailure, false},
		{"exhaust when spent", StateRetryableFailure, EventExhaust, 3, 3, StateExhausted, true},
		{"exhaust too early", StateRetryableFailure, EventExhaust, 1, 3, StateRetryableFailure, false},
		{"retry from attempting", StateAttempting, EventRetry, 1, 3, StateAttempting, false},
		{"success is final", StateSuccess, EventRetryableFail, 1, 3, StateSuccess, false},
		{"fatal is final", StateFatalFailure, EventRetry, 1, 3, StateFatalFailure, false},
		{"exhausted is final", StateExhausted, EventRetry, 4, 3, StateExhausted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Next(tt.from, tt.event, tt.attempt, tt.max)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Next(%s, %s) = %s, %v; want %s, %v", tt.from, tt.event, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	tests := map[State]bool{
		StateAttempting:       false,
		StateRetryableFailure: false,
		StateSuccess:          true,
		StateFatalFailure:     true,
		StateExhausted:        true,
	}
	for s, want := range tests {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestInterpreter_StartsAttempting(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t, 3)
	if interp.State() != StateAttempting {
		t.Errorf("State() = %s, want attempting", interp.State())
	}
	if !interp.Matches(StateAttempting) {
		t.Error("Matches(attempting) should be true")
	}
	if interp.IsTerminal() {
		t.Error("initial state should not be terminal")
	}
}

func TestInterpreter_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t, 3)
	cause := errors.New("503")

	steps := []struct {
		event Event
		want  State
	}{
		{EventRetryableFail, StateRetryableFailure},
		{EventRetry, StateAttempting},
		{EventSucceed, StateSuccess},
	}
	for _, step := range steps {
		if err := interp.Fire(step.event, cause); err != nil {
			t.Fatalf("Fire(%s) error = %v", step.event, err)
		}
		if interp.State() != step.want {
			t.Fatalf("State() after %s = %s, want %s", step.event, interp.State(), step.want)
		}
	}

	if interp.Context().Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", interp.Context().Attempt)
	}
	if !interp.IsTerminal() {
		t.Error("success should be terminal")
	}
}

func TestInterpreter_Exhaustion(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t, 2)
	last := errors.New("second failure")

	_ = interp.Fire(EventRetryableFail, errors.New("first failure"))
	_ = interp.Fire(EventRetry, nil)
	if err := interp.Fire(EventRetryableFail, last); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	if err := interp.Fire(EventRetry, nil); !errors.Is(err, ErrTransitionRejected) {
		t.Fatalf("Fire(RETRY) with no attempts left error = %v, want ErrTransitionRejected", err)
	}
	if err := interp.Fire(EventExhaust, nil); err != nil {
		t.Fatalf("Fire(EXHAUST) error = %v", err)
	}

	if interp.State() != StateExhausted {
		t.Errorf("State() = %s, want exhausted", interp.State())
	}
	ctx := interp.Context()
	if ctx.Attempt != 3 {
		t.Errorf("Attempt = %d, want MaxAttempts+1", ctx.Attempt)
	}
	if !errors.Is(ctx.LastErr, last) {
		t.Errorf("LastErr = %v, want %v", ctx.LastErr, last)
	}
}

func TestInterpreter_FatalShortCircuit(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t, 3)
	cause := errors.New("404")

	if err := interp.Fire(EventFatalFail, cause); err != nil {
		t.Fatalf("Fire(FATAL_FAIL) error = %v", err)
	}
	if interp.State() != StateFatalFailure {
		t.Errorf("State() = %s, want fatal_failure", interp.State())
	}
	if err := interp.Fire(EventRetry, nil); !errors.Is(err, ErrTransitionRejected) {
		t.Errorf("Fire after fatal error = %v, want ErrTransitionRejected", err)
	}
	if interp.Context().Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", interp.Context().Attempt)
	}
}
