package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Acquire(context.Context) (bool, error) {
	return s.ok, s.err
}

type denialCounter struct {
	countingMetrics
	denied []string
}

func (d *denialCounter) RecordRateLimitDenied(_ context.Context, mode string) {
	d.denied = append(d.denied, mode)
}

func TestAdmission_Admit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limiter    Limiter
		mode       Mode
		wantErr    error
		wantDenied int
	}{
		{"granted advisory", stubLimiter{ok: true}, ModeAdvisory, nil, 0},
		{"granted gate", stubLimiter{ok: true}, ModeGate, nil, 0},
		{"denied advisory proceeds", stubLimiter{ok: false}, ModeAdvisory, nil, 1},
		{"denied gate fails", stubLimiter{ok: false}, ModeGate, catalog.ErrRateLimited, 1},
		{"cancelled", stubLimiter{err: context.Canceled}, ModeAdvisory, context.Canceled, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &denialCounter{}
			a := NewAdmission(tt.limiter, tt.mode, m)

			err := a.Admit(context.Background(), "media")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Admit() error = %v, want %v", err, tt.wantErr)
			}
			if len(m.denied) != tt.wantDenied {
				t.Errorf("denials = %d, want %d", len(m.denied), tt.wantDenied)
			}
		})
	}
}

func TestAdmission_NilLimiter(t *testing.T) {
	t.Parallel()

	if err := NewAdmission(nil, ModeGate, nil).Admit(context.Background(), "media"); err != nil {
		t.Errorf("Admit() error = %v", err)
	}
	var a *Admission
	if err := a.Admit(context.Background(), "media"); err != nil {
		t.Errorf("nil Admission Admit() error = %v", err)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAdvisory, false},
		{"advisory", ModeAdvisory, false},
		{"GATE", ModeGate, false},
		{"block", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFortifyLimiter_Acquire(t *testing.T) {
	t.Parallel()

	l := NewFortifyLimiter(Config{Capacity: 2, RefillPerSecond: 1, RetryWait: 10 * time.Millisecond})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := l.Acquire(ctx); !ok || err != nil {
			t.Fatalf("Acquire() #%d = %v, %v", i, ok, err)
		}
	}

	ok, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if ok {
		t.Error("third Acquire() within 10ms should be denied at 1/s")
	}
}

func TestFortifyLimiter_Cancelled(t *testing.T) {
	t.Parallel()

	l := NewFortifyLimiter(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok, err := l.Acquire(ctx); ok || !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() = %v, %v", ok, err)
	}
}
