package process

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWaitReady_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     WaitReadyConfig
		wantMsg string
	}{
		"zero interval": {
			cfg:     WaitReadyConfig{Interval: 0, MaxAttempts: 5, Name: "test-proc"},
			wantMsg: "interval must be positive",
		},
		"negative interval": {
			cfg:     WaitReadyConfig{Interval: -time.Second, MaxAttempts: 5, Name: "test-proc"},
			wantMsg: "interval must be positive",
		},
		"zero attempts": {
			cfg:     WaitReadyConfig{Interval: time.Millisecond, MaxAttempts: 0, Name: "test-proc"},
			wantMsg: "max attempts must be positive",
		},
		"empty name": {
			cfg:     WaitReadyConfig{Interval: time.Millisecond, MaxAttempts: 5},
			wantMsg: "name must not be empty",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := WaitReady(context.Background(), tc.cfg, func(_ context.Context, _ int) (bool, error) {
				t.Error("check should not be called with invalid config")
				return false, nil
			})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("unexpected error message: %v", err)
			}
		})
	}
}

func TestWaitReady_ProcessExited(t *testing.T) {
	t.Parallel()

	// Pre-close the channel to simulate a process that has already exited.
	exited := make(chan struct{})
	close(exited)

	start := time.Now()
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:      50 * time.Millisecond,
		MaxAttempts:   100,
		Name:          "test-proc",
		Port:          12345,
		ProcessExited: exited,
	}, func(_ context.Context, _ int) (bool, error) {
		t.Error("readiness check should not have been called")
		return false, nil
	})
	if err == nil {
		t.Fatal("expected error for exited process, got nil")
	}
	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("exit detection took %v, should abort without burning the budget", elapsed)
	}
}

func TestWaitReady_ReadyOnAttemptN(t *testing.T) {
	t.Parallel()

	const readyAt = 3
	calls := 0

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 10,
		Name:        "test-proc",
		Port:        12345,
	}, func(_ context.Context, attempt int) (bool, error) {
		calls++
		if attempt != calls {
			t.Errorf("attempt = %d, want sequential %d", attempt, calls)
		}
		return attempt == readyAt, nil
	})
	if err != nil {
		t.Fatalf("WaitReady error: %v", err)
	}
	if calls != readyAt {
		t.Errorf("check called %d times, want exactly %d (never polled after ready)", calls, readyAt)
	}
}

func TestWaitReady_BudgetExhausted(t *testing.T) {
	t.Parallel()

	const maxAttempts = 4
	calls := 0

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: maxAttempts,
		Name:        "test-proc",
		Port:        12345,
	}, func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, nil
	})
	if err == nil {
		t.Fatal("expected budget exhaustion error, got nil")
	}
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if calls != maxAttempts {
		t.Errorf("check called %d times, want exactly %d", calls, maxAttempts)
	}
}

func TestWaitReady_FatalCheckError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("health endpoint returned garbage")
	calls := 0

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 10,
		Name:        "test-proc",
	}, func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal check error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("check called %d times after fatal error, want 1", calls)
	}
}

func TestWaitReady_StalledChecksExhaustBudget(t *testing.T) {
	t.Parallel()

	// A check that blocks until its context is canceled models a health
	// endpoint that accepts connections but never responds. The wait must
	// classify this as budget exhaustion, not as caller cancellation.
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 3,
		Name:        "test-proc",
		Port:        12345,
	}, func(ctx context.Context, _ int) (bool, error) {
		<-ctx.Done()
		return false, nil
	})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted for stalled checks, got %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("internal deadline must not surface as context.DeadlineExceeded: %v", err)
	}
}

func TestWaitReady_CallerDeadlinePassesThrough(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitReady(ctx, WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 1000,
		Name:        "test-proc",
	}, func(checkCtx context.Context, _ int) (bool, error) {
		<-checkCtx.Done()
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the caller's deadline error, got %v", err)
	}
	if errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("caller deadline must not be rewritten to ErrBudgetExhausted: %v", err)
	}
}

func TestWaitReady_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WaitReady(ctx, WaitReadyConfig{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 1000,
		Name:        "test-proc",
	}, func(_ context.Context, _ int) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	if err == nil {
		t.Fatal("expected error after cancellation, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
