package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Sentinel errors returned by WaitReady. Callers can match these with
// errors.Is through wrapped error chains.
var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrAttemptsNotPositive indicates a non-positive attempt budget.
	ErrAttemptsNotPositive = errors.New("max attempts must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = errors.New("process exited before becoming ready")

	// ErrBudgetExhausted indicates the process never became ready within
	// the polling budget.
	ErrBudgetExhausted = errors.New("process never became ready within the polling budget")
)

// ReadinessCheck is a function that checks if a process is ready.
// The context is canceled when the polling loop times out or the caller
// cancels, allowing checks (e.g., HTTP requests) to exit promptly.
// The attempt parameter is 1-based (first call receives attempt=1).
// It returns true when ready, false to continue polling.
// The error return is for fatal errors that should abort polling.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// WaitReadyConfig configures the wait behavior. The budget is expressed
// as MaxAttempts polls at Interval spacing; all non-ready outcomes,
// including connection refusals, consume an attempt identically.
type WaitReadyConfig struct {
	Interval      time.Duration   // Poll interval
	MaxAttempts   int             // Number of polls before giving up
	Name          string          // For logging (e.g., "agent")
	Port          int             // For logging context
	Logger        *slog.Logger    // Optional logger (defaults to slog.Default())
	ProcessExited <-chan struct{} // If non-nil, abort immediately when closed (process died)
}

// WaitReady polls until the check function returns true, the attempt
// budget is exhausted, or the context is canceled. The check function is
// called repeatedly until it reports ready or returns a non-nil error
// (fatal, abort polling). Budget exhaustion wraps ErrBudgetExhausted.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check ReadinessCheck) error {
	if cfg.Name == "" {
		return errors.New("wait ready: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrAttemptsNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// The overall timeout is a safety net only: the attempt counter below
	// is what normally ends an unsuccessful wait, after exactly
	// MaxAttempts polls. Two extra intervals of slack keep slow checks
	// from racing the deadline.
	timeout := cfg.Interval * time.Duration(cfg.MaxAttempts+2)

	// attempt is safe to increment without synchronization because
	// PollUntilContextTimeout invokes the condition function sequentially:
	// each call completes before the next is scheduled.
	attempt := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, timeout, true,
		func(pollCtx context.Context) (bool, error) {
			// Check whether the process has exited before polling. This
			// avoids burning the whole budget when the process dies
			// immediately (e.g., lost the port-bind race).
			if cfg.ProcessExited != nil {
				select {
				case <-cfg.ProcessExited:
					return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
				default:
				}
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				// Fatal error - abort polling
				return false, err
			}
			if ready {
				log.Debug("wait succeeded", "name", cfg.Name, "port", cfg.Port, "attempt", attempt)
				return true, nil
			}
			if attempt >= cfg.MaxAttempts {
				return false, fmt.Errorf("process %s after %d attempts: %w",
					cfg.Name, attempt, ErrBudgetExhausted)
			}
			return false, nil
		})
	if err != nil {
		// The safety-net deadline belongs to this function, not the caller.
		// A check that stalls past it (e.g., an endpoint that accepts
		// connections but never responds) is a readiness failure; only a
		// deadline on the caller's own context passes through untouched.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("process %s after %d attempts: %w",
				cfg.Name, attempt, ErrBudgetExhausted)
		}
		return fmt.Errorf("wait for %s readiness on port %d: %w", cfg.Name, cfg.Port, err)
	}
	return nil
}
