package agentenv

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_MatchThroughWrapChains(t *testing.T) {
	t.Parallel()

	sentinels := map[string]error{
		"shutting down":     ErrShuttingDown,
		"not initialized":   ErrNotInitialized,
		"port allocation":   ErrPortAllocation,
		"path security":     ErrPathSecurity,
		"spawn":             ErrSpawn,
		"readiness timeout": ErrReadinessTimeout,
		"binary not found":  ErrBinaryNotFound,
	}

	for name, sentinel := range sentinels {
		sentinel := sentinel
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("launch abc: %w", fmt.Errorf("inner: %w", sentinel))
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is failed for doubly wrapped %v", sentinel)
			}
		})
	}
}

func TestSecurityError_MatchesSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("launch abc: %w", &SecurityError{
		Candidate: "/opt/agent/bin/agentd; rm -rf /",
		Reason:    "executable path contains shell metacharacters",
	})

	if !errors.Is(err, ErrPathSecurity) {
		t.Error("*SecurityError must match ErrPathSecurity via errors.Is")
	}

	var secErr *SecurityError
	if !errors.As(err, &secErr) {
		t.Fatal("errors.As must recover the *SecurityError")
	}
	if secErr.Candidate != "/opt/agent/bin/agentd; rm -rf /" {
		t.Errorf("Candidate = %q", secErr.Candidate)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	if errors.Is(ErrSpawn, ErrReadinessTimeout) {
		t.Error("ErrSpawn and ErrReadinessTimeout must be distinct")
	}
	if errors.Is(ErrPortAllocation, ErrPathSecurity) {
		t.Error("ErrPortAllocation and ErrPathSecurity must be distinct")
	}
}
