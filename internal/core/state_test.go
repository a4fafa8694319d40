package core

import "testing"

func TestProcessState_String(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		state ProcessState
		want  string
	}{
		"allocating":     {StateAllocating, "Allocating"},
		"spawning":       {StateSpawning, "Spawning"},
		"awaiting ready": {StateAwaitingReady, "AwaitingReady"},
		"ready":          {StateReady, "Ready"},
		"terminating":    {StateTerminating, "Terminating"},
		"terminated":     {StateTerminated, "Terminated"},
		"failed":         {StateFailed, "Failed"},
		"unknown":        {ProcessState(42), "ProcessState(42)"},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := tc.state.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProcessState_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[ProcessState]bool{
		StateAllocating:    false,
		StateSpawning:      false,
		StateAwaitingReady: false,
		StateReady:         false,
		StateTerminating:   false,
		StateTerminated:    true,
		StateFailed:        true,
	}

	for state, want := range terminal {
		if got := state.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", state, got, want)
		}
	}
}

func TestHandle_FailFromAnyNonTerminalState(t *testing.T) {
	t.Parallel()

	for _, start := range []ProcessState{
		StateAllocating, StateSpawning, StateAwaitingReady, StateReady, StateTerminating,
	} {
		h := &Handle{}
		h.state.Store(uint32(start))
		h.fail()
		if got := h.State(); got != StateFailed {
			t.Errorf("fail() from %s = %s, want Failed", start, got)
		}
	}
}

func TestHandle_FailKeepsTerminalState(t *testing.T) {
	t.Parallel()

	h := &Handle{}
	h.state.Store(uint32(StateTerminated))
	h.fail()
	if got := h.State(); got != StateTerminated {
		t.Errorf("fail() on terminated handle = %s, want Terminated", got)
	}
}

func TestHandle_BeginTerminateClaimsOnce(t *testing.T) {
	t.Parallel()

	h := &Handle{}
	h.state.Store(uint32(StateReady))

	if !h.beginTerminate() {
		t.Fatal("first beginTerminate should win")
	}
	if h.beginTerminate() {
		t.Fatal("second beginTerminate should lose")
	}
	if got := h.State(); got != StateTerminating {
		t.Errorf("state = %s, want Terminating", got)
	}
}
