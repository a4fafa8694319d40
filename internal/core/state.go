package core

import "fmt"

// ProcessState is the lifecycle state of a launched agent process. States
// advance strictly forward; Failed is reachable from any non-terminal
// state. Terminated and Failed are terminal.
type ProcessState uint32

const (
	// StateAllocating is the initial state: a port is being obtained.
	StateAllocating ProcessState = iota
	// StateSpawning means a port is held and the OS process is being created.
	StateSpawning
	// StateAwaitingReady means the process exists and /status is being polled.
	StateAwaitingReady
	// StateReady means the agent answered its health check and is serving.
	StateReady
	// StateTerminating means a termination sequence is in progress.
	StateTerminating
	// StateTerminated means the termination sequence completed. Terminal.
	StateTerminated
	// StateFailed means the launch or the process failed. Terminal.
	StateFailed
)

// String returns the state name.
func (s ProcessState) String() string {
	switch s {
	case StateAllocating:
		return "Allocating"
	case StateSpawning:
		return "Spawning"
	case StateAwaitingReady:
		return "AwaitingReady"
	case StateReady:
		return "Ready"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ProcessState(%d)", uint32(s))
	}
}

// IsTerminal reports whether no further transitions are possible from s.
func (s ProcessState) IsTerminal() bool {
	return s == StateTerminated || s == StateFailed
}
