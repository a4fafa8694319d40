// Package core provides the internal implementation of the agentenv
// supervisor. It contains the Supervisor (launch orchestration, handle
// registry, parallel shutdown), the Handle state machine, the binary
// locator, and the SQLite-backed launch store used to reap agent
// processes orphaned by a previous host run.
package core
