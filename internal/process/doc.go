// Package process provides the low-level lifecycle machinery for spawned
// agent processes: log file capture, a single-Wait exit monitor, bounded
// readiness polling, and the platform-divergent termination sequence
// (signal escalation on POSIX, tree-kill on Windows).
package process
