// Package envutil composes the environment for spawned agent processes
// and produces a redacted view of it for logging.
package envutil
