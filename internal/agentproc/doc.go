// Package agentproc provides process management for the companion agent
// backend. The agent binary is started with the fixed "agent" subcommand,
// its stdout and stderr captured to log files, and readiness determined by
// polling the /status HTTP endpoint on the loopback interface. Any 2xx
// response means the agent is serving.
package agentproc
