// Package netutil allocates loopback TCP ports for agent processes.
//
// Ports are obtained from the kernel by binding to 127.0.0.1:0 and are
// tracked in a registry so that concurrent launches within the same host
// process never receive the same port, even though each listener is
// closed before the agent binds it.
package netutil
