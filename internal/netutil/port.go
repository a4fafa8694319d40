package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/agentenv/internal/sentinel"
)

// ErrAllocate is returned when no free loopback port could be obtained.
const ErrAllocate = sentinel.Error("no free loopback port could be allocated")

// maxAllocateRetries is the maximum number of attempts to find a port not
// already held in the registry. This guards against pathological cases.
const maxAllocateRetries = 20

// PortRegistry tracks ports currently reserved by this process to prevent
// the TOCTOU race where two concurrent Allocate calls receive the same port
// from the kernel (because the first caller closed its listener before the
// second caller opened theirs).
//
// The Supervisor creates one PortRegistry and shares it via dependency
// injection with every launch.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a new PortRegistry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was reserved, false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry, allowing it to be reused.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Allocate obtains a free loopback port from the kernel and registers it.
//
// The listener is closed before returning, so the port is not guaranteed
// to remain free at the OS level (bind-then-release race). A bind failure
// by the spawned agent surfaces as a readiness failure, not as an
// allocation retry. Callers must call Release when the port is no longer
// needed.
//
// Failures wrap ErrAllocate for errors.Is matching.
func (r *PortRegistry) Allocate() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("%w: resolve tcp address: %w", ErrAllocate, err)
	}

	for attempt := 0; attempt < maxAllocateRetries; attempt++ {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("%w: listen on loopback: %w", ErrAllocate, err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("%w: unexpected address type: %T", ErrAllocate, l.Addr())
		}
		port := tcpAddr.Port
		if !r.reserve(port) {
			// Port already reserved by a concurrent launch whose listener is
			// gone; close and ask the kernel for a different one.
			r.log.Debug("port already in registry, retrying", "port", port)
			_ = l.Close()
			continue
		}
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", port, "error", closeErr)
		}
		return port, nil
	}
	return 0, fmt.Errorf("%w: exhausted %d attempts", ErrAllocate, maxAllocateRetries)
}
