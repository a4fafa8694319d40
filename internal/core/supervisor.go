package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/agentenv/internal/agentproc"
	"github.com/giantswarm/agentenv/internal/envutil"
	"github.com/giantswarm/agentenv/internal/fileutil"
	"github.com/giantswarm/agentenv/internal/netutil"
	"github.com/giantswarm/agentenv/internal/pathsec"
	"github.com/giantswarm/agentenv/internal/sentinel"
)

// supervisorState represents the lifecycle state of a Supervisor.
type supervisorState uint32

const (
	supervisorCreated      supervisorState = iota // Zero value; NewSupervisor returns in this state
	supervisorInitializing                        // Initialize in progress
	supervisorReady                               // Launch allowed
	supervisorShuttingDown                        // Shutdown called
)

// ErrShuttingDown is returned by Launch when the Supervisor is shutting down.
const ErrShuttingDown = sentinel.Error("supervisor is shutting down")

// ErrNotInitialized is returned by Launch when Initialize has not been called.
const ErrNotInitialized = sentinel.Error("supervisor not initialized")

// ErrSpawn is returned when the OS refused to create the agent process.
// Nothing was spawned, so no termination is attempted.
const ErrSpawn = sentinel.Error("agent process could not be spawned")

// ErrReadinessTimeout is returned when the agent process was created but
// never answered its health check within the polling budget. The process
// receives a best-effort termination before this error surfaces.
const ErrReadinessTimeout = sentinel.Error("agent never became ready within the readiness budget")

// ErrPortAllocation is re-exported from netutil so the public API imports
// only from core, preserving the layering: public API → core → netutil.
const ErrPortAllocation = netutil.ErrAllocate

// ErrPathSecurity is re-exported from pathsec so the public API imports
// only from core, preserving the layering: public API → core → pathsec.
const ErrPathSecurity = pathsec.ErrPathSecurity

// SecurityError is re-exported from pathsec for the same layering reason.
// It carries the rejected candidate path for audit logging.
type SecurityError = pathsec.SecurityError

// launchedProcess is the supervisor's view of a spawned agent. The
// concrete implementation is agentproc.Process; tests substitute fakes
// through the newProcess seam.
type launchedProcess interface {
	Start(ctx context.Context) error
	WaitReady(ctx context.Context) error
	PID() int
	Exited() <-chan struct{}
	Stop(timeout time.Duration) error
	Close()
	StdoutPath() string
	StderrPath() string
}

// newProcessFunc creates a launchedProcess from an agent process config.
type newProcessFunc func(agentproc.Config) (launchedProcess, error)

// defaultNewProcess is the production seam implementation.
func defaultNewProcess(cfg agentproc.Config) (launchedProcess, error) {
	return agentproc.New(cfg)
}

// LaunchSpec carries the per-launch inputs of a Launch call. Both fields
// are optional.
type LaunchSpec struct {
	// WorkingDir is the candidate working directory for the agent. Empty
	// or invalid (unstattable, symlink, not a directory) degrades to the
	// user home directory; metacharacters reject the launch.
	WorkingDir string

	// EnvOverrides are caller-supplied environment variables, applied
	// with the highest precedence.
	EnvOverrides map[string]string
}

// Supervisor launches, health-checks, and tears down agent processes. It
// owns the port registry, the handle registry, and the launch store, and
// sequences every launch through the handle state machine.
//
// Safe for concurrent use: multiple Launch calls may be in flight, each
// owning disjoint resources (port, process, data directory). Shared state
// is confined to the registries and the store, each synchronized
// internally.
type Supervisor struct {
	cfg SupervisorConfig

	// ports coordinates port allocation across all concurrent launches.
	ports *netutil.PortRegistry

	// registry tracks live handles for shutdown-time termination.
	registry *Registry

	// store persists launch records; set during Initialize, read
	// lock-free afterwards.
	store atomic.Pointer[Store]

	state atomic.Uint32 // supervisorState; zero value is supervisorCreated

	// initMu serializes concurrent Initialize calls.
	initMu sync.Mutex

	// newProcess creates the agent process; replaced by tests.
	newProcess newProcessFunc
}

// loadState returns the current supervisor lifecycle state.
func (s *Supervisor) loadState() supervisorState {
	return supervisorState(s.state.Load())
}

// storeState sets the supervisor lifecycle state.
func (s *Supervisor) storeState(st supervisorState) {
	s.state.Store(uint32(st))
}

// NewSupervisor creates a Supervisor with the provided configuration.
// This performs no I/O operations. Call Initialize before Launch.
//
// Panics if cfg.Validate() reports any errors. Invalid configuration is a
// programmer error that should be caught at construction time, similar to
// regexp.MustCompile.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("agentenv: invalid supervisor config: %v", err))
	}
	return &Supervisor{
		cfg:        cfg,
		ports:      netutil.NewPortRegistry(nil),
		registry:   NewRegistry(),
		newProcess: defaultNewProcess,
	}
}

// Initialize performs the I/O-bearing part of construction: it creates the
// base data directory, opens the launch store, and reaps agent processes
// orphaned by a previous host run. Must be called before Launch. Safe to
// call multiple times: after a successful initialization, subsequent calls
// return nil immediately. If initialization fails, subsequent calls retry
// instead of returning a cached error permanently.
func (s *Supervisor) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	switch s.loadState() {
	case supervisorReady:
		return nil
	case supervisorShuttingDown:
		return ErrShuttingDown
	case supervisorCreated, supervisorInitializing:
		// Continue with initialization (or retry after prior failure).
	}

	s.storeState(supervisorInitializing)

	// Defense in depth: validate config even though NewSupervisor already
	// panics on invalid config. This catches Supervisors constructed via
	// struct literal (bypassing NewSupervisor).
	if err := s.cfg.Validate(); err != nil {
		s.storeState(supervisorCreated)
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := s.doInitialize(ctx); err != nil {
		s.storeState(supervisorCreated)
		return fmt.Errorf("initialize: %w", err)
	}

	s.storeState(supervisorReady)
	return nil
}

// doInitialize contains the actual initialization logic.
func (s *Supervisor) doInitialize(ctx context.Context) error {
	if err := fileutil.EnsureDir(s.cfg.BaseDataDir); err != nil {
		return fmt.Errorf("init base dir: %w", err)
	}

	st, err := OpenStore(s.cfg.StateDBPath, Logger())
	if err != nil {
		return fmt.Errorf("open launch store: %w", err)
	}

	// Orphan reaping is best-effort: a reap failure (e.g., a contended
	// lock held by another starting host) must not prevent this host from
	// launching agents. The other holder reaps on our behalf.
	if err := st.ReapOrphans(ctx); err != nil {
		Logger().Warn("orphan reaping failed; stale agents may linger", "error", err)
	}

	s.store.Store(st)
	return nil
}

// Launch resolves paths, allocates a loopback port, spawns the agent
// binary with the fixed "agent" argv, and polls its /status endpoint until
// ready. On success the returned handle is Ready and registered for
// shutdown-time termination.
//
// Failure modes, all aborting the call: ErrPathSecurity (nothing
// spawned), ErrPortAllocation (nothing spawned), ErrSpawn (nothing to
// terminate), ErrReadinessTimeout (spawned process receives a best-effort
// termination first). Cancellation of ctx during readiness polling also
// terminates the spawned process and surfaces the context error.
//
// Concurrent Launch calls against the same working directory are not
// deduplicated; each produces an independent handle and process.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) (*Handle, error) {
	switch s.loadState() {
	case supervisorShuttingDown:
		return nil, ErrShuttingDown
	case supervisorReady:
		// Continue to launch.
	case supervisorCreated, supervisorInitializing:
		return nil, ErrNotInitialized
	}

	id := uuid.NewString()
	log := Logger().With("launch", id)

	// Working directory and executable validation are independent, so
	// resolve them in parallel. Each goroutine writes a distinct variable;
	// g.Wait() provides the happens-before edge for the reads below.
	var workDir, binPath pathsec.ValidatedPath
	var g errgroup.Group
	g.Go(func() error {
		var err error
		workDir, err = pathsec.ResolveWorkingDir(spec.WorkingDir, log)
		return err
	})
	g.Go(func() error {
		candidate, err := s.cfg.Locator.Locate(s.cfg.BinaryName)
		if err != nil {
			return fmt.Errorf("locate agent binary: %w", err)
		}
		binPath, err = pathsec.ResolveExecutable(candidate, s.cfg.AllowedRoots)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", id, err)
	}

	h := &Handle{
		id:         id,
		workingDir: workDir.Path,
		fallback:   workDir.FallbackUsed,
		binaryPath: binPath.Path,
		startedAt:  time.Now(),
		log:        log,
	}

	port, err := s.ports.Allocate()
	if err != nil {
		h.fail()
		return nil, fmt.Errorf("launch %s: %w", id, err)
	}
	h.port = port
	h.advance(StateAllocating, StateSpawning)

	secret := s.cfg.SecretKey
	if secret == "" {
		secret, err = newLaunchSecret()
		if err != nil {
			s.ports.Release(port)
			h.fail()
			return nil, fmt.Errorf("launch %s: generate secret: %w", id, err)
		}
	}

	// Best-effort: an unresolvable home leaves the inherited profile
	// variables untouched.
	home, _ := os.UserHomeDir()

	env := envutil.Build(envutil.Params{
		Base:           os.Environ(),
		Overrides:      spec.EnvOverrides,
		Port:           port,
		ExecutablePath: binPath.Path,
		HomeDir:        home,
		Secret:         secret,
	})

	launchDir := filepath.Join(s.cfg.BaseDataDir, "launch-"+id)
	if err := fileutil.EnsureDir(launchDir); err != nil {
		s.ports.Release(port)
		h.fail()
		return nil, fmt.Errorf("launch %s: %w: %v", id, ErrSpawn, err)
	}

	log.Info("launching agent",
		"binary", binPath.Path,
		"working_dir", workDir.Path,
		"fallback_used", workDir.FallbackUsed,
		"port", port,
		"platform", runtime.GOOS,
		"env", env.Redacted())

	proc, err := s.newProcess(agentproc.Config{
		Binary:            binPath.Path,
		WorkingDir:        workDir.Path,
		LogDir:            launchDir,
		Port:              port,
		Env:               env.Environ(),
		ReadinessInterval: s.cfg.ReadinessInterval,
		ReadinessAttempts: s.cfg.ReadinessAttempts,
		Logger:            log,
		StopTimeout:       s.cfg.StopTimeout,
	})
	if err != nil {
		s.ports.Release(port)
		h.fail()
		return nil, fmt.Errorf("launch %s: %w: %v", id, ErrSpawn, err)
	}
	h.proc = proc

	if err := proc.Start(ctx); err != nil {
		proc.Close()
		s.ports.Release(port)
		h.fail()
		return nil, fmt.Errorf("launch %s: %w: %v", id, ErrSpawn, err)
	}
	h.pid = proc.PID()
	h.advance(StateSpawning, StateAwaitingReady)

	if err := proc.WaitReady(ctx); err != nil {
		log.Warn("agent failed readiness; terminating",
			"pid", h.pid, "port", port, "error", err)
		if stopErr := proc.Stop(s.cfg.StopTimeout); stopErr != nil {
			log.Warn("best-effort termination after readiness failure",
				"pid", h.pid, "error", stopErr)
		}
		proc.Close()
		s.ports.Release(port)
		h.fail()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("launch %s: %w", id, err)
		}
		return nil, fmt.Errorf("launch %s: %w: %v", id, ErrReadinessTimeout, err)
	}

	h.advance(StateAwaitingReady, StateReady)
	s.registry.Add(h)

	// Recheck shutdown state after registration. Between the pre-check and
	// here, Shutdown may have started and already iterated the registry,
	// missing this handle. Terminating it ourselves keeps the guarantee
	// that Shutdown leaves no agent running.
	if s.loadState() == supervisorShuttingDown {
		s.Terminate(h)
		return nil, ErrShuttingDown
	}

	if st := s.store.Load(); st != nil {
		if err := st.Insert(LaunchRecord{
			ID:        id,
			PID:       h.pid,
			Port:      port,
			Binary:    binPath.Path,
			StartedAt: h.startedAt,
		}); err != nil {
			log.Warn("failed to record launch; orphan reaping will miss it", "error", err)
		}
	}

	log.Info("agent ready",
		"pid", h.pid, "port", port, "stdout", proc.StdoutPath(), "stderr", proc.StderrPath())
	return h, nil
}

// Terminate tears down the agent behind h: graceful stop with forced-kill
// escalation, port release, deregistration, and store purge. Fire and
// forget: failures are logged, never returned, so shutdown paths cannot be
// blocked by a stuck agent. Calling Terminate twice, or concurrently from
// several goroutines, is safe; only one caller performs the teardown.
func (s *Supervisor) Terminate(h *Handle) {
	if h == nil || !h.beginTerminate() {
		return
	}

	log := h.log
	if log == nil {
		log = Logger()
	}

	if h.proc != nil {
		if err := h.proc.Stop(s.cfg.StopTimeout); err != nil {
			log.Warn("agent termination failed; continuing shutdown",
				"pid", h.pid, "port", h.port, "error", err)
		}
		h.proc.Close()
	}

	s.ports.Release(h.port)
	s.registry.Remove(h.ID())
	if st := s.store.Load(); st != nil {
		if err := st.Delete(h.ID()); err != nil {
			log.Warn("failed to purge launch record", "error", err)
		}
	}

	h.advance(StateTerminating, StateTerminated)
	log.Info("agent terminated", "pid", h.pid, "port", h.port)
}

// Handles returns a snapshot of the currently registered (live) handles.
func (s *Supervisor) Handles() []*Handle {
	return s.registry.Handles()
}

// Shutdown terminates every registered agent best-effort in parallel and
// closes the launch store. Ordering across handles is unspecified. Safe to
// call multiple times and safe to call even if Initialize was never
// called; termination failures never surface (they are logged), so the
// only possible error is from closing the store.
func (s *Supervisor) Shutdown() error {
	// Atomic store is the linearization point: Launch calls that
	// subsequently load the state observe shuttingDown and refuse; calls
	// already past the check re-verify after registration.
	s.storeState(supervisorShuttingDown)

	s.registry.TerminateAll(s.Terminate)

	if st := s.store.Swap(nil); st != nil {
		if err := st.Close(); err != nil {
			return fmt.Errorf("close launch store: %w", err)
		}
	}
	return nil
}

// newLaunchSecret returns a fresh 256-bit hex token shared between the
// host and one agent for authenticating loopback HTTP calls.
func newLaunchSecret() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
