package agentenv

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giantswarm/agentenv/internal/core"
)

// Compile-time interface satisfaction checks.
var (
	_ Supervisor = (*supervisorWrapper)(nil)
	_ Handle     = (*core.Handle)(nil)
)

// supervisorWrapper wraps core.Supervisor to implement the Supervisor
// interface. The core.Supervisor is stored as a named (unexported) field
// rather than embedded to prevent callers from using type assertions to
// access internal methods that are not part of the public interface.
type supervisorWrapper struct {
	sup *core.Supervisor
}

// Initialize wraps core.Supervisor.Initialize.
func (w *supervisorWrapper) Initialize(ctx context.Context) error {
	return w.sup.Initialize(ctx)
}

// Launch implements Supervisor.Launch, returning the Handle interface.
//
//nolint:ireturn // Returns Handle interface by design for testability (mockable).
func (w *supervisorWrapper) Launch(ctx context.Context, req LaunchRequest) (Handle, error) {
	h, err := w.sup.Launch(ctx, core.LaunchSpec{
		WorkingDir:   req.WorkingDir,
		EnvOverrides: req.EnvOverrides,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Terminate wraps core.Supervisor.Terminate. A handle that did not come
// from this package's Launch is ignored with a warning; there is no
// process behind it to terminate.
func (w *supervisorWrapper) Terminate(h Handle) {
	ch, ok := h.(*core.Handle)
	if !ok {
		if h != nil {
			core.Logger().Warn("Terminate called with a foreign Handle implementation; ignoring",
				"id", h.ID())
		}
		return
	}
	w.sup.Terminate(ch)
}

// Shutdown wraps core.Supervisor.Shutdown.
func (w *supervisorWrapper) Shutdown() error {
	return w.sup.Shutdown()
}

// defaultSupervisorConfig returns a supervisorConfig populated with all
// default values. NewSupervisor and test helpers use this to avoid
// duplicating the default field assignments. Locator, AllowedRoots, and
// StateDBPath stay unset here; they are derived after options are applied
// because their defaults depend on other fields.
func defaultSupervisorConfig() supervisorConfig {
	return supervisorConfig{SupervisorConfig: core.SupervisorConfig{
		BinaryName:        DefaultBinaryName,
		BaseDataDir:       filepath.Join(os.TempDir(), DefaultBaseDataDirName),
		ReadinessInterval: DefaultReadinessInterval,
		ReadinessAttempts: DefaultReadinessAttempts,
		StopTimeout:       DefaultStopTimeout,
	}}
}

// NewSupervisor creates a Supervisor with the given options. Each call
// returns an independent supervisor owning its own port registry and
// handle registry; there is no package-level instance. This performs no
// I/O operations; call Initialize before Launch.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Supervisor interface by design for testability (mockable).
func NewSupervisor(opts ...Option) Supervisor {
	cfg := defaultSupervisorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Derived defaults. The default locator searches the configured
	// install and resources directories plus the running executable's
	// directory, the process start directory, and PATH; its search
	// directories double as the allowed roots for executable validation.
	defaultLocator := core.NewDefaultLocator(cfg.installDir, cfg.resourcesDir)
	if cfg.Locator == nil {
		cfg.Locator = defaultLocator
	}
	if len(cfg.AllowedRoots) == 0 {
		cfg.AllowedRoots = defaultLocator.Roots()
	}
	if cfg.StateDBPath == "" {
		cfg.StateDBPath = filepath.Join(cfg.BaseDataDir, DefaultStateDBName)
	}

	return &supervisorWrapper{sup: core.NewSupervisor(cfg.toCoreConfig())}
}
