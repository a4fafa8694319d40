package agentproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"time"

	"github.com/giantswarm/agentenv/internal/process"
)

// agentSubcommand is the single argument passed to the agent binary. The
// argv never carries user-controlled values; everything variable travels
// through the environment instead.
const agentSubcommand = "agent"

// healthCheckTimeout is the per-request timeout for the HTTP client used
// to poll the agent /status endpoint during readiness checks.
const healthCheckTimeout = 3 * time.Second

// Config holds the configuration for an agent process.
type Config struct {
	Binary     string   // Validated path to the agent binary
	WorkingDir string   // Working directory for the child process
	LogDir     string   // Directory for stdout/stderr capture files
	Port       int      // Loopback port the agent binds to
	Env        []string // Complete child environment ("KEY=VALUE" entries)

	ReadinessInterval time.Duration // Poll interval for /status
	ReadinessAttempts int           // Number of /status polls before giving up

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger

	// StopTimeout bounds the auto-stop performed by Close when Stop was
	// skipped; zero falls back to process.DefaultStopTimeout.
	StopTimeout time.Duration
}

// Process manages an agent process lifecycle.
type Process struct {
	config Config
	base   process.BaseProcess
}

// validate checks that all required Config fields are set and returns an error
// describing the first missing or invalid field.
func (c Config) validate() error {
	if c.Binary == "" {
		return errors.New("binary path must not be empty")
	}
	if c.LogDir == "" {
		return errors.New("log dir must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if len(c.Env) == 0 {
		return errors.New("environment must not be empty")
	}
	if c.ReadinessInterval <= 0 {
		return errors.New("readiness interval must be positive")
	}
	if c.ReadinessAttempts <= 0 {
		return errors.New("readiness attempts must be positive")
	}
	return nil
}

// New creates a new agent Process with the given configuration.
// It returns an error if any required field is missing or invalid.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	return &Process{
		config: cfg,
		base:   process.NewBaseProcess("agent", cfg.Logger, cfg.StopTimeout),
	}, nil
}

// Start launches the agent process. The binary is invoked with the fixed
// "agent" subcommand and the environment supplied in Config.Env; nothing
// from the launch request reaches the argv.
func (p *Process) Start(ctx context.Context) error {
	if p.base.IsStarted() {
		return process.ErrAlreadyStarted
	}

	cmd := exec.CommandContext(ctx, p.config.Binary, agentSubcommand)
	cmd.Env = p.config.Env

	if err := p.base.SetupAndStart(cmd, p.config.WorkingDir, p.config.LogDir); err != nil {
		return fmt.Errorf("setup and start agent process: %w", err)
	}
	return nil
}

// WaitReady polls the /status endpoint until it returns a 2xx response.
// Every non-2xx outcome, including connection refusals while the agent is
// still binding its listener, consumes one attempt of the configured
// budget. Polling aborts early if the agent process exits.
func (p *Process) WaitReady(ctx context.Context) error {
	httpClient := &http.Client{
		Transport: &http.Transport{
			// DisableKeepAlives ensures each health-check request opens a
			// fresh connection that is closed immediately after the response
			// is read. Without this, the transport accumulates idle
			// connections across rapid polling attempts, especially when
			// early attempts fail because the agent is not yet listening.
			DisableKeepAlives: true,
		},
		Timeout: healthCheckTimeout,
	}
	defer httpClient.CloseIdleConnections()

	statusURL := fmt.Sprintf("http://127.0.0.1:%d/status", p.config.Port)

	log := p.base.Logger()
	if err := process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      p.config.ReadinessInterval,
		MaxAttempts:   p.config.ReadinessAttempts,
		Name:          "agent",
		Port:          p.config.Port,
		Logger:        log,
		ProcessExited: p.base.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, statusURL, http.NoBody)
		if err != nil {
			return false, fmt.Errorf("create status request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			if log.Enabled(checkCtx, slog.LevelDebug) {
				log.Debug("agent status attempt", "port", p.config.Port, "attempt", attempt, "error", err)
			}
			return false, nil
		}
		// Drain and close the response body so the underlying connection
		// is properly released back to the transport.
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body) // best-effort drain
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true, nil
		}
		if log.Enabled(checkCtx, slog.LevelDebug) {
			log.Debug("agent status attempt", "port", p.config.Port, "attempt", attempt, "status", resp.StatusCode)
		}
		return false, nil
	}); err != nil {
		return fmt.Errorf("agent not ready: %w", err)
	}
	return nil
}

// PID returns the OS process id of the agent, or 0 if it is not running.
func (p *Process) PID() int {
	return p.base.PID()
}

// Exited returns a channel closed when the agent process exits, or nil if
// the process has not been started.
func (p *Process) Exited() <-chan struct{} {
	return p.base.Exited()
}

// StdoutPath returns the path of the captured stdout log, valid after Start.
func (p *Process) StdoutPath() string {
	return p.base.StdoutPath()
}

// StderrPath returns the path of the captured stderr log, valid after Start.
func (p *Process) StderrPath() string {
	return p.base.StderrPath()
}

// Stop terminates the agent process with the given timeout.
func (p *Process) Stop(timeout time.Duration) error {
	return p.base.Stop(timeout)
}

// Close releases log file handles held by the process.
func (p *Process) Close() {
	p.base.Close()
}
