package core

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/giantswarm/agentenv/internal/sentinel"
)

// ErrBinaryNotFound is returned by the default locator when no candidate
// for the logical binary name exists in any search location.
const ErrBinaryNotFound = sentinel.Error("agent binary not found")

// BinaryLocator resolves a logical binary name to a candidate executable
// path. The returned path is only a candidate: the supervisor still runs
// it through path security validation before spawning anything.
type BinaryLocator interface {
	Locate(name string) (string, error)
}

// DefaultLocator searches a fixed sequence of directories for the agent
// binary: the install directory, the packaged-resources directory, the
// directory of the running executable, the process start directory, and
// finally PATH. The first existing regular file wins.
type DefaultLocator struct {
	// InstallDir is where the host application is installed. Optional.
	InstallDir string
	// ResourcesDir is where packaged binaries ship with the host. Optional.
	ResourcesDir string

	exeDir   string
	startDir string
}

// NewDefaultLocator creates a DefaultLocator. The running executable's
// directory and the process start directory are captured once here, so
// later chdir calls do not move the search space.
func NewDefaultLocator(installDir, resourcesDir string) *DefaultLocator {
	l := &DefaultLocator{
		InstallDir:   installDir,
		ResourcesDir: resourcesDir,
	}
	if exe, err := os.Executable(); err == nil {
		l.exeDir = filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		l.startDir = wd
	}
	return l
}

// Roots returns the directories a located binary is allowed to live under.
// Used as the default allowed-roots set for executable validation.
func (l *DefaultLocator) Roots() []string {
	var roots []string
	for _, dir := range []string{l.InstallDir, l.ResourcesDir, l.exeDir, l.startDir} {
		if dir != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

// Locate returns the first existing regular file named name in the search
// sequence, falling back to PATH lookup. Returns ErrBinaryNotFound when no
// location yields a candidate.
func (l *DefaultLocator) Locate(name string) (string, error) {
	for _, dir := range []string{l.InstallDir, l.ResourcesDir, l.exeDir, l.startDir} {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		// LookPath can return a relative path when name is found relative
		// to the current directory; validation requires absolute paths.
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("locate %s: %w", name, err)
		}
		return abs, nil
	}

	return "", fmt.Errorf("locate %s: %w", name, ErrBinaryNotFound)
}
