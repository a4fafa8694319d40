package pathsec

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/giantswarm/agentenv/internal/sentinel"
)

// ErrPathSecurity is the sentinel all path validation failures match via
// errors.Is. The concrete error is always a *SecurityError carrying the
// rejected candidate for audit logging.
const ErrPathSecurity = sentinel.Error("path failed security validation")

// workingDirMeta lists the substrings rejected in a normalized working
// directory. `..` covers traversal; the rest cover shell injection if the
// path ever reaches a shell-interpreted context.
var workingDirMeta = []string{"..", ";", "|", "&"}

// executableMeta extends workingDirMeta with backtick and dollar, which
// enable command substitution.
var executableMeta = []string{"..", ";", "|", "&", "`", "$"}

// windowsExeSuffix is appended to executable candidates on Windows when
// the suffix is missing, so that stat and spawn agree on the real file.
const windowsExeSuffix = ".exe"

// ValidatedPath is an absolute, resolved path plus its provenance. It is
// produced only by this package; the supervisor never constructs one.
type ValidatedPath struct {
	// Path is absolute and cleaned.
	Path string
	// FallbackUsed reports that a caller-supplied working directory
	// candidate failed validation and the home directory was substituted.
	// It is false when the candidate passed validation or when no
	// candidate was supplied (defaulting is not a fallback).
	FallbackUsed bool
}

// SecurityError reports a path that failed validation. The candidate is
// retained for audit logging; it is never executed.
type SecurityError struct {
	Candidate string
	Reason    string
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	return fmt.Sprintf("path security: %s: %q", e.Reason, e.Candidate)
}

// Is reports a match against ErrPathSecurity so callers can use errors.Is
// without knowing the concrete type.
func (e *SecurityError) Is(target error) bool {
	return target == ErrPathSecurity
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ResolveWorkingDir normalizes a candidate working directory for an agent
// launch. An empty candidate defaults to the user home directory. A
// candidate containing shell metacharacters is rejected with a
// *SecurityError. Any other validation failure (symlink, not a directory,
// stat error) falls back to the home directory with a warning: launches
// degrade rather than fail over a stale or mistyped project path.
func ResolveWorkingDir(candidate string, log *slog.Logger) (ValidatedPath, error) {
	if log == nil {
		log = slog.Default()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ValidatedPath{}, fmt.Errorf("resolve user home directory: %w", err)
	}

	if candidate == "" {
		return ValidatedPath{Path: home}, nil
	}

	normalized, err := filepath.Abs(filepath.Clean(candidate))
	if err != nil {
		log.Warn("working directory not normalizable, falling back to home",
			"candidate", candidate, "error", err)
		return ValidatedPath{Path: home, FallbackUsed: true}, nil
	}

	if containsAny(normalized, workingDirMeta) {
		return ValidatedPath{}, &SecurityError{
			Candidate: normalized,
			Reason:    "working directory contains shell metacharacters",
		}
	}

	info, err := os.Lstat(normalized)
	switch {
	case err != nil:
		log.Warn("working directory not statable, falling back to home",
			"candidate", normalized, "error", err)
		return ValidatedPath{Path: home, FallbackUsed: true}, nil
	case info.Mode()&os.ModeSymlink != 0:
		log.Warn("working directory is a symbolic link, falling back to home",
			"candidate", normalized)
		return ValidatedPath{Path: home, FallbackUsed: true}, nil
	case !info.IsDir():
		log.Warn("working directory is not a directory, falling back to home",
			"candidate", normalized)
		return ValidatedPath{Path: home, FallbackUsed: true}, nil
	}

	return ValidatedPath{Path: normalized}, nil
}

// ResolveExecutable validates a candidate executable path obtained from
// the binary locator. The candidate must be free of shell metacharacters,
// lie under one of the allowed root directories, and be an existing
// regular file. On Windows the platform executable suffix is appended
// first when missing. Every rejection is a *SecurityError carrying the
// candidate; the candidate is never executed.
func ResolveExecutable(candidate string, allowedRoots []string) (ValidatedPath, error) {
	return resolveExecutable(candidate, allowedRoots, runtime.GOOS)
}

// resolveExecutable is ResolveExecutable with the platform injected for
// tests.
func resolveExecutable(candidate string, allowedRoots []string, goos string) (ValidatedPath, error) {
	if candidate == "" {
		return ValidatedPath{}, &SecurityError{
			Candidate: candidate,
			Reason:    "executable candidate is empty",
		}
	}

	if containsAny(candidate, executableMeta) {
		return ValidatedPath{}, &SecurityError{
			Candidate: candidate,
			Reason:    "executable path contains shell metacharacters",
		}
	}

	normalized, err := filepath.Abs(filepath.Clean(candidate))
	if err != nil {
		return ValidatedPath{}, &SecurityError{
			Candidate: candidate,
			Reason:    fmt.Sprintf("executable path not normalizable: %v", err),
		}
	}

	if goos == "windows" && !strings.EqualFold(filepath.Ext(normalized), windowsExeSuffix) {
		normalized += windowsExeSuffix
	}

	if !underAnyRoot(normalized, allowedRoots) {
		return ValidatedPath{}, &SecurityError{
			Candidate: normalized,
			Reason:    "executable path outside all allowed root directories",
		}
	}

	info, err := os.Stat(normalized)
	switch {
	case err != nil:
		return ValidatedPath{}, &SecurityError{
			Candidate: normalized,
			Reason:    fmt.Sprintf("executable not statable: %v", err),
		}
	case !info.Mode().IsRegular():
		return ValidatedPath{}, &SecurityError{
			Candidate: normalized,
			Reason:    "executable is not a regular file",
		}
	}

	return ValidatedPath{Path: normalized}, nil
}

// underAnyRoot reports whether path lies under (or equals) one of the
// given root directories. Empty roots are skipped.
func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
