package envutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Names of the variables the supervisor injects into every agent process.
const (
	// PortVar carries the allocated loopback port the agent must bind.
	PortVar = "GOOSE_PORT"
	// SecretVar carries the shared secret the host uses to authenticate
	// subsequent HTTP calls against the agent.
	SecretVar = "GOOSE_SERVER__SECRET_KEY"
)

// redactedPlaceholder replaces sensitive values in the redacted view.
const redactedPlaceholder = "*****"

// redactionMarkers are matched case-insensitively against variable names;
// any hit masks the value in the redacted view.
var redactionMarkers = []string{"SECRET", "PASSWORD", "TOKEN"}

// Bundle is the composed environment for a single launch. It is built
// fresh per launch and never persisted. Precedence, lowest to highest:
// inherited host environment, deterministic supervisor overrides, caller
// overrides.
type Bundle struct {
	vars map[string]string
}

// Params carries the inputs for Build.
type Params struct {
	// Base is the inherited host environment in os.Environ format.
	Base []string
	// Overrides are caller-supplied variables applied last.
	Overrides map[string]string
	// Port is the allocated loopback port, exported as PortVar.
	Port int
	// ExecutablePath locates the agent binary; its directory is prefixed
	// onto PATH so the agent can find sibling tools.
	ExecutablePath string
	// HomeDir is exported as the platform home-equivalent variables.
	HomeDir string
	// Secret, when non-empty, is exported as SecretVar.
	Secret string
}

// Build composes the child process environment. Deterministic supervisor
// variables overwrite inherited ones; caller overrides win over both.
func Build(p Params) *Bundle {
	vars := make(map[string]string, len(p.Base)+8)
	for _, kv := range p.Base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}

	if p.HomeDir != "" {
		// Both the POSIX and Windows profile variables are set
		// unconditionally; the agent reads whichever its platform uses.
		vars["HOME"] = p.HomeDir
		vars["USERPROFILE"] = p.HomeDir
		// The roaming and local app-data locations are derived from the
		// profile only when the host did not already provide them, so a
		// relocated AppData stays intact.
		if _, ok := vars["APPDATA"]; !ok {
			vars["APPDATA"] = filepath.Join(p.HomeDir, "AppData", "Roaming")
		}
		if _, ok := vars["LOCALAPPDATA"]; !ok {
			vars["LOCALAPPDATA"] = filepath.Join(p.HomeDir, "AppData", "Local")
		}
	}

	if p.ExecutablePath != "" {
		exeDir := filepath.Dir(p.ExecutablePath)
		if path := vars["PATH"]; path != "" {
			vars["PATH"] = exeDir + string(os.PathListSeparator) + path
		} else {
			vars["PATH"] = exeDir
		}
	}

	vars[PortVar] = fmt.Sprintf("%d", p.Port)

	if p.Secret != "" {
		vars[SecretVar] = p.Secret
	}

	for k, v := range p.Overrides {
		vars[k] = v
	}

	return &Bundle{vars: vars}
}

// Get returns the value of a variable, or "" when unset.
func (b *Bundle) Get(key string) string {
	return b.vars[key]
}

// Environ renders the bundle in os.Environ format, sorted by name so the
// output is deterministic across launches.
func (b *Bundle) Environ() []string {
	out := make([]string, 0, len(b.vars))
	for k, v := range b.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Redacted returns a copy of the bundle safe for logging: any variable
// whose name contains SECRET, PASSWORD, or TOKEN (case-insensitive) has
// its value masked.
func (b *Bundle) Redacted() map[string]string {
	out := make(map[string]string, len(b.vars))
	for k, v := range b.vars {
		if isSensitive(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}

// isSensitive reports whether the variable name marks a secret.
func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range redactionMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
