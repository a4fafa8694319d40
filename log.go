package agentenv

import (
	"log/slog"

	"github.com/giantswarm/agentenv/internal/core"
)

// SetLogger replaces the package-level logger used by agentenv. This
// allows host applications to integrate agentenv logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; agentenv will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other agentenv operations.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
