package agentenv

import "github.com/giantswarm/agentenv/internal/core"

// supervisorConfig holds configuration for a Supervisor. This unexported
// type wraps core.SupervisorConfig via embedding, keeping internal/core
// types out of the public API signature while avoiding field-by-field
// duplication. installDir and resourcesDir feed the default locator when
// no custom locator is configured.
type supervisorConfig struct {
	core.SupervisorConfig

	installDir   string
	resourcesDir string
}

// toCoreConfig returns the embedded core.SupervisorConfig.
func (c supervisorConfig) toCoreConfig() core.SupervisorConfig {
	return c.SupervisorConfig
}
