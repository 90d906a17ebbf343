package execpool

import (
	"github.com/coreexec/execpool/pkg/logging"
	"go.uber.org/zap"
)

// NewComponentLogger builds an Options.Logger tagged with component,
// backed by this module's shared zap-based logging façade (pkg/logging)
// rather than constructing a *zap.Logger by hand at every call site that
// builds an Options value.
func NewComponentLogger(component string, level logging.LogLevel) *zap.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Component = component
	return logging.NewLogger(cfg).Zap()
}
