package execpool

import (
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options configures executor construction. It is the functional surface
// over the three-parameter constructor spec.md §4.5.1 describes
// (core_size, max_size, name_prefix) plus the ambient concerns (logging,
// metrics, rejection policy) a production pool needs.
//
// Grounded in the teacher's pkg/common/config precedence convention
// (environment variable overrides layered over explicit values layered
// over defaults, applied in applyEnvironmentOverrides) — rewritten here
// for this package's much smaller option set rather than kept verbatim,
// since the teacher's config.go is a 1400-line NoiseFS-specific surface
// with nothing else reusable as-is.
//
// KeepNonCoreAlive is carried (and loaded by LoadOptionsFromEnv) but not
// read by the constructors: every Executor starts with non-core keep-alive
// on, and only SetKeepNonCoreThreadAlive changes it.
type Options struct {
	CoreSize         int
	MaxSize          int
	NamePrefix       string
	KeepNonCoreAlive bool
	RejectPolicy     RejectionPolicy
	Logger           *zap.Logger
	Registerer       prometheus.Registerer
}

// LoadOptionsFromEnv layers <PREFIX>_CORE_SIZE, <PREFIX>_MAX_SIZE, and
// <PREFIX>_KEEP_NON_CORE_ALIVE environment variables over defaults, the
// same override-only-if-set pattern the teacher's
// applyEnvironmentOverrides uses: unparsable or absent values are silently
// skipped in favor of whatever default was passed in.
func LoadOptionsFromEnv(prefix string, defaults Options) Options {
	opts := defaults
	prefix = strings.ToUpper(prefix)

	if v := os.Getenv(prefix + "_CORE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.CoreSize = n
		}
	}
	if v := os.Getenv(prefix + "_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.MaxSize = n
		}
	}
	if v := os.Getenv(prefix + "_KEEP_NON_CORE_ALIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.KeepNonCoreAlive = b
		}
	}
	return opts
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) rejectPolicy() RejectionPolicy {
	if o.RejectPolicy != nil {
		return o.RejectPolicy
	}
	return AbortPolicy{}
}
