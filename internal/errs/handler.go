package errs

import (
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

const maxTraceLen = 2048

// Handle is the single top-level boundary: it pattern-matches the error
// taxonomy and emits exactly one user-visible log line per failure. Domain
// errors (Value, OS, Git, Timeout, StopExecution, HTTP) print only their
// message; Platform and Transport errors also carry the endpoint and code;
// Unexpected errors carry a truncated stack trace.
func Handle(logger *zap.Logger, err error) {
	if err == nil {
		return
	}

	classified, ok := As(err)
	if !ok {
		logger.Error("unexpected error",
			zap.Error(err),
			zap.String("trace", truncate(string(debug.Stack()), maxTraceLen)),
		)
		return
	}

	switch classified.Kind {
	case KindValue, KindOS, KindGit, KindTimeout, KindStopExecution, KindHTTP:
		logger.Error(classified.Error())
	case KindPlatform, KindTransport:
		logger.Error(classified.Error(),
			zap.String("endpoint", classified.Endpoint),
			zap.Int("code", classified.Code),
		)
	case KindAuth:
		logger.Error(classified.Error(), zap.NamedError("cause", classified.Cause))
	default:
		logger.Error("unexpected error",
			zap.Error(classified),
			zap.String("trace", truncate(string(debug.Stack()), maxTraceLen)),
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// ExitCode maps a classified error to the process exit code used by the
// driver command-line surface: 0 only for nil, non-zero for every
// classified failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// AuthContext names whether credentials are expected in-cluster or out of
// cluster, mirroring the source's distinction in its config-exception path.
func AuthContext(inCluster bool) string {
	if inCluster {
		return strings.TrimSpace("in-cluster (running inside a driver pod)")
	}
	return "out-of-cluster (expects a local kubeconfig)"
}
