package steps

import "github.com/valeger/automl/internal/errs"

// apiNotFound reports whether err represents a platform NotFound response,
// used to choose between create and replace when reconciling a deployment.
func apiNotFound(err error) bool {
	return errs.IsNotFound(err)
}

// classifyKindTimeout extracts a *errs.Error if err is a KindTimeout
// failure, the signal that tells the service executor to roll back.
func classifyKindTimeout(err error) (*errs.Error, bool) {
	classified, ok := errs.As(err)
	if !ok || classified.Kind != errs.KindTimeout {
		return nil, false
	}
	return classified, true
}
