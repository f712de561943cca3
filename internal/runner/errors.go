package runner

import (
	"errors"
	"fmt"
)

// ExecError kinds. A timeout may be retried once per phase with an
// increased timeout; the others propagate immediately.
const (
	KindTimeout    = "timeout"
	KindCrash      = "crash"
	KindPatchApply = "patch_apply"
)

// ExecError is an execution failure: the command did not run to
// completion, distinct from tests that ran and failed.
type ExecError struct {
	Kind   string
	Detail string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execution failure (%s): %s", e.Kind, e.Detail)
}

// IsTimeout reports whether err is a timeout ExecError.
func IsTimeout(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee) && ee.Kind == KindTimeout
}
