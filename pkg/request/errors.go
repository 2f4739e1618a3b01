package request

import (
	"errors"
	"fmt"
)

// ErrNativeCreationFailed wraps the underlying cause when the debuggee
// refuses to create a native request (§7). Internal state is rolled back
// before this is returned.
var ErrNativeCreationFailed = errors.New("native request creation failed")

// ErrTerminalVM is returned by create calls once the manager has observed
// vm-death/vm-disconnect; it fails fast instead of attempting a doomed
// native create (§7, §5).
var ErrTerminalVM = errors.New("debuggee vm is terminal")

// CreationError carries the native cause alongside ErrNativeCreationFailed
// so callers can both errors.Is(err, ErrNativeCreationFailed) and inspect
// the original error.
type CreationError struct {
	Kind string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, ErrNativeCreationFailed, e.Err)
}

func (e *CreationError) Unwrap() error {
	return errors.Join(ErrNativeCreationFailed, e.Err)
}
