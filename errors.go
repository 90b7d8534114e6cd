package incrementum

import (
	"errors"
	"fmt"
)

// Error kinds, per spec.md §7 ERROR HANDLING DESIGN. These are sentinel
// values, not type names: callers use errors.Is against them.
var (
	// ErrInvalidArgument marks a nil/empty argument to a non-nullable
	// parameter — fatal, caller bug.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState marks an operation on a closed or committed context,
	// commit after close, or add_message without a prior clear_messages —
	// fatal, caller bug.
	ErrIllegalState = errors.New("illegal state")

	// ErrDecode marks a state file that is present but unreadable; the
	// caller recovers locally by treating the state as absent.
	ErrDecode = errors.New("state decode failed")

	// ErrBuildFailed is the terminal outcome of Commit when persisted
	// error-severity messages remain under any queried PathSet.
	ErrBuildFailed = errors.New("build failed")
)

// BuildFailedError carries the error count of a failed commit
// (spec.md §7 "BuildFailed{error_count}").
type BuildFailedError struct {
	ErrorCount int
}

func (e *BuildFailedError) Error() string {
	plural := "s"
	if e.ErrorCount == 1 {
		plural = ""
	}
	return fmt.Sprintf("%d error%s encountered, please see previous log/builds for more details", e.ErrorCount, plural)
}

func (e *BuildFailedError) Unwrap() error { return ErrBuildFailed }

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func illegalStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalState, fmt.Sprintf(format, args...))
}
