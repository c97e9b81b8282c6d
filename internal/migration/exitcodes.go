package migration

import (
	"errors"
	"fmt"
)

// Process exit codes. Precondition failures carry distinct codes so that
// wrapping automation can tell why a run refused to start; anything
// unexpected during the main sequence collapses to ExitUnexpected.
const (
	ExitOK                  = 0
	ExitNotAuthenticated    = 2
	ExitCopyToolMissing     = 3
	ExitFeatureRegistration = 4
	ExitSourceVMNotFound    = 5
	ExitAlreadyEncrypted    = 6
	ExitNoOSDisk            = 7
	ExitNoNetworkInterfaces = 8
	ExitInvalidPlacement    = 9
	ExitCopyToolFailure     = 11
	ExitUnexpected          = 99
)

// ExitError couples an error with the process exit code it maps to.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exitf builds an ExitError with a formatted message.
func Exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error to a process exit code. Errors that do not carry an
// explicit code are unexpected failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUnexpected
}
