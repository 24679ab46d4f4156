package mergeerr

import (
	"errors"
)

const (
	ExitCodeFailure      = 1
	ExitCodeUsage        = 2
	ExitCodePrecondition = 3
	ExitCodeLookup       = 4
)

// ExitCodeError attaches a process exit code to err.
func ExitCodeError(err error, exitCode int) error {
	if err == nil {
		return nil
	}

	if exitCode <= 0 || 125 < exitCode {
		exitCode = ExitCodeFailure
	}

	return &exitCodeError{
		err:      err,
		exitCode: exitCode,
	}
}

type exitCodeError struct {
	err      error
	exitCode int
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func (e *exitCodeError) ExitCode() int {
	return e.exitCode
}

// ExitCode returns the exit code attached to err by ExitCodeError,
// 0 for a nil err and ExitCodeFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	ecerr := &exitCodeError{}
	if errors.As(err, &ecerr) {
		return ecerr.exitCode
	}

	return ExitCodeFailure
}
