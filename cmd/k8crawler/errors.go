package main

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// exitError carries the process exit code of a command failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// configError marks err as an invalid configuration (exit code 2).
func configError(err error) error {
	return &exitError{code: exitConfig, err: fmt.Errorf("configuration error: %w", err)}
}

// failedError marks err as a failed run (exit code 1).
func failedError(err error) error {
	return &exitError{code: exitFailed, err: err}
}

// exitCode returns the process exit code for err.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitFailed
}
