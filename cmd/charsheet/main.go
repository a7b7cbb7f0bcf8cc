// Package main provides the charsheet CLI: create, inspect and edit
// characters stored in a local SQLite-backed store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "charsheet:", err)
	}
	os.Exit(exitCode(err))
}

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// sysErr marks err as a system failure (exit code 2).
func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to the process exit code. Rejected input and
// missing characters are user errors; store failures are system errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var te *types.TransportError
	if errors.As(err, &te) {
		return exitSysError
	}
	return exitUserError
}
