package main

import "fmt"

// exitError carries the process exit code a command chose. A silent exit
// suppresses the final stderr line for failures the command already logged
// itself.
type exitError struct {
	code   int
	err    error
	silent bool
}

func silentExit(code int, err error) *exitError {
	return &exitError{code: code, err: err, silent: true}
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}
