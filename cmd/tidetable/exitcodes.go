package main

import "fmt"

// Exit codes for the tidetable CLI.
const (
	ExitOK          = 0 // Command succeeded, or found nothing to write.
	ExitFailure     = 1 // Runtime failure: fetch, parse or write error.
	ExitInvalidArgs = 2 // Bad flags or configuration.
	ExitInvalid     = 3 // validate found problems.
)

type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitCodeError{code: code, msg: fmt.Sprintf(format, args...)}
}
