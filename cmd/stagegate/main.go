package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess       = 0 // All cards processed
	ExitProcessFailed = 1 // One or more cards failed processing
	ExitError         = 2 // Configuration or runtime error
)

// ProcessFailureError indicates that the run itself completed, but one
// or more cards could not be processed.
type ProcessFailureError struct {
	Message string
}

func (e *ProcessFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var processErr *ProcessFailureError
		if errors.As(err, &processErr) {
			os.Exit(ExitProcessFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
