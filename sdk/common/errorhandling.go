package common

import (
	"fmt"
	"io"
	"os"
)

// ExitCodeFailure is returned to the shell for any transport, server, task or
// unexpected error.
const ExitCodeFailure = 1

var (
	osExit = os.Exit
	exit   = osExit
)

// ExitOnError exits the current program with ExitCodeFailure when an error
// presents. The message is written to errOut, not to the log, so that it is
// visible whatever the log level.
func ExitOnError(errOut io.Writer, err error, message string) {
	if err == nil {
		return
	}

	if message == "" {
		fmt.Fprintf(errOut, "Error: %s\n", err)
	} else {
		fmt.Fprintf(errOut, "%s: %s\n", message, err)
	}
	exit(ExitCodeFailure)
}
