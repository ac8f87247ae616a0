package cli

import "fmt"

const (
	ExitCodeFailure = 1
	// ExitCodeInvalid means the input was checked and rejected: violations,
	// rejected files or a server-side rejection.
	ExitCodeInvalid = 2
)

// ExitError carries a process status. Err is printed when set; an ExitError
// without Err exits quietly because the command already reported the
// problem.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func invalid() error {
	return &ExitError{Code: ExitCodeInvalid}
}
