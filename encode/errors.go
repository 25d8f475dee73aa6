package encode

import "fmt"

// ToolchainError reports a failed assembler or objcopy invocation.
type ToolchainError struct {
	Tool     string
	Source   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolchainError) Error() string {
	msg := fmt.Sprintf("%s failed (exit status %d): %v", e.Tool, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}

	if e.Source != "" {
		msg += "\nsource: " + e.Source
	}

	return msg
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}
