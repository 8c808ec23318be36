package audio

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrNotExist is returned when the recording to probe or cut is missing.
	ErrNotExist = errors.New("audio file not found")

	// ErrMalformedOutput is returned when a tool succeeded but its output
	// could not be interpreted.
	ErrMalformedOutput = errors.New("malformed tool output")
)

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Cmd    string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("err: %s %s: %v", e.Cmd, strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func toolError(cmd string, args []string, out []byte, err error) error {
	// Output() keeps stderr on the exit error instead of returning it.
	var exitErr *exec.ExitError
	if len(out) == 0 && errors.As(err, &exitErr) {
		out = exitErr.Stderr
	}
	return &ToolError{
		Cmd:    cmd,
		Args:   args,
		Output: firstLine(string(out)),
		Err:    err,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	line, _, _ := strings.Cut(s, "\n")
	return line
}
