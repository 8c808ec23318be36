package audio

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

type ExecCmdCtx = func(ctx context.Context, name string, args ...string) Cmd

// Cmd is the subset of *exec.Cmd used to run the external tools.
type Cmd interface {
	Output() ([]byte, error)
	CombinedOutput() ([]byte, error)
}

// ToExecCmdCtx is needed because Go does not automatically convert return types
// to interfaces in function assignments, even if the return type does implement the interface.
// See https://stackoverflow.com/questions/57735694/duck-typing-go-functions
func ToExecCmdCtx[c Cmd](fn func(context.Context, string, ...string) c) ExecCmdCtx {
	return func(ctx context.Context, name string, arg ...string) Cmd {
		return fn(ctx, name, arg...)
	}
}

// runner executes one external tool invocation at a time.
// A zero timeout means the invocation may block until ctx is done.
type runner struct {
	execCmdCtx ExecCmdCtx
	timeout    time.Duration
}

// output returns stdout only. Diagnostics on stderr end up in the ToolError.
func (r runner) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.run(ctx, name, args, Cmd.Output)
}

func (r runner) combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.run(ctx, name, args, Cmd.CombinedOutput)
}

func (r runner) run(ctx context.Context, name string, args []string, fn func(Cmd) ([]byte, error)) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	slog.Debug("execute", "cmd", strings.Join(append([]string{name}, args...), " "))

	out, err := fn(r.execCmdCtx(ctx, name, args...))
	if err != nil {
		return nil, toolError(name, args, out, err)
	}
	return out, nil
}
