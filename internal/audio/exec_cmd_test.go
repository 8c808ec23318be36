package audio

import (
	"bytes"
	"context"
	"strings"
)

// newDummyCmdExec records every command line in buf and answers with out and err.
func newDummyCmdExec(buf *bytes.Buffer, out string, err error) func(context.Context, string, ...string) dummyCmd {
	return func(_ context.Context, cmd string, args ...string) dummyCmd {
		buf.WriteString(strings.Join(append([]string{cmd}, args...), " ") + "\n")
		return dummyCmd{out: []byte(out), err: err}
	}
}

type dummyCmd struct {
	out []byte
	err error
}

func (c dummyCmd) Output() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.out, nil
}

func (c dummyCmd) CombinedOutput() ([]byte, error) {
	return c.out, c.err
}
