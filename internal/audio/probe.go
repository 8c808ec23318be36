package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// Prober measures the duration of a recording.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe asks ffprobe for the container duration.
type FFProbe struct {
	run  runner
	path string
}

// NewFFProbe returns an FFProbe. An empty ffprobePath resolves "ffprobe" from PATH.
func NewFFProbe(execCmdCtx ExecCmdCtx, ffprobePath string, timeout time.Duration) *FFProbe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFProbe{
		run:  runner{execCmdCtx: execCmdCtx, timeout: timeout},
		path: ffprobePath,
	}
}

func (p *FFProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	if err := checkExists(path); err != nil {
		return 0, err
	}
	out, err := p.run.output(ctx, p.path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseSeconds(out)
}

// WavProbe reads the duration from the RIFF header without spawning a process.
type WavProbe struct{}

func (WavProbe) Duration(ctx context.Context, path string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("%w: %s is not a valid wav file", ErrMalformedOutput, path)
	}
	if err := d.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformedOutput, path, err)
	}
	if d.AvgBytesPerSec == 0 {
		return 0, fmt.Errorf("%w: %s has no byte rate", ErrMalformedOutput, path)
	}
	return time.Duration(float64(d.PCMLen()) / float64(d.AvgBytesPerSec) * float64(time.Second)), nil
}

func parseSeconds(out []byte) (time.Duration, error) {
	var (
		float float64
		err   = errors.New("empty output")
	)
	for l := range strings.Lines(string(out)) {
		float, err = strconv.ParseFloat(strings.TrimSpace(l), 64)
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("%w: no parsable float in %q: %w", ErrMalformedOutput, string(out), err)
	}
	if float < 0 || math.IsNaN(float) || math.IsInf(float, 0) {
		return 0, fmt.Errorf("%w: invalid duration %v", ErrMalformedOutput, float)
	}
	return time.Duration(float * float64(time.Second)), nil
}

func checkExists(path string) error {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return err
}
