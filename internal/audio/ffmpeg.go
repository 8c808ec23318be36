package audio

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Extractor cuts the window [start, start+length) of src into dst.
type Extractor interface {
	Extract(ctx context.Context, src string, start, length time.Duration, dst string) error
}

type FFmpeg struct {
	run  runner
	path string
}

// NewFFmpeg returns an FFmpeg extractor. An empty ffmpegPath resolves "ffmpeg" from PATH.
func NewFFmpeg(execCmdCtx ExecCmdCtx, ffmpegPath string, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		run:  runner{execCmdCtx: execCmdCtx, timeout: timeout},
		path: ffmpegPath,
	}
}

func (f *FFmpeg) Extract(ctx context.Context, src string, start, length time.Duration, dst string) error {
	if err := checkExists(src); err != nil {
		return err
	}
	_, err := f.run.combinedOutput(ctx, f.path, extractArgs(src, start, length, dst)...)
	return err
}

func extractArgs(src string, start, length time.Duration, dst string) []string {
	args := []string{
		// -n refuses to overwrite instead of prompting on stdin.
		"-nostdin", "-hide_banner", "-loglevel", "error", "-n",
		"-i", src,
		"-ss", seconds(start),
		"-t", seconds(length),
	}
	// Stream copy only works when the container does not change.
	if strings.EqualFold(filepath.Ext(src), filepath.Ext(dst)) {
		args = append(args, "-c", "copy")
	}
	return append(args, dst)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
