// Package segment cuts source recordings into fixed length clips,
// one output directory per speaker.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrclmr/vocalprep/internal/audio"
	"github.com/mrclmr/vocalprep/internal/progress"
)

// ClipExt is the container every clip is written in.
const ClipExt = ".wav"

var (
	ErrShallowPath          = errors.New("recording is not below a speaker directory")
	ErrInvalidSegmentLength = errors.New("segment length must be positive")
)

type Options struct {
	SourceDir     string
	OutputDir     string
	SegmentLength time.Duration
	Extensions    []string
	// SpeakerDepth selects the path component below SourceDir that
	// names the speaker. 0 is the first directory under SourceDir.
	SpeakerDepth int
	// Jobs is the number of speakers processed concurrently.
	Jobs int
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

type Segmenter struct {
	prober    audio.Prober
	extractor audio.Extractor
	opts      Options
}

func New(prober audio.Prober, extractor audio.Extractor, opts Options) *Segmenter {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Segmenter{
		prober:    prober,
		extractor: extractor,
		opts:      opts,
	}
}

type recording struct {
	path    string
	speaker string
}

// Run segments every recording and writes StatisticsFile into the output
// directory. Failed probes and extractions do not stop the run; they are
// returned joined after all recordings were processed.
func (s *Segmenter) Run(ctx context.Context) (*Stats, error) {
	if s.opts.SegmentLength <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSegmentLength, s.opts.SegmentLength)
	}
	sc, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return nil, err
	}

	r := &run{
		Segmenter: s,
		stats:     newStats(sc.found),
		bar:       progress.New(ctx, s.opts.Progress, "Splitting files", sc.found),
	}
	for range sc.shallow {
		r.stats.skip()
		r.bar.Increment()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)
	for _, speaker := range sc.speakers {
		g.Go(func() error {
			return r.segmentSpeaker(gctx, speaker, sc.bySpeaker[speaker])
		})
	}
	err = g.Wait()
	r.bar.Wait()
	if err != nil {
		return nil, err
	}

	statsPath := filepath.Join(s.opts.OutputDir, StatisticsFile)
	if err := writeStats(statsPath, r.stats); err != nil {
		return nil, err
	}
	slog.Info("statistics written",
		"path", statsPath,
		"recordings", r.stats.Found(),
		"skipped", r.stats.Skipped(),
		"speakers", len(r.stats.Speakers()),
		"seconds", roundSeconds(r.stats.Overall()),
	)
	return r.stats, errors.Join(r.failures...)
}

// run holds the state of one Segmenter.Run call.
type run struct {
	*Segmenter
	stats *Stats
	bar   *progress.Bar

	mu       sync.Mutex
	failures []error
}

// segmentSpeaker is the only writer of the speaker's output directory.
func (r *run) segmentSpeaker(ctx context.Context, speaker string, recs []recording) error {
	c := &counter{dir: filepath.Join(r.opts.OutputDir, speaker)}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.segmentRecording(ctx, rec, c); err != nil {
			return err
		}
		r.bar.Increment()
	}
	return nil
}

// segmentRecording only returns errors that must stop the run.
func (r *run) segmentRecording(ctx context.Context, rec recording, c *counter) error {
	slog.Debug("splitting file", "path", rec.path)

	dur, err := r.prober.Duration(ctx, rec.path)
	switch {
	case errors.Is(err, audio.ErrNotExist):
		slog.Warn("file not found, skipping", "path", rec.path)
		r.stats.skip()
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		slog.Error("probe failed, skipping", "path", rec.path, "err", err)
		r.stats.skip()
		r.fail(fmt.Errorf("probe %s: %w", rec.path, err))
		return nil
	}

	count := int(dur / r.opts.SegmentLength)
	for i := range count {
		n, err := c.next()
		if err != nil {
			return err
		}
		dst := filepath.Join(c.dir, fmt.Sprintf("%s_%d%s", rec.speaker, n, ClipExt))
		start := time.Duration(i) * r.opts.SegmentLength
		err = r.extractor.Extract(ctx, rec.path, start, r.opts.SegmentLength, dst)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("segment failed", "path", rec.path, "segment", i, "err", err)
			r.fail(fmt.Errorf("segment %d of %s: %w", i, rec.path, err))
			// A partially written clip still occupies its number.
			if _, statErr := os.Stat(dst); statErr == nil {
				c.advance()
			}
			continue
		}
		c.advance()
	}

	r.stats.add(rec.speaker, dur)
	slog.Info("split", "path", rec.path, "segments", count)
	return nil
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

type scanResult struct {
	// speakers keeps the order in which speakers were first seen.
	speakers  []string
	bySpeaker map[string][]recording
	found     int
	shallow   int
}

func (s *Segmenter) scan(ctx context.Context) (*scanResult, error) {
	sc := &scanResult{bySpeaker: make(map[string][]recording)}

	root := filepath.Clean(s.opts.SourceDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") || !audio.HasExtension(path, s.opts.Extensions) {
			return nil
		}
		sc.found++
		speaker, err := speakerOf(root, path, s.opts.SpeakerDepth)
		if errors.Is(err, ErrShallowPath) {
			slog.Warn("no speaker directory, skipping", "path", path, "speaker_depth", s.opts.SpeakerDepth)
			sc.shallow++
			return nil
		}
		if err != nil {
			return err
		}
		if _, ok := sc.bySpeaker[speaker]; !ok {
			sc.speakers = append(sc.speakers, speaker)
		}
		sc.bySpeaker[speaker] = append(sc.bySpeaker[speaker], recording{path: path, speaker: speaker})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.opts.SourceDir, err)
	}
	return sc, nil
}

func speakerOf(root, path string, depth int) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	if filepath.Dir(rel) == "." || depth >= len(dirs) {
		return "", fmt.Errorf("%w: %s", ErrShallowPath, path)
	}
	return audio.NormalizeName(dirs[depth]), nil
}

func writeStats(path string, stats *Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := stats.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// counter numbers the clips of one speaker directory. It is seeded once
// from the entries already present so reruns append instead of overwrite.
type counter struct {
	dir    string
	seeded bool
	last   int
}

// next returns the number for the next clip without consuming it.
func (c *counter) next() (int, error) {
	if !c.seeded {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return 0, err
		}
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			return 0, err
		}
		c.last = len(entries)
		c.seeded = true
	}
	return c.last + 1, nil
}

func (c *counter) advance() {
	c.last++
}
