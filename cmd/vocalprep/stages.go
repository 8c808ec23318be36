package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrclmr/vocalprep/internal/audio"
	"github.com/mrclmr/vocalprep/internal/config"
	"github.com/mrclmr/vocalprep/internal/manifest"
	"github.com/mrclmr/vocalprep/internal/segment"
	"github.com/mrclmr/vocalprep/internal/split"
	"github.com/mrclmr/vocalprep/internal/storage"
)

// artifacts lists the files a publish copies, in the order they are produced.
var artifacts = []string{
	segment.StatisticsFile,
	manifest.MappingFile,
	manifest.ManifestFile,
	split.TrainFile,
	split.EvalFile,
}

func (a *app) prober() audio.Prober {
	if a.cfg.Probe == config.ProbeWav {
		return audio.WavProbe{}
	}
	return audio.NewFFProbe(a.execCmdCtx, a.cfg.FFprobePath, a.cfg.ToolTimeout)
}

// segment returns the per-recording failures joined in err while stats is
// non-nil. A nil stats means the run did not complete.
func (a *app) segment(ctx context.Context) (*segment.Stats, error) {
	s := segment.New(
		a.prober(),
		audio.NewFFmpeg(a.execCmdCtx, a.cfg.FFmpegPath, a.cfg.ToolTimeout),
		segment.Options{
			SourceDir:     a.cfg.SourceDir,
			OutputDir:     a.cfg.OutputDir,
			SegmentLength: a.cfg.SegmentLength,
			Extensions:    a.cfg.Extensions,
			SpeakerDepth:  a.cfg.SpeakerDepth,
			Jobs:          a.cfg.Jobs,
			Progress:      a.progressOut(),
		},
	)
	return s.Run(ctx)
}

// manifest lists the clips the segmenter wrote, whatever the source format was.
func (a *app) manifest(ctx context.Context) (*manifest.Result, error) {
	return manifest.NewBuilder(a.cfg.OutputDir, []string{segment.ClipExt}, a.progressOut()).Build(ctx)
}

func (a *app) split() (*split.Result, error) {
	p, err := split.NewPolicy(a.cfg.Split.EvalFraction, a.cfg.Split.HoldoutCount, a.cfg.Split.HoldoutLabels)
	if err != nil {
		return nil, err
	}
	return split.Dir(a.cfg.OutputDir, manifest.ManifestFile, p, split.NewRand(a.cfg.Split.Seed))
}

func (a *app) publishConfigured() bool {
	return a.cfg.Publish.Dir != "" || a.cfg.Publish.S3.Bucket != ""
}

func (a *app) publisher(ctx context.Context) (storage.Publisher, error) {
	if a.cfg.Publish.Dir != "" {
		return storage.NewDirPublisher(a.cfg.Publish.Dir)
	}
	s3 := a.cfg.Publish.S3
	return storage.NewS3Publisher(ctx, storage.S3Config{
		Bucket:          s3.Bucket,
		Region:          s3.Region,
		Endpoint:        s3.Endpoint,
		Prefix:          s3.Prefix,
		AccessKeyID:     s3.AccessKeyID,
		SecretAccessKey: s3.SecretAccessKey,
	})
}

func (a *app) publish(ctx context.Context) ([]string, error) {
	p, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	return storage.PublishFiles(ctx, p, a.cfg.OutputDir, artifacts)
}

// pipeline runs every stage. Segment failures are reported at the end
// and do not stop the following stages.
func (a *app) pipeline(ctx context.Context) error {
	stats, segErr := a.segment(ctx)
	if stats == nil {
		return segErr
	}
	if segErr != nil {
		segErr = fmt.Errorf("segment: %w", segErr)
	}

	if _, err := a.manifest(ctx); err != nil {
		return errors.Join(segErr, err)
	}
	if _, err := a.split(); err != nil {
		return errors.Join(segErr, err)
	}
	if a.publishConfigured() {
		if _, err := a.publish(ctx); err != nil {
			return errors.Join(segErr, err)
		}
	}
	return segErr
}
