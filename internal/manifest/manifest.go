// Package manifest turns a tree of per-speaker clip directories into
// a "path|label" manifest and a speaker to label mapping.
package manifest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrclmr/vocalprep/internal/audio"
	"github.com/mrclmr/vocalprep/internal/listfile"
	"github.com/mrclmr/vocalprep/internal/progress"
)

const (
	MappingFile  = "singer_to_label_mapping_vocalset.txt"
	ManifestFile = "vocalset_paths_labels.txt"
)

// Clip is a segmented audio file and the speaker it belongs to.
type Clip struct {
	Path    string
	Speaker string
}

type Builder struct {
	dir        string
	extensions []string
	progress   io.Writer
}

// NewBuilder returns a Builder for the clip tree in dir. Progress is
// rendered to progressOut unless it is nil.
func NewBuilder(dir string, extensions []string, progressOut io.Writer) *Builder {
	return &Builder{
		dir:        dir,
		extensions: extensions,
		progress:   progressOut,
	}
}

type Result struct {
	Entries []listfile.Entry
	Encoder *LabelEncoder
}

// Build scans the clip tree, encodes the speakers and writes
// MappingFile and ManifestFile into the clip directory.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	clips, err := b.Scan(ctx)
	if err != nil {
		return nil, err
	}

	res, err := b.encode(ctx, clips)
	if err != nil {
		return nil, err
	}

	mappingPath := filepath.Join(b.dir, MappingFile)
	if err := listfile.WriteMappingsFile(mappingPath, res.Encoder.Mappings()); err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(b.dir, ManifestFile)
	if err := listfile.WriteFile(manifestPath, res.Entries); err != nil {
		return nil, err
	}

	slog.Info("manifest written",
		"path", manifestPath,
		"clips", len(res.Entries),
		"speakers", len(res.Encoder.Classes()),
	)
	return res, nil
}

// Scan lists the clips in lexical walk order. The speaker of a clip is
// the name of its parent directory.
func (b *Builder) Scan(ctx context.Context) ([]Clip, error) {
	var clips []Clip
	err := filepath.WalkDir(b.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != b.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !audio.HasExtension(path, b.extensions) {
			return nil
		}
		parent := filepath.Dir(path)
		if parent == filepath.Clean(b.dir) {
			slog.Debug("skip clip outside speaker directory", "path", path)
			return nil
		}
		clips = append(clips, Clip{
			Path:    path,
			Speaker: audio.NormalizeName(filepath.Base(parent)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.dir, err)
	}
	return clips, nil
}

func (b *Builder) encode(ctx context.Context, clips []Clip) (*Result, error) {
	speakers := make([]string, len(clips))
	for i, c := range clips {
		speakers[i] = c.Speaker
	}
	enc := &LabelEncoder{}
	enc.Fit(speakers)

	bar := progress.New(ctx, b.progress, "Processing files", len(clips))
	defer bar.Wait()

	entries := make([]listfile.Entry, len(clips))
	for i, c := range clips {
		slog.Debug("processing", "path", c.Path)
		label, err := enc.Transform(c.Speaker)
		if err != nil {
			return nil, err
		}
		entries[i] = listfile.Entry{Path: c.Path, Label: strconv.Itoa(label)}
		bar.Increment()
	}
	return &Result{Entries: entries, Encoder: enc}, nil
}
