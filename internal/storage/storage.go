// Package storage publishes the dataset lists produced by a run
// to a directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrNoTarget is returned when neither a directory nor a bucket is configured.
var ErrNoTarget = errors.New("storage: no publish target configured")

// Publisher stores one artifact under key and returns where it ended up.
type Publisher interface {
	Publish(ctx context.Context, key string, data io.Reader) (location string, err error)
}

// DirPublisher copies artifacts into a local directory.
type DirPublisher struct {
	dir string
}

// NewDirPublisher creates dir if it does not exist.
func NewDirPublisher(dir string) (*DirPublisher, error) {
	if dir == "" {
		return nil, ErrNoTarget
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create publish directory: %w", err)
	}
	return &DirPublisher{dir: dir}, nil
}

func (p *DirPublisher) Publish(ctx context.Context, key string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(p.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// PublishFiles publishes the named files of dir under their base names.
// Files that do not exist are skipped.
func PublishFiles(ctx context.Context, p Publisher, dir string, names []string) ([]string, error) {
	var locations []string
	for _, name := range names {
		loc, err := publishFile(ctx, p, filepath.Join(dir, name), name)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("nothing to publish", "path", filepath.Join(dir, name))
			continue
		}
		if err != nil {
			return locations, err
		}
		slog.Info("published", "file", name, "location", loc)
		locations = append(locations, loc)
	}
	return locations, nil
}

func publishFile(ctx context.Context, p Publisher, path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return p.Publish(ctx, key, f)
}
