package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	exitVal := m.Run()
	os.Exit(exitVal)
}

func TestNewDirPublisher(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "published", "lists")

		_, err := NewDirPublisher(dir)
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("empty directory is no target", func(t *testing.T) {
		_, err := NewDirPublisher("")
		assert.ErrorIs(t, err, ErrNoTarget)
	})
}

func TestDirPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	p, err := NewDirPublisher(dir)
	require.NoError(t, err)

	loc, err := p.Publish(context.Background(), "val_list.txt", strings.NewReader("b.wav|1\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "val_list.txt"), loc)

	content, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "b.wav|1\n", string(content))
}

func TestDirPublisher_PublishCanceled(t *testing.T) {
	p, err := NewDirPublisher(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Publish(ctx, "a.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishFiles_SkipsMissing(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "train_list.txt"), []byte("a.wav|0\n"), 0o644))
	dst := t.TempDir()
	p, err := NewDirPublisher(dst)
	require.NoError(t, err)

	locs, err := PublishFiles(context.Background(), p, src, []string{"train_list.txt", "val_list.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dst, "train_list.txt")}, locs)
	assert.NoFileExists(t, filepath.Join(dst, "val_list.txt"))
}

func TestNewS3Publisher_RequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), S3Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestS3Publisher_URL(t *testing.T) {
	p, err := NewS3Publisher(context.Background(), S3Config{
		Bucket:          "datasets",
		Region:          "eu-central-1",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://datasets.s3.eu-central-1.amazonaws.com/vocalset/val_list.txt", p.url("vocalset/val_list.txt"))
}

func TestS3Publisher_Publish_MockServer(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = make(map[string]string)
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		mu.Lock()
		bodies[r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p, err := NewS3Publisher(context.Background(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		Prefix:          "vocalset",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "train_list.txt"), []byte("a.wav|0\nc.wav|0\n"), 0o644))

	locs, err := PublishFiles(context.Background(), p, src, []string{"train_list.txt", "val_list.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/test-bucket/vocalset/train_list.txt"}, locs)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, bodies, "/test-bucket/vocalset/train_list.txt")
	assert.Contains(t, bodies["/test-bucket/vocalset/train_list.txt"], "a.wav|0\nc.wav|0\n")
}

func TestS3Publisher_PublishError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p, err := NewS3Publisher(context.Background(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), "val_list.txt", bytes.NewReader([]byte("b.wav|1\n")))
	assert.Error(t, err)
}
