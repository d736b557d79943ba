package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	buckets []string
	objects map[string]string
	putErr  error
}

func (s *fakeStore) EnsureBucket(_ context.Context, bucket, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = append(s.buckets, bucket)
	return nil
}

func (s *fakeStore) PutFile(_ context.Context, bucket, key, _ string, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if s.objects == nil {
		s.objects = make(map[string]string)
	}
	s.objects[bucket+"/"+key] = contentType
	return nil
}

func (s *fakeStore) keys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var testIdentity = domain.PipelineIdentity{Name: "BCCDC-PHL/pipeline-1", Version: "v0.1.0"}

func makeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "qc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.html"), []byte("<html/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qc", "summary.csv"), []byte("a\n"), 0o644))
	return dir
}

func TestArchiver_UploadsTree(t *testing.T) {
	store := &fakeStore{}
	a, err := New(store, &config.ArchiveConfig{Bucket: "results", Prefix: "analyses"}, nil)
	require.NoError(t, err)

	location, err := a.Archive(context.Background(), "run-A", testIdentity, makeDir(t))
	require.NoError(t, err)

	assert.Equal(t, "s3://results/analyses/run-A/pipeline-1-v0.1-output", location)
	assert.Equal(t, []string{"results"}, store.buckets)
	assert.Equal(t, []string{
		"results/analyses/run-A/pipeline-1-v0.1-output/qc/summary.csv",
		"results/analyses/run-A/pipeline-1-v0.1-output/report.html",
	}, store.keys())
	assert.Contains(t, store.objects["results/analyses/run-A/pipeline-1-v0.1-output/report.html"], "text/html")
}

func TestArchiver_Errors(t *testing.T) {
	boom := errors.New("boom")
	a, err := New(&fakeStore{putErr: boom}, &config.ArchiveConfig{Bucket: "results"}, nil)
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), "run-A", testIdentity, makeDir(t))
	assert.ErrorIs(t, err, boom)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = a.Archive(context.Background(), "run-A", testIdentity, file)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = a.Archive(context.Background(), "run-A", testIdentity, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = New(&fakeStore{}, nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestObjectPrefix_NoPrefix(t *testing.T) {
	assert.Equal(t, "run-A/pipeline-1-v0.1-output", ObjectPrefix("", "run-A", testIdentity))
}

func TestFactory_ReusesStoreUntilConfigChanges(t *testing.T) {
	created := 0
	factory := newFactory(nil, func(*config.ArchiveConfig) (Store, error) {
		created++
		return &fakeStore{}, nil
	})

	cfg := &config.ArchiveConfig{Endpoint: "minio:9000", Bucket: "results", AccessKey: "a", SecretKey: "b"}
	_, err := factory(cfg)
	require.NoError(t, err)
	_, err = factory(&config.ArchiveConfig{Endpoint: "minio:9000", Bucket: "results", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	_, err = factory(&config.ArchiveConfig{Endpoint: "minio:9000", Bucket: "other", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	_, err = factory(nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewMinIOStore_Validation(t *testing.T) {
	_, err := NewMinIOStore(&config.ArchiveConfig{Endpoint: "minio:9000"})
	assert.ErrorIs(t, err, config.ErrInvalidArchive)

	store, err := NewMinIOStore(&config.ArchiveConfig{Endpoint: "minio:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}
