package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/pipelines"
)

// Archiver загружает output-каталог stage в bucket.
type Archiver struct {
	store  Store
	bucket string
	region string
	prefix string
	logger *slog.Logger
}

// New создаёт Archiver поверх store.
func New(store Store, cfg *config.ArchiveConfig, logger *slog.Logger) (*Archiver, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		store:  store,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Archive загружает все обычные файлы из dir и возвращает адрес
// вида s3://{bucket}/{prefix}/{run_id}/{output_dir_name}.
func (a *Archiver) Archive(ctx context.Context, runID string, id domain.PipelineIdentity, dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	if err := a.store.EnsureBucket(ctx, a.bucket, a.region); err != nil {
		return "", err
	}

	base := ObjectPrefix(a.prefix, runID, id)
	uploaded := 0

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(base, filepath.ToSlash(rel))
		if err := a.store.PutFile(ctx, a.bucket, key, p, contentType(p)); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", dir, err)
	}

	location := fmt.Sprintf("s3://%s/%s", a.bucket, base)
	a.logger.Debug("output dir archived",
		"run_id", runID,
		"pipeline", id.String(),
		"files", uploaded,
		"location", location,
	)
	return location, nil
}

// ObjectPrefix возвращает общий префикс ключей для stage.
func ObjectPrefix(prefix, runID string, id domain.PipelineIdentity) string {
	return path.Join(prefix, runID, engine.OutputDirName(id))
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// NewFactory возвращает pipelines.ArchiverFactory на MinIO.
//
// Клиент переиспользуется, пока блок archive не меняется; изменение
// конфигурации создаёт новый клиент.
func NewFactory(logger *slog.Logger) pipelines.ArchiverFactory {
	return newFactory(logger, func(cfg *config.ArchiveConfig) (Store, error) {
		return NewMinIOStore(cfg)
	})
}

func newFactory(logger *slog.Logger, newStore func(*config.ArchiveConfig) (Store, error)) pipelines.ArchiverFactory {
	var (
		mu      sync.Mutex
		lastCfg config.ArchiveConfig
		store   Store
	)

	return func(cfg *config.ArchiveConfig) (pipelines.Archiver, error) {
		if cfg == nil {
			return nil, ErrNotConfigured
		}

		mu.Lock()
		defer mu.Unlock()

		if store == nil || *cfg != lastCfg {
			s, err := newStore(cfg)
			if err != nil {
				return nil, err
			}
			store, lastCfg = s, *cfg
		}
		return New(store, cfg, logger)
	}
}
