package discovery

import (
	"context"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
)

// FilesystemSource находит runs в каталоге fastq_by_run_dir.
//
// Каждый подкаталог — один run, его путь становится FastqDirectory.
// Пропускаются:
//   - скрытые каталоги (имя начинается с ".")
//   - runs из excluded_runs
//   - runs, у которых все сконфигурированные pipeline уже завершены
//
// Runs выдаются в порядке имён. Parameters заполняются из ID run
// (domain.ParseRunParameters).
type FilesystemSource struct {
	logger *slog.Logger
}

// NewFilesystemSource создаёт FilesystemSource.
func NewFilesystemSource(logger *slog.Logger) *FilesystemSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesystemSource{logger: logger}
}

// Runs реализует Source.
func (s *FilesystemSource) Runs(ctx context.Context, cfg *config.Config) iter.Seq[domain.Run] {
	return func(yield func(domain.Run) bool) {
		if cfg.FastqByRunDir == "" {
			s.logger.Debug("fastq_by_run_dir not configured, nothing to scan")
			return
		}

		// os.ReadDir возвращает записи, отсортированные по имени
		entries, err := os.ReadDir(cfg.FastqByRunDir)
		if err != nil {
			s.logger.Warn("failed to read run directory",
				"event_type", "scan_directory_failed",
				"path", cfg.FastqByRunDir,
				"error", err,
			)
			return
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}

			name := entry.Name()
			if !isRunDir(cfg.FastqByRunDir, entry) || strings.HasPrefix(name, ".") {
				continue
			}
			if cfg.IsExcluded(name) {
				s.logger.Debug("run excluded", "run_id", name)
				continue
			}
			if allStagesComplete(cfg, name) {
				continue
			}

			run := domain.Run{
				ID:             name,
				FastqDirectory: filepath.Join(cfg.FastqByRunDir, name),
				Parameters:     domain.ParseRunParameters(name),
			}
			if !yield(run) {
				return
			}
		}
	}
}

// isRunDir проверяет, что запись — каталог (символические ссылки разыменовываются).
func isRunDir(root string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}

// allStagesComplete возвращает true, если у run есть маркер для каждого pipeline.
func allStagesComplete(cfg *config.Config, runID string) bool {
	if len(cfg.Pipelines) == 0 {
		return false
	}
	for _, spec := range cfg.Pipelines {
		if !engine.IsComplete(cfg, runID, spec.Identity()) {
			return false
		}
	}
	return true
}
