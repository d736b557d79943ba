package pipelines

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Archiver копирует output-каталог stage во внешнее хранилище.
type Archiver interface {
	// Archive загружает dir и возвращает адрес архива.
	Archive(ctx context.Context, runID string, id domain.PipelineIdentity, dir string) (string, error)
}

// ArchiverFactory создаёт Archiver из блока archive конфигурации.
// Вызывается на каждый Finalize, поэтому изменения конфигурации
// подхватываются без перезапуска.
type ArchiverFactory func(cfg *config.ArchiveConfig) (Archiver, error)

// DownstreamHandler — pipeline, обрабатывающий результаты своей
// первой зависимости (если она объявлена).
type DownstreamHandler struct {
	name        string
	newArchiver ArchiverFactory
}

// NewDownstreamHandler создаёт обработчик. newArchiver может быть nil.
func NewDownstreamHandler(name string, newArchiver ArchiverFactory) *DownstreamHandler {
	return &DownstreamHandler{name: name, newArchiver: newArchiver}
}

// Name реализует Handler.
func (h *DownstreamHandler) Name() string {
	return h.name
}

// Prepare реализует Handler.
//
// fastq_input — каталог fastq run. Если у stage есть зависимости,
// analysis_dir — output-каталог первой из них, выведенный по правилам
// именования; без зависимостей pipeline работает только от fastq.
func (h *DownstreamHandler) Prepare(_ context.Context, req *Request) (map[string]any, error) {
	inputs := map[string]any{
		ParamFastqInput: req.Run.FastqDirectory,
	}
	if len(req.Spec.Dependencies) > 0 {
		inputs[ParamAnalysisDir] = engine.OutputDir(req.Config, req.Run.ID, req.Spec.Dependencies[0])
	}
	return shapeParameters(req, inputs)
}

// Finalize реализует Handler: архивирует output-каталог, если архив настроен.
func (h *DownstreamHandler) Finalize(ctx context.Context, req *Request) error {
	logOutputDir(ctx, req)

	if h.newArchiver == nil || req.Config.Archive == nil {
		return nil
	}

	archiver, err := h.newArchiver(req.Config.Archive)
	if err != nil {
		h.archiveFailed(ctx, req, err)
		return fmt.Errorf("create archiver: %w", err)
	}

	location, err := archiver.Archive(ctx, req.Run.ID, req.Spec.Identity(), req.Layout.OutputDir)
	if err != nil {
		h.archiveFailed(ctx, req, err)
		return fmt.Errorf("archive %s: %w", req.Layout.OutputDir, err)
	}

	req.emit(ctx, telemetry.NewEvent(telemetry.EventArchiveComplete).
		With("analysis_pipeline_output_dir", req.Layout.OutputDir).
		With("archive_location", location))
	return nil
}

func (h *DownstreamHandler) archiveFailed(ctx context.Context, req *Request, err error) {
	req.emit(ctx, telemetry.NewEvent(telemetry.EventArchiveFailed).
		WithLevel(slog.LevelError).
		With("analysis_pipeline_output_dir", req.Layout.OutputDir).
		With("error", err.Error()))
}
