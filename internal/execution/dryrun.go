package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

// DryRunEngine ничего не запускает: логирует команду и пишет маркер
// завершения. Используется для проверки конфигурации на живых данных.
type DryRunEngine struct {
	nextflow *NextflowEngine
	logger   *slog.Logger
	now      func() time.Time
}

// NewDryRunEngine создаёт DryRunEngine.
func NewDryRunEngine(cfg config.ExecutionConfig, logger *slog.Logger) *DryRunEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunEngine{
		nextflow: NewNextflowEngine(cfg, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Execute реализует Engine.
func (e *DryRunEngine) Execute(ctx context.Context, spec domain.PipelineSpec, workDir string) error {
	outdir, err := outputDir(spec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.logger.Info("dry run",
		"event_type", "dry_run",
		"pipeline", spec.Name,
		"version", spec.Version,
		"command", e.nextflow.command,
		"args", e.nextflow.Args(spec, workDir),
	)

	return ensureCompletionMarker(spec, outdir, e.now())
}
