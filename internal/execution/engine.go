package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
)

// Engine выполняет подготовленный stage.
//
// Execute блокирует до завершения stage. При успехе в output-каталоге
// должен существовать CompletionMarker.
type Engine interface {
	Execute(ctx context.Context, spec domain.PipelineSpec, workDir string) error
}

// EngineFunc — адаптер функции к Engine.
type EngineFunc func(ctx context.Context, spec domain.PipelineSpec, workDir string) error

// Execute реализует Engine.
func (f EngineFunc) Execute(ctx context.Context, spec domain.PipelineSpec, workDir string) error {
	return f(ctx, spec, workDir)
}

// New создаёт Engine по блоку execution конфигурации.
func New(cfg config.ExecutionConfig, logger *slog.Logger) (Engine, error) {
	switch cfg.ModeOrDefault() {
	case config.ExecutionModeNextflow:
		return NewNextflowEngine(cfg, logger), nil
	case config.ExecutionModeDryRun:
		return NewDryRunEngine(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, cfg.Mode)
	}
}

// completionMarker — содержимое analysis_complete.json.
type completionMarker struct {
	PipelineName    string    `json:"pipeline_name"`
	PipelineVersion string    `json:"pipeline_version"`
	CompletedAt     time.Time `json:"timestamp_analysis_complete"`
}

// outputDir возвращает параметр outdir подготовленного stage.
func outputDir(spec domain.PipelineSpec) (string, error) {
	dir, _ := spec.Parameters["outdir"].(string)
	if dir == "" {
		return "", fmt.Errorf("%w: %s", ErrNoOutputDir, spec.Identity())
	}
	return dir, nil
}

// ensureCompletionMarker создаёт маркер, если pipeline не создал его сам.
func ensureCompletionMarker(spec domain.PipelineSpec, outdir string, now time.Time) error {
	path := filepath.Join(outdir, engine.CompletionMarkerName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(completionMarker{
		PipelineName:    spec.Name,
		PipelineVersion: spec.Version,
		CompletedAt:     now,
	}, "", "  ")
	if err != nil {
		return err
	}

	// Маркер появляется атомарно: сначала временный файл, затем rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	return nil
}
