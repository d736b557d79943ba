package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Prepared — stage, готовый к передаче в Execution Engine.
type Prepared struct {
	// Spec — новая спецификация с заполненными параметрами.
	Spec domain.PipelineSpec

	Layout  engine.Layout
	Handler pipelines.Handler
}

// Preparer строит параметры stage перед запуском.
type Preparer struct {
	registry *pipelines.Registry
	sink     telemetry.EventSink
	workdirs *workDirAllocator
	now      func() time.Time
}

// NewPreparer создаёт Preparer. now может быть nil (time.Now).
func NewPreparer(registry *pipelines.Registry, sink telemetry.EventSink, now func() time.Time) *Preparer {
	if sink == nil {
		sink = telemetry.Discard
	}
	if now == nil {
		now = time.Now
	}
	return &Preparer{
		registry: registry,
		sink:     sink,
		workdirs: newWorkDirAllocator(now),
		now:      now,
	}
}

// Prepare готовит stage spec для run, выбирая handler по имени pipeline.
func (p *Preparer) Prepare(ctx context.Context, cfg *config.Config, spec domain.PipelineSpec, run domain.Run) (*Prepared, error) {
	h, err := p.registry.Get(spec.Name)
	return p.PrepareStage(ctx, cfg, pipelines.Stage{Spec: spec, Handler: h, Err: err}, run)
}

// PrepareStage готовит уже связанный с handler stage.
//
// Возвращает ошибку, оборачивающую ErrSkip, если зависимости не завершены
// или pipeline не поддерживается. Исходная спецификация не изменяется.
// Успешно подготовленный stage должен быть освобождён через Release.
func (p *Preparer) PrepareStage(ctx context.Context, cfg *config.Config, stage pipelines.Stage, run domain.Run) (*Prepared, error) {
	spec := stage.Spec
	id := spec.Identity()

	if !engine.AllDependenciesComplete(ctx, cfg, spec, run, p.sink) {
		p.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventAnalysisSkipped).
			With("reason", "dependencies_incomplete"))
		return nil, fmt.Errorf("%w: %s: dependencies incomplete", ErrSkip, id)
	}

	if !stage.Supported() {
		err := stage.Err
		if err == nil {
			err = fmt.Errorf("%w: %s", pipelines.ErrUnsupportedPipeline, spec.Name)
		}
		p.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventUnsupportedPipeline).
			WithLevel(slog.LevelError).
			With("pipeline_version", spec.Version))
		return nil, fmt.Errorf("%w: %w", ErrSkip, err)
	}

	ts := p.workdirs.Allocate(cfg, run.ID, id)
	layout := engine.NewLayout(cfg, run.ID, id, ts)

	params, err := stage.Handler.Prepare(ctx, &pipelines.Request{
		Config: cfg,
		Spec:   spec,
		Run:    run,
		Layout: layout,
		Sink:   p.sink,
	})
	if err != nil {
		p.workdirs.Release(run.ID, id)
		return nil, fmt.Errorf("prepare %s: %w", id, err)
	}

	prepared := &Prepared{
		Spec:    spec.WithParameters(params),
		Layout:  layout,
		Handler: stage.Handler,
	}

	rec := StageRecord{
		RunID:      run.ID,
		Pipeline:   spec.Name,
		Version:    spec.Version,
		WorkDir:    layout.WorkDir,
		OutputDir:  layout.OutputDir,
		PreparedAt: p.now().UTC(),
	}
	if err := writeStageRecord(cfg, rec); err != nil {
		// Finalize найдёт work dir по шаблону имени
		p.emit(ctx, run, spec, telemetry.NewEvent(telemetry.EventStageRecordWriteFailed).
			WithLevel(slog.LevelWarn).
			With("error", err.Error()))
	}

	return prepared, nil
}

// Release освобождает состояние генерации имени work dir, занятое
// PrepareStage. Вызывается, когда stage больше не нуждается в work dir.
func (p *Preparer) Release(runID string, id domain.PipelineIdentity) {
	p.workdirs.Release(runID, id)
}

func (p *Preparer) emit(ctx context.Context, run domain.Run, spec domain.PipelineSpec, event telemetry.Event) {
	p.sink.Emit(ctx, event.ForRun(run.ID).ForPipeline(spec.Name))
}
