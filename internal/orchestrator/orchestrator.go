package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/discovery"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
	"github.com/shaiso/autoanalysis/internal/execution"
	"github.com/shaiso/autoanalysis/internal/notification"
	"github.com/shaiso/autoanalysis/internal/pipelines"
	"github.com/shaiso/autoanalysis/internal/scheduler"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Orchestrator — цикл обнаружения и обработки runs.
type Orchestrator struct {
	store     *config.Store
	discovery discovery.Source
	engine    execution.Engine
	notifier  notification.Dispatcher
	registry  *pipelines.Registry
	sink      telemetry.EventSink
	logger    *slog.Logger
	now       func() time.Time

	preparer  *Preparer
	finalizer *Finalizer
	status    *tracker

	// inspected — последний снимок конфигурации, прошедший проверку.
	// Меняется только в цикле.
	inspected *config.Config

	drainOnce sync.Once
	drainCh   chan struct{}
}

// Config — зависимости Orchestrator.
type Config struct {
	// Store — источник снимков конфигурации. Обязателен.
	Store *config.Store

	// Discovery — источник runs (default: FilesystemSource).
	Discovery discovery.Source

	// Engine — Execution Engine. nil: создаётся из блока execution
	// конфигурации для каждого run.
	Engine execution.Engine

	// Notifier — отправка уведомлений (nil — выключено).
	Notifier notification.Dispatcher

	// Registry — обработчики pipeline (default: DefaultRegistry без архива).
	Registry *pipelines.Registry

	// Sink — получатель событий (default: LogSink поверх Logger).
	Sink telemetry.EventSink

	Logger *slog.Logger

	// Now — источник времени (default: time.Now).
	Now func() time.Time
}

// New создаёт Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, ErrNoConfigStore
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = telemetry.NewLogSink(logger)
	}
	src := cfg.Discovery
	if src == nil {
		src = discovery.NewFilesystemSource(logger)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = pipelines.DefaultRegistry(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		store:     cfg.Store,
		discovery: src,
		engine:    cfg.Engine,
		notifier:  cfg.Notifier,
		registry:  registry,
		sink:      sink,
		logger:    logger,
		now:       now,
		preparer:  NewPreparer(registry, sink, now),
		finalizer: NewFinalizer(sink),
		status:    newTracker(cfg.Store.Path()),
		drainCh:   make(chan struct{}),
	}, nil
}

// Run выполняет проходы до Drain или отмены ctx.
//
// После Drain текущий проход дорабатывается и Run возвращает nil.
// Отмена ctx прерывает работу и возвращает ctx.Err().
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.stopped(ctx)

	for {
		if err := o.Cycle(ctx); err != nil {
			return err
		}
		if o.Draining() {
			return nil
		}

		wait, err := scheduler.NextWait(o.store.Current(), o.now())
		if err != nil {
			o.logger.Warn("invalid scan_cron, using scan interval", "error", err)
		}
		o.status.sleeping(o.now().Add(wait))

		switch scheduler.Sleep(ctx, wait, o.drainCh) {
		case scheduler.WakeDrain:
			return nil
		case scheduler.WakeCancelled:
			return ctx.Err()
		}
	}
}

// RunOnce выполняет один проход и останавливает цикл.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	defer o.stopped(ctx)
	return o.Cycle(ctx)
}

// Cycle выполняет один проход по обнаруженным runs.
// Возвращает ошибку только при отмене ctx.
func (o *Orchestrator) Cycle(ctx context.Context) error {
	o.status.setState(StateReloadingConfig)
	cfg := o.reloadConfig(ctx)
	o.inspectConfig(ctx, cfg)

	o.status.setState(StateScanning)
	start := o.now()
	o.status.scanStarted(start)
	o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventScanStarted).
		With("analysis_output_dir", cfg.AnalysisOutputDir).
		With("max_concurrent_runs", cfg.Concurrency()))

	var g errgroup.Group
	g.SetLimit(cfg.Concurrency())

	for run := range o.discovery.Runs(ctx, cfg) {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o.processRun(ctx, run)
			return nil
		})
	}
	_ = g.Wait()

	duration := o.now().Sub(start)
	o.status.scanFinished(duration)
	telemetry.ScanDuration.Observe(duration.Seconds())

	if err := ctx.Err(); err != nil {
		return err
	}

	o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventScanComplete).
		With("scan_duration_seconds", duration.Seconds()))
	return nil
}

// Drain запрашивает остановку после текущего прохода.
// Возвращает true только при первом вызове; повторные игнорируются.
func (o *Orchestrator) Drain() bool {
	first := false
	o.drainOnce.Do(func() {
		first = true
		o.status.setPhase(domain.PhaseDraining)
		close(o.drainCh)
		o.sink.Emit(context.Background(), telemetry.NewEvent(telemetry.EventQuitWhenSafeEnabled))
	})
	if !first {
		o.logger.Info("drain already in progress, ignoring interrupt")
	}
	return first
}

// Draining проверяет, запрошена ли остановка.
func (o *Orchestrator) Draining() bool {
	select {
	case <-o.drainCh:
		return true
	default:
		return false
	}
}

// Phase возвращает фазу жизненного цикла.
func (o *Orchestrator) Phase() domain.LoopPhase {
	return o.status.phase()
}

// Status возвращает снимок состояния цикла.
func (o *Orchestrator) Status() Status {
	return o.status.snapshot()
}

func (o *Orchestrator) stopped(ctx context.Context) {
	o.status.setState(StateTerminating)
	o.status.setPhase(domain.PhaseStopped)
	o.sink.Emit(context.WithoutCancel(ctx), telemetry.NewEvent(telemetry.EventShutdownComplete))
}

// reloadConfig перечитывает конфигурацию; при ошибке остаётся прежний снимок.
func (o *Orchestrator) reloadConfig(ctx context.Context) *config.Config {
	path := o.store.Path()
	if abs, err := filepath.Abs(path); err == nil && path != "" {
		path = abs
	}

	cfg, err := o.store.Reload()
	if err != nil {
		telemetry.ConfigReloadFailures.Inc()
		o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventLoadConfigFailed).
			WithLevel(slog.LevelError).
			With("config_file", path).
			With("error", err.Error()))
		return cfg
	}

	o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventConfigLoaded).
		With("config_file", path))
	return cfg
}

// inspectConfig проверяет новый снимок конфигурации. Ошибки проверки
// только логируются: снимок используется как есть.
func (o *Orchestrator) inspectConfig(ctx context.Context, cfg *config.Config) {
	if cfg == o.inspected {
		return
	}
	o.inspected = cfg

	names := make([]string, 0, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		names = append(names, p.Identity().String())
	}
	o.status.setPipelines(names)

	if err := engine.ValidatePipelines(cfg); err != nil {
		o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventConfigInvalid).
			WithLevel(slog.LevelWarn).
			With("error", err.Error()))
	}
	for _, w := range engine.OrderWarnings(cfg) {
		o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventConfigInvalid).
			WithLevel(slog.LevelWarn).
			ForPipeline(w.Pipeline.Name).
			With("warning", w.String()))
	}
	if ext := engine.ExternalDependencies(cfg); len(ext) > 0 {
		o.logger.Debug("dependencies produced outside this config", "dependencies", ext)
	}
	if cfg.ScanCron != "" {
		if err := scheduler.ValidateCronExpr(cfg.ScanCron); err != nil {
			o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventConfigInvalid).
				WithLevel(slog.LevelWarn).
				With("error", err.Error()))
		}
	}
}

// processRun обрабатывает все stages одного run.
// Паника или ошибка в одном run не останавливает остальные.
func (o *Orchestrator) processRun(ctx context.Context, run domain.Run) {
	o.status.runStarted(run.ID)
	telemetry.ActiveRuns.Inc()
	defer func() {
		telemetry.ActiveRuns.Dec()
		telemetry.RunsProcessed.Inc()
		o.status.runFinished(run.ID)
	}()

	defer func() {
		if r := recover(); r != nil {
			o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventAnalysisFailed).
				WithLevel(slog.LevelError).
				ForRun(run.ID).
				With("error", fmt.Sprint(r)).
				With("stack", string(debug.Stack())))
		}
	}()

	cfg := o.reloadConfig(ctx)

	eng, err := o.engineFor(cfg)
	if err != nil {
		o.sink.Emit(ctx, telemetry.NewEvent(telemetry.EventAnalysisFailed).
			WithLevel(slog.LevelError).
			ForRun(run.ID).
			With("error", err.Error()))
		return
	}

	executed := 0
	for _, stage := range o.registry.Bind(cfg) {
		if ctx.Err() != nil {
			return
		}
		outcome := o.processStage(ctx, cfg, eng, stage, run)
		telemetry.StageOutcomes.WithLabelValues(stage.Spec.Name, string(outcome)).Inc()
		if outcome.IsTerminal() {
			executed++
		}
	}
	o.logger.Debug("run processed", "run_id", run.ID, "stages_executed", executed)
}

func (o *Orchestrator) engineFor(cfg *config.Config) (execution.Engine, error) {
	if o.engine != nil {
		return o.engine, nil
	}
	return execution.New(cfg.Execution, o.logger)
}
