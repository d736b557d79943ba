package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий. Совпадают с полем event_type в JSON-логах.
const (
	EventConfigLoaded           = "config_loaded"
	EventLoadConfigFailed       = "load_config_failed"
	EventConfigInvalid          = "config_invalid"
	EventScanStarted            = "scan_started"
	EventScanComplete           = "scan_complete"
	EventDependencyCheck        = "dependency_check"
	EventAnalysisSkipped        = "analysis_skipped"
	EventUnsupportedPipeline    = "unsupported_pipeline"
	EventAnalysisStarted        = "analysis_started"
	EventPipelineFailed         = "pipeline_failed"
	EventPipelineComplete       = "pipeline_complete"
	EventAnalysisFailed         = "analysis_failed"
	EventPostAnalysisStarted    = "post_analysis_started"
	EventPostAnalysisNotImpl    = "post_analysis_not_implemented"
	EventPostAnalysisFailed     = "post_analysis_failed"
	EventAnalysisOutputDir      = "analysis_pipeline_output_dir"
	EventWorkDirDeleted         = "analysis_work_dir_deleted"
	EventWorkDirDeleteFailed    = "delete_analysis_work_dir_failed"
	EventWorkDirNotFound        = "analysis_work_dir_not_found"
	EventWorkDirDeletionSkipped = "skipped_deletion_of_analysis_work_dir"
	EventNotificationSent       = "notification_sent"
	EventNotificationFailed     = "notification_failed"
	EventQuitWhenSafeEnabled    = "quit_when_safe_enabled"
	EventShutdownComplete       = "shutdown_complete"
	EventStageRecordWriteFailed = "stage_record_write_failed"
	EventArchiveComplete        = "archive_complete"
	EventArchiveFailed          = "archive_failed"
)

// Event — структурированное событие оркестратора.
//
// События — единственный пользовательский канал наблюдаемости:
// LogSink пишет их в slog, Recorder собирает для тестов,
// repo.EventRepo сохраняет в PostgreSQL.
type Event struct {
	ID       uuid.UUID      `json:"id"`
	Type     string         `json:"event_type"`
	Level    slog.Level     `json:"level"`
	RunID    string         `json:"run_id,omitempty"`
	Pipeline string         `json:"pipeline,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
	Time     time.Time      `json:"timestamp"`
}

// NewEvent создаёт событие уровня INFO.
func NewEvent(eventType string) Event {
	return Event{
		ID:     uuid.New(),
		Type:   eventType,
		Level:  slog.LevelInfo,
		Fields: make(map[string]any),
		Time:   time.Now(),
	}
}

// WithLevel возвращает копию события с уровнем level.
func (e Event) WithLevel(level slog.Level) Event {
	e.Level = level
	return e
}

// ForRun возвращает копию события с run_id.
func (e Event) ForRun(runID string) Event {
	e.RunID = runID
	return e
}

// ForPipeline возвращает копию события с именем pipeline.
func (e Event) ForPipeline(name string) Event {
	e.Pipeline = name
	return e
}

// With добавляет поле. Возвращает копию с новым map полей.
func (e Event) With(key string, value any) Event {
	fields := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	e.Fields = fields
	return e
}

// EventSink принимает события.
// Реализации должны быть потокобезопасны и не блокировать надолго.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// EventSinkFunc — адаптер функции к EventSink.
type EventSinkFunc func(ctx context.Context, event Event)

// Emit реализует EventSink.
func (f EventSinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// LogSink пишет события в slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink создаёт LogSink. Если logger nil — используется глобальный.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit реализует EventSink.
func (s *LogSink) Emit(ctx context.Context, event Event) {
	attrs := make([]slog.Attr, 0, len(event.Fields)+3)
	attrs = append(attrs, slog.String("event_type", event.Type))
	if event.RunID != "" {
		attrs = append(attrs, slog.String("run_id", event.RunID))
	}
	if event.Pipeline != "" {
		attrs = append(attrs, slog.String("pipeline", event.Pipeline))
	}
	for k, v := range event.Fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.LogAttrs(ctx, event.Level, event.Type, attrs...)
}

// MultiSink рассылает событие во все вложенные sinks.
type MultiSink []EventSink

// Emit реализует EventSink.
func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

// Recorder сохраняет события в памяти. Используется в тестах.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit реализует EventSink.
func (r *Recorder) Emit(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events возвращает копию всех событий.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType возвращает события заданного типа в порядке поступления.
func (r *Recorder) OfType(eventType string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Reset очищает записанные события.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Discard — sink, отбрасывающий события.
var Discard EventSink = EventSinkFunc(func(context.Context, Event) {})
