package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// Schema — таблица журнала событий.
const Schema = `
CREATE TABLE IF NOT EXISTS analysis_events (
	id          uuid PRIMARY KEY,
	event_type  text        NOT NULL,
	level       text        NOT NULL,
	run_id      text,
	pipeline    text,
	fields      jsonb       NOT NULL DEFAULT '{}'::jsonb,
	created_at  timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_events_run_idx ON analysis_events (run_id, created_at);
CREATE INDEX IF NOT EXISTS analysis_events_type_idx ON analysis_events (event_type, created_at);
`

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	writeTimeout     = 5 * time.Second
)

// DB — часть pgxpool.Pool, нужная репозиторию.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRepo — журнал событий оркестратора в PostgreSQL.
//
// Реализует telemetry.EventSink: подключается к оркестратору через
// telemetry.MultiSink рядом с LogSink.
type EventRepo struct {
	db       DB
	logger   *slog.Logger
	minLevel slog.Level
}

// NewEventRepo создаёт EventRepo. Сохраняются события уровня INFO и выше.
func NewEventRepo(db DB, logger *slog.Logger) *EventRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRepo{
		db:       db,
		logger:   logger.With("component", "event_repo"),
		minLevel: slog.LevelInfo,
	}
}

// SetMinLevel задаёт минимальный сохраняемый уровень.
func (r *EventRepo) SetMinLevel(level slog.Level) {
	r.minLevel = level
}

// EnsureSchema создаёт таблицу, если её нет.
func (r *EventRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert сохраняет событие.
func (r *EventRepo) Insert(ctx context.Context, event telemetry.Event) error {
	fields := event.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO analysis_events (id, event_type, level, run_id, pipeline, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.Type,
		event.Level.String(),
		nullString(event.RunID),
		nullString(event.Pipeline),
		fieldsJSON,
		event.Time,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Emit реализует telemetry.EventSink.
//
// Ошибка записи не прерывает обработку run: она логируется и учитывается
// в метрике. Отмена ctx вызывающего не отменяет запись.
func (r *EventRepo) Emit(ctx context.Context, event telemetry.Event) {
	if event.Level < r.minLevel {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.Insert(writeCtx, event); err != nil {
		telemetry.EventPersistFailures.Inc()
		r.logger.Warn("failed to persist event",
			"event_type", event.Type,
			"run_id", event.RunID,
			"error", err,
		)
	}
}

// GetByID возвращает событие по ID.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*telemetry.Event, error) {
	query := `
		SELECT id, event_type, level, run_id, pipeline, fields, created_at
		FROM analysis_events
		WHERE id = $1
	`
	return scanEvent(r.db.QueryRow(ctx, query, id))
}

// List возвращает события, новые первыми.
func (r *EventRepo) List(ctx context.Context, filter EventFilter) ([]telemetry.Event, error) {
	if err := filter.normalize(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, event_type, level, run_id, pipeline, fields, created_at
		FROM analysis_events
		WHERE ($1::text IS NULL OR run_id = $1)
		  AND ($2::text IS NULL OR event_type = $2)
		  AND ($3::text IS NULL OR pipeline = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.db.Query(ctx, query,
		nullString(filter.RunID),
		nullString(filter.Type),
		nullString(filter.Pipeline),
		nullTime(filter.Since),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []telemetry.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// --- Helpers ---

// EventFilter — параметры выборки событий.
type EventFilter struct {
	RunID    string
	Type     string
	Pipeline string
	Since    time.Time
	Limit    int
	Offset   int
}

func (f *EventFilter) normalize() error {
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit < 0 || f.Limit > maxListLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidFilter, maxListLimit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidFilter)
	}
	return nil
}

// scanEvent сканирует одну строку; подходит и для pgx.Row, и для pgx.Rows.
func scanEvent(row pgx.Row) (*telemetry.Event, error) {
	var (
		event      telemetry.Event
		level      string
		runID      *string
		pipeline   *string
		fieldsJSON []byte
	)

	err := row.Scan(
		&event.ID,
		&event.Type,
		&level,
		&runID,
		&pipeline,
		&fieldsJSON,
		&event.Time,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if err := event.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse level %q: %w", level, err)
	}
	if runID != nil {
		event.RunID = *runID
	}
	if pipeline != nil {
		event.Pipeline = *pipeline
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &event.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	return &event, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
