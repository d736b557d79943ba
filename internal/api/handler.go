package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/autoanalysis/internal/orchestrator"
	"github.com/shaiso/autoanalysis/internal/repo"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// StatusProvider отдаёт снимок состояния цикла.
// Реализуется *orchestrator.Orchestrator.
type StatusProvider interface {
	Status() orchestrator.Status
}

// EventStore — чтение журнала событий. Реализуется *repo.EventRepo.
type EventStore interface {
	List(ctx context.Context, filter repo.EventFilter) ([]telemetry.Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*telemetry.Event, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	status StatusProvider
	events EventStore
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Status StatusProvider

	// Events — журнал событий; nil, если DB_URL не задан.
	Events EventStore

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		status: cfg.Status,
		events: cfg.Events,
		logger: logger.With("component", "api"),
	}
}
