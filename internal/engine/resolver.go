package engine

import (
	"context"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/telemetry"
)

// DependencyStatus — состояние одной зависимости stage.
type DependencyStatus struct {
	Pipeline string `json:"pipeline"`
	Version  string `json:"version"`
	Marker   string `json:"completion_marker"`
	Complete bool   `json:"complete"`
}

// CheckDependencies возвращает состояние каждой зависимости в порядке объявления.
//
// Единственный ввод-вывод — проверка существования маркеров;
// результат воспроизводим по статическим входным данным.
func CheckDependencies(cfg *config.Config, spec domain.PipelineSpec, run domain.Run) []DependencyStatus {
	statuses := make([]DependencyStatus, 0, len(spec.Dependencies))
	for _, dep := range spec.Dependencies {
		marker := CompletionMarkerPath(cfg, run.ID, dep)
		statuses = append(statuses, DependencyStatus{
			Pipeline: dep.Name,
			Version:  dep.Version,
			Marker:   marker,
			Complete: fileExists(marker),
		})
	}
	return statuses
}

// AllDependenciesComplete проверяет, завершены ли все зависимости stage.
//
// Stage без зависимостей готов всегда. Частичное завершение — это
// "не готов", а не ошибка. На каждую проверку в sink уходит ровно одно
// событие dependency_check с путями и статусом каждой зависимости.
func AllDependenciesComplete(ctx context.Context, cfg *config.Config, spec domain.PipelineSpec, run domain.Run, sink telemetry.EventSink) bool {
	statuses := CheckDependencies(cfg, spec, run)

	complete := true
	for _, st := range statuses {
		if !st.Complete {
			complete = false
			break
		}
	}

	if sink != nil {
		sink.Emit(ctx, telemetry.NewEvent(telemetry.EventDependencyCheck).
			ForRun(run.ID).
			ForPipeline(spec.Name).
			With("dependencies", statuses).
			With("all_dependencies_complete", complete))
	}

	return complete
}
