package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
)

// ValidatePipelines проверяет список stage в конфигурации.
//
// Проверяется:
//   - у каждого stage есть name и version
//   - идентичности не повторяются
//   - зависимости заполнены и не указывают на сам stage
//   - среди сконфигурированных stage нет циклов
//
// Все найденные ошибки объединяются через errors.Join.
// Конфигурация с ошибками всё равно используется: вызывающий код только
// сообщает о проблеме.
func ValidatePipelines(cfg *config.Config) error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Pipelines))

	for i, spec := range cfg.Pipelines {
		id := spec.Identity().String()
		label := id
		if spec.Name == "" {
			label = fmt.Sprintf("#%d", i)
			errs = append(errs, NewValidationError(label, "name", "name is required", ErrEmptyPipelineName))
		}
		if spec.Version == "" {
			errs = append(errs, NewValidationError(label, "version", "version is required", ErrEmptyVersion))
		}

		if seen[id] {
			errs = append(errs, NewValidationError(label, "name",
				"identity declared more than once", ErrDuplicatePipeline))
		}
		seen[id] = true

		for _, dep := range spec.Dependencies {
			if dep.Name == "" || dep.Version == "" {
				errs = append(errs, NewValidationError(label, "dependencies",
					fmt.Sprintf("dependency %q must have name and version", dep.String()), ErrInvalidDependency))
				continue
			}
			if dep == spec.Identity() {
				errs = append(errs, NewValidationError(label, "dependencies",
					"depends on itself", ErrSelfDependency))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if _, err := BuildDAG(cfg.Pipelines); err != nil {
		return NewValidationError("", "pipelines", err.Error(), err)
	}

	return nil
}

// ExternalDependencies возвращает зависимости, которые не объявлены как stage
// в этой конфигурации. Их маркеры завершения должен создать кто-то ещё.
func ExternalDependencies(cfg *config.Config) []domain.PipelineIdentity {
	seen := make(map[domain.PipelineIdentity]bool)
	configured := make(map[domain.PipelineIdentity]bool, len(cfg.Pipelines))
	for _, spec := range cfg.Pipelines {
		configured[spec.Identity()] = true
	}

	var external []domain.PipelineIdentity
	for _, spec := range cfg.Pipelines {
		for _, dep := range spec.Dependencies {
			if configured[dep] || seen[dep] {
				continue
			}
			seen[dep] = true
			external = append(external, dep)
		}
	}
	return external
}

// OrderWarning — stage объявлен раньше своей сконфигурированной зависимости.
//
// Такой stage в текущем цикле будет пропущен и выполнится только
// в следующем.
type OrderWarning struct {
	Pipeline   domain.PipelineIdentity `json:"pipeline"`
	Dependency domain.PipelineIdentity `json:"dependency"`
}

// String возвращает читаемое описание предупреждения.
func (w OrderWarning) String() string {
	return fmt.Sprintf("%s is declared before its dependency %s", w.Pipeline, w.Dependency)
}

// OrderWarnings находит stage, объявленные раньше своих зависимостей.
// Объявленный порядок не меняется.
func OrderWarnings(cfg *config.Config) []OrderWarning {
	position := make(map[domain.PipelineIdentity]int, len(cfg.Pipelines))
	for i, spec := range cfg.Pipelines {
		if _, exists := position[spec.Identity()]; !exists {
			position[spec.Identity()] = i
		}
	}

	var warnings []OrderWarning
	for i, spec := range cfg.Pipelines {
		for _, dep := range spec.Dependencies {
			if pos, ok := position[dep]; ok && pos > i {
				warnings = append(warnings, OrderWarning{Pipeline: spec.Identity(), Dependency: dep})
			}
		}
	}
	return warnings
}
